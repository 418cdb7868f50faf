// Package pipeline turns a batch of post descriptors into collage files. Each
// post maps to exactly one job; a job's failure is absorbed into an empty
// collage path so a batch run always completes.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/collage-pipeline/internal/collage"
	"github.com/fpang/collage-pipeline/internal/fetch"
	"github.com/fpang/collage-pipeline/internal/frames"
	"github.com/fpang/collage-pipeline/internal/post"
)

// FramesPerVideo is how many frames are sampled for a video collage grid.
const FramesPerVideo = 9

// Pipeline generates collages for post batches into a flat output directory.
type Pipeline struct {
	fetcher   *fetch.Fetcher
	outputDir string
	runID     string

	// sample is swappable in tests; production uses frames.Sample.
	sample func(ctx context.Context, videoPath string, targetCount int) []image.Image
}

// New creates a Pipeline writing collages into outputDir, creating the
// directory if needed.
func New(outputDir string) (*Pipeline, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Pipeline{
		fetcher:   fetch.New(),
		outputDir: outputDir,
		runID:     uuid.New().String(),
		sample:    frames.Sample,
	}, nil
}

// generate produces the collage for one post. It never fails: every internal
// error, including a panic, is logged and converted to an empty path.
func (p *Pipeline) generate(ctx context.Context, d *post.Descriptor, seq int) (path string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("post", d.ID).
				Int("seq", seq).
				Interface("panic", r).
				Msg("Collage job panicked, recording empty result")
			path = ""
		}
	}()

	switch {
	case d.Type == post.TypeVideo && len(d.Videos) > 0:
		return p.videoCollage(ctx, d, seq)
	case (d.Type == post.TypeImage || d.Type == post.TypeSidecar) && len(d.Images) > 0:
		return p.imageCollage(ctx, d, seq)
	default:
		log.Debug().
			Str("post", d.ID).
			Str("type", string(d.Type)).
			Int("images", len(d.Images)).
			Int("videos", len(d.Videos)).
			Msg("Post has no usable media, skipping collage")
		return ""
	}
}

// videoCollage downloads the post's first video, samples frames, and
// composites them. A failed download or an empty frame set yields no collage.
func (p *Pipeline) videoCollage(ctx context.Context, d *post.Descriptor, seq int) string {
	tempVideo := filepath.Join(os.TempDir(), fmt.Sprintf("collage-%s-%d.mp4", p.runID, seq))
	if err := p.fetcher.FetchVideo(ctx, d.Videos[0].URL, tempVideo); err != nil {
		log.Warn().Err(err).Str("post", d.ID).Msg("Video unavailable, skipping collage")
		return ""
	}

	sampled := p.sample(ctx, tempVideo, FramesPerVideo)
	if len(sampled) == 0 {
		log.Warn().Str("post", d.ID).Msg("No frames extracted from video, skipping collage")
		return ""
	}

	ann := collage.Annotation{
		Caption:   d.Caption,
		Likes:     d.LikesCount,
		Comments:  d.CommentsCount,
		Views:     d.VideoViews,
		ShowViews: d.VideoViews > 0,
		TypeLabel: fmt.Sprintf("Video (%d frames)", len(sampled)),
	}

	outPath, err := collage.Compose(sampled, ann, p.collagePath(seq, d.Type))
	if err != nil {
		log.Error().Err(err).Str("post", d.ID).Msg("Video collage composition failed")
		return ""
	}
	return outPath
}

// imageCollage fetches every listed image URL and composites them. Individual
// fetch failures render as placeholder tiles, so the collage itself is only
// skipped when composition fails outright.
func (p *Pipeline) imageCollage(ctx context.Context, d *post.Descriptor, seq int) string {
	images := make([]image.Image, 0, len(d.Images))
	for _, ref := range d.Images {
		images = append(images, p.fetcher.FetchImage(ctx, ref.URL))
	}

	label := "Single image"
	if len(images) > 1 {
		label = fmt.Sprintf("%d images", len(images))
	}

	ann := collage.Annotation{
		Caption:   d.Caption,
		Likes:     d.LikesCount,
		Comments:  d.CommentsCount,
		TypeLabel: label,
	}

	outPath, err := collage.Compose(images, ann, p.collagePath(seq, d.Type))
	if err != nil {
		log.Error().Err(err).Str("post", d.ID).Msg("Image collage composition failed")
		return ""
	}
	return outPath
}

// collagePath derives the output filename from the post's position in the
// batch and its type, keeping re-runs reproducible and names collision-free.
func (p *Pipeline) collagePath(seq int, t post.Type) string {
	return filepath.Join(p.outputDir, fmt.Sprintf("collage_%d_%s.jpg", seq, strings.ToLower(string(t))))
}
