// Package frames extracts evenly spaced still frames from downloaded videos
// using ffprobe/ffmpeg. An unreadable or empty video is a recoverable "no
// visual content" outcome, not an error: Sample returns however many frames
// it could decode, possibly none.
package frames

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
)

// ffprobeOutput is the subset of ffprobe's JSON output the sampler reads.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	NBFrames   string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// videoInfo holds the probed properties the sampler needs.
type videoInfo struct {
	totalFrames int
	frameRate   float64
}

// Sample extracts up to targetCount evenly spaced frames from the video at
// videoPath. The source file is always deleted before Sample returns, on both
// success and failure paths.
//
// The effective target is capped at the video's total frame count, so no
// frame is ever decoded twice. Individual seek/decode failures are skipped,
// so the result may be shorter than requested.
func Sample(ctx context.Context, videoPath string, targetCount int) []image.Image {
	defer func() {
		if err := os.Remove(videoPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", videoPath).Msg("Failed to remove temp video file")
		}
	}()

	if targetCount <= 0 {
		return nil
	}

	info, err := probe(videoPath)
	if err != nil {
		log.Warn().Err(err).Str("path", videoPath).Msg("Video probe failed, no frames extracted")
		return nil
	}
	if info.totalFrames <= 0 {
		log.Warn().Str("path", videoPath).Msg("Video reports zero frames, no frames extracted")
		return nil
	}

	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Warn().Err(err).Msg("ffmpeg not found, no frames extracted")
		return nil
	}

	indices := frameIndices(info.totalFrames, targetCount)
	frames := make([]image.Image, 0, len(indices))
	for _, idx := range indices {
		frame, err := extractFrame(ctx, ffmpegPath, videoPath, idx, info.frameRate)
		if err != nil {
			log.Debug().Err(err).Int("frame", idx).Str("path", videoPath).Msg("Frame extraction failed, skipping")
			continue
		}
		frames = append(frames, frame)
	}

	log.Debug().
		Str("path", videoPath).
		Int("total_frames", info.totalFrames).
		Int("requested", targetCount).
		Int("extracted", len(frames)).
		Msg("Frame sampling complete")

	return frames
}

// frameIndices returns target indices evenly spaced across [0, total-1]
// inclusive, rounded to the nearest integer. If fewer frames exist than
// requested, every frame index is returned instead. Indices are strictly
// increasing.
func frameIndices(total, target int) []int {
	if total <= 0 || target <= 0 {
		return nil
	}
	if target > total {
		target = total
	}
	if target == 1 {
		return []int{0}
	}

	step := float64(total-1) / float64(target-1)
	indices := make([]int, target)
	for i := range indices {
		indices[i] = int(math.Round(float64(i) * step))
	}
	return indices
}

// probe reads the video's total frame count and frame rate via ffprobe.
// Containers that omit nb_frames fall back to duration × frame rate.
func probe(videoPath string) (videoInfo, error) {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return videoInfo{}, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.Command(ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return videoInfo{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return videoInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := videoInfo{frameRate: 30.0}
	var duration float64
	if out.Format.Duration != "" {
		duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}

	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if rate := parseFrameRate(stream.RFrameRate); rate > 0 {
			info.frameRate = rate
		}
		if stream.NBFrames != "" {
			info.totalFrames, _ = strconv.Atoi(stream.NBFrames)
		}
		if stream.Duration != "" {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil && d > 0 {
				duration = d
			}
		}
		break
	}

	if info.totalFrames <= 0 && duration > 0 {
		info.totalFrames = int(duration * info.frameRate)
	}
	return info, nil
}

// extractFrame seeks to the given frame index and decodes exactly one frame.
func extractFrame(ctx context.Context, ffmpegPath, videoPath string, index int, frameRate float64) (image.Image, error) {
	tmpFile, err := os.CreateTemp("", "frame-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp frame file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	timestamp := float64(index) / frameRate
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2",
		"-y", tmpPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	frameFile, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open extracted frame: %w", err)
	}
	defer frameFile.Close()

	frame, _, err := image.Decode(frameFile)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame %s: %w", filepath.Base(tmpPath), err)
	}
	return frame, nil
}

// parseFrameRate parses frame rate from ffprobe format (e.g., "30000/1001" -> 29.97).
func parseFrameRate(value string) float64 {
	parts := strings.Split(value, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
	}
	rate, _ := strconv.ParseFloat(value, 64)
	return rate
}
