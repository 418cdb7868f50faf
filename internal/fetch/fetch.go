// Package fetch retrieves remote post media. Image fetches never fail from
// the caller's perspective: any network or decode problem yields a fixed
// placeholder tile so downstream grid layout stays stable. Video fetches
// stream to disk and do fail, because frames cannot be fabricated.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultImageTimeout bounds a single image GET plus body read.
	DefaultImageTimeout = 10 * time.Second

	// DefaultVideoTimeout bounds a single video download. Video payloads are
	// large, so this is deliberately longer than the image timeout.
	DefaultVideoTimeout = 30 * time.Second

	// Placeholder tile dimensions, matching the compositor's tile size.
	placeholderSize = 400
)

// placeholderGray is the fill for failed image fetches.
var placeholderGray = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// Fetcher downloads remote media over HTTP.
type Fetcher struct {
	client       *http.Client
	imageTimeout time.Duration
	videoTimeout time.Duration
}

// New creates a Fetcher with default timeouts.
func New() *Fetcher {
	return &Fetcher{
		client:       &http.Client{},
		imageTimeout: DefaultImageTimeout,
		videoTimeout: DefaultVideoTimeout,
	}
}

// NewWithTimeouts creates a Fetcher with explicit per-kind timeouts.
func NewWithTimeouts(imageTimeout, videoTimeout time.Duration) *Fetcher {
	return &Fetcher{
		client:       &http.Client{},
		imageTimeout: imageTimeout,
		videoTimeout: videoTimeout,
	}
}

// Placeholder returns the neutral tile substituted for failed image fetches.
// A fresh image is returned each call; callers own it exclusively.
func Placeholder() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{placeholderGray}, image.Point{}, draw.Src)
	return img
}

// FetchImage downloads and decodes one remote image, normalized to an opaque
// RGBA raster. On any failure it logs and returns the placeholder instead.
func (f *Fetcher) FetchImage(ctx context.Context, url string) image.Image {
	data, err := f.get(ctx, url, f.imageTimeout)
	if err != nil {
		log.Warn().Err(err).Str("url", truncateURL(url)).Msg("Image fetch failed, substituting placeholder")
		return Placeholder()
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Str("url", truncateURL(url)).Msg("Image decode failed, substituting placeholder")
		return Placeholder()
	}

	logImageMeta(url, data)

	// Flatten to opaque RGBA so every tile shares one color model.
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Over)

	log.Debug().
		Str("url", truncateURL(url)).
		Str("format", format).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Msg("Image fetched")

	return rgba
}

// FetchVideo streams a remote video into destPath. On failure (network error,
// HTTP error status, empty body) any partial file is removed and an error is
// returned; the caller must treat that as "no video available". On success the
// caller owns the file and its cleanup.
func (f *Fetcher) FetchVideo(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.videoTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build video request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("video fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("video fetch returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create video file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("video download failed: %w", err)
	}
	if written == 0 {
		os.Remove(destPath)
		return fmt.Errorf("video download produced empty file")
	}

	log.Debug().
		Str("url", truncateURL(url)).
		Str("path", destPath).
		Int64("bytes", written).
		Msg("Video fetched")

	return nil
}

// get performs a bounded GET and returns the full response body.
func (f *Fetcher) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// logImageMeta sniffs EXIF from fetched image bytes for debug logs. Scraped
// CDN images usually have their metadata stripped, so failures are expected
// and ignored.
func logImageMeta(url string, data []byte) {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}
	log.Debug().
		Str("url", truncateURL(url)).
		Str("camera_make", strings.TrimSpace(exifData.Make)).
		Str("camera_model", strings.TrimSpace(exifData.Model)).
		Time("date_taken", exifData.DateTimeOriginal()).
		Msg("Source image metadata")
}

// truncateURL shortens long CDN URLs for log lines.
func truncateURL(url string) string {
	const maxLen = 80
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen] + "..."
}
