// Package collage composites a bounded set of images into a fixed-grid canvas
// with an annotation band underneath. Layout geometry is fully determined by
// the number of input images, so identical inputs produce identical canvases.
package collage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// TileWidth and TileHeight are the uniform cell dimensions every input
	// image is stretched to.
	TileWidth  = 400
	TileHeight = 400

	// BandHeight is the annotation strip reserved below the grid.
	BandHeight = 150

	// MaxImages is the grid capacity; extra images are dropped, earliest
	// kept.
	MaxImages = 9

	// jpegQuality is the encoding quality for written collages.
	jpegQuality = 85

	// captionLimit is the caption character budget before truncation.
	captionLimit = 200
)

var (
	bandFill  = color.White
	textColor = color.RGBA{A: 255}
	labelGray = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// statsPrinter renders thousands-grouped engagement counts.
var statsPrinter = message.NewPrinter(language.English)

// Annotation is the text block rendered below the grid.
type Annotation struct {
	Caption   string
	Likes     int64
	Comments  int64
	Views     int64
	ShowViews bool
	TypeLabel string
}

// GridDims returns the column and row counts for n images.
func GridDims(n int) (cols, rows int) {
	switch {
	case n <= 1:
		return 1, 1
	case n == 2:
		return 2, 1
	case n <= 4:
		return 2, 2
	case n <= 6:
		return 3, 2
	default:
		return 3, 3
	}
}

// Compose arranges images into the grid, renders the annotation band, and
// writes the result as a JPEG to outPath. It returns outPath on success.
func Compose(images []image.Image, ann Annotation, outPath string) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("no images to composite")
	}

	cols, rows := GridDims(len(images))
	capacity := cols * rows
	placed := images
	if len(placed) > capacity {
		placed = placed[:capacity]
	}

	width := cols * TileWidth
	height := rows*TileHeight + BandHeight
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{bandFill}, image.Point{}, draw.Src)

	for idx, src := range placed {
		col := idx % cols
		row := idx / cols
		cell := image.Rect(col*TileWidth, row*TileHeight, (col+1)*TileWidth, (row+1)*TileHeight)
		// Stretch-to-fit keeps cell geometry independent of source aspect.
		xdraw.CatmullRom.Scale(canvas, cell, src, src.Bounds(), xdraw.Src, nil)
	}

	drawAnnotation(canvas, ann, rows*TileHeight)

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create collage file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode collage: %w", err)
	}

	log.Debug().
		Str("path", outPath).
		Int("images", len(placed)).
		Int("width", width).
		Int("height", height).
		Msg("Collage written")

	return outPath, nil
}

// drawAnnotation renders the stats line, caption, and type label into the
// band starting at bandTop.
func drawAnnotation(canvas *image.RGBA, ann Annotation, bandTop int) {
	captionFace, statsFace := faces()

	drawLine(canvas, statsFace, textColor, 10, bandTop+30, formatStats(ann))

	if caption := truncateCaption(ann.Caption); caption != "" {
		drawLine(canvas, captionFace, textColor, 10, bandTop+62, "Caption: "+caption)
	}

	if ann.TypeLabel != "" {
		drawLine(canvas, captionFace, labelGray, 10, bandTop+110, ann.TypeLabel)
	}
}

func drawLine(dst *image.RGBA, face font.Face, fill color.Color, x, baseline int, text string) {
	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	drawer.DrawString(text)
}

// formatStats builds the bold engagement line with thousands grouping.
func formatStats(ann Annotation) string {
	stats := statsPrinter.Sprintf("%d likes  %d comments", ann.Likes, ann.Comments)
	if ann.ShowViews {
		stats += statsPrinter.Sprintf("  %d views", ann.Views)
	}
	return stats
}

// truncateCaption collapses the caption to one line within the character
// budget, marking truncation with an ellipsis.
func truncateCaption(caption string) string {
	caption = strings.Join(strings.Fields(caption), " ")
	runes := []rune(caption)
	if len(runes) <= captionLimit {
		return caption
	}
	return string(runes[:captionLimit]) + "..."
}
