// Package overlay computes where bounding boxes and label chips go on a
// scaled image. Drawing itself lives in the render package.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"ripeness/internal/model"
	"ripeness/internal/service/results"
)

const (
	// LineWidth is the stroke width of a bounding box in display pixels.
	LineWidth = 3
	// LabelHeight is the text band of a label chip.
	LabelHeight = 20
	// LabelPadding pads the chip on every side of the text.
	LabelPadding = 6
)

// ErrEmptyImage is returned when the source image has no pixels.
var ErrEmptyImage = errors.New("image has zero width or height")

// Options bound the display area the image is fitted into.
type Options struct {
	ContainerWidth int
	MaxHeight      int
}

// Scale is the uniform factor applied to the source image and every box.
type Scale struct {
	Factor float64
	Width  int
	Height int
}

// Fit computes min(containerWidth/imageWidth, maxHeight/imageHeight) and the
// resulting display size. Images smaller than the container are scaled up.
func Fit(imageWidth, imageHeight int, opts Options) (Scale, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return Scale{}, ErrEmptyImage
	}
	if opts.ContainerWidth <= 0 || opts.MaxHeight <= 0 {
		return Scale{}, fmt.Errorf("invalid display bounds %dx%d", opts.ContainerWidth, opts.MaxHeight)
	}

	factor := math.Min(
		float64(opts.ContainerWidth)/float64(imageWidth),
		float64(opts.MaxHeight)/float64(imageHeight),
	)

	return Scale{
		Factor: factor,
		Width:  int(float64(imageWidth) * factor),
		Height: int(float64(imageHeight) * factor),
	}, nil
}

// Rect is an axis-aligned rectangle in display pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Image converts r to integer pixel bounds.
func (r Rect) Image() image.Rectangle {
	x0 := results.Round(r.X)
	y0 := results.Round(r.Y)
	return image.Rect(x0, y0, x0+results.Round(r.Width), y0+results.Round(r.Height))
}

// Box is one prediction ready to draw.
type Box struct {
	Prediction model.Prediction
	Color      color.RGBA
	Bounds     Rect
	Label      string
	Chip       Rect
	TextOrigin image.Point
}

// MeasureFunc returns the rendered width of label in display pixels.
type MeasureFunc func(label string) float64

// Label formats the chip text, e.g. "ripe 93.4%".
func Label(p model.Prediction) string {
	return p.Class + " " + results.Percent(p.Confidence, 1)
}

// Layout places every prediction with confidence >= threshold. Boxes are
// converted from center to top-left form and scaled by factor; the chip sits
// directly above the box and may run past the image edge.
func Layout(predictions []model.Prediction, threshold, factor float64, palette Palette, measure MeasureFunc) []Box {
	kept := results.Filter(predictions, threshold)
	boxes := make([]Box, 0, len(kept))

	for _, p := range kept {
		bounds := Rect{
			X:      p.Left() * factor,
			Y:      p.Top() * factor,
			Width:  p.Width * factor,
			Height: p.Height * factor,
		}

		label := Label(p)
		chip := Rect{
			X:      bounds.X,
			Y:      bounds.Y - LabelHeight - LabelPadding,
			Width:  measure(label) + LabelPadding*2,
			Height: LabelHeight + LabelPadding,
		}

		boxes = append(boxes, Box{
			Prediction: p,
			Color:      palette.Color(p.Class),
			Bounds:     bounds,
			Label:      label,
			Chip:       chip,
			TextOrigin: image.Pt(results.Round(bounds.X+LabelPadding), results.Round(bounds.Y-LabelPadding)),
		})
	}

	return boxes
}
