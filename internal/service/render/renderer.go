package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/service/overlay"
)

// Output formats accepted by Render.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpg"
)

const (
	labelFont      = gocv.FontHersheySimplex
	labelFontScale = 0.55
	labelThickness = 2
)

var labelTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// RendererService draws filtered predictions over a scaled copy of an image.
type RendererService struct {
	opts    overlay.Options
	palette overlay.Palette
	logger  *logger.Logger
}

// NewRendererService creates a renderer fitting images into opts.
func NewRendererService(opts overlay.Options, palette overlay.Palette, logger *logger.Logger) *RendererService {
	return &RendererService{
		opts:    opts,
		palette: palette,
		logger:  logger,
	}
}

// ContentType returns the MIME type for an output format.
func ContentType(format string) string {
	if format == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Render decodes img, scales it to fit the display bounds and draws every
// prediction with confidence >= threshold. The result is encoded as format.
func (s *RendererService) Render(img []byte, predictions []model.Prediction, threshold float64, format string) ([]byte, error) {
	ext, err := fileExt(format)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	scale, err := overlay.Fit(mat.Cols(), mat.Rows(), s.opts)
	if err != nil {
		return nil, err
	}

	display := gocv.NewMat()
	defer display.Close()
	gocv.Resize(mat, &display, image.Pt(scale.Width, scale.Height), 0, 0, gocv.InterpolationArea)
	if display.Empty() {
		return nil, fmt.Errorf("failed to resize image to %dx%d", scale.Width, scale.Height)
	}

	boxes := overlay.Layout(predictions, threshold, scale.Factor, s.palette, measureLabel)
	for _, box := range boxes {
		if err := drawBox(&display, box); err != nil {
			return nil, err
		}
	}

	buf, err := gocv.IMEncode(ext, display)
	if err != nil {
		s.logger.Error("Failed to encode overlay: %v", err)
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())

	s.logger.Info("Rendered %d of %d predictions at %.2fx", len(boxes), len(predictions), scale.Factor)
	return out, nil
}

func drawBox(mat *gocv.Mat, box overlay.Box) error {
	if err := gocv.Rectangle(mat, box.Bounds.Image(), box.Color, overlay.LineWidth); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	// Negative thickness fills the chip.
	if err := gocv.Rectangle(mat, box.Chip.Image(), box.Color, -1); err != nil {
		return fmt.Errorf("failed to draw label chip: %w", err)
	}

	if err := gocv.PutText(mat, box.Label, box.TextOrigin, labelFont, labelFontScale, labelTextColor, labelThickness); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

func measureLabel(label string) float64 {
	size := gocv.GetTextSize(label, labelFont, labelFontScale, labelThickness)
	return float64(size.X)
}

func fileExt(format string) (gocv.FileExt, error) {
	switch format {
	case "", FormatPNG:
		return gocv.PNGFileExt, nil
	case FormatJPEG, "jpeg":
		return gocv.JPEGFileExt, nil
	default:
		return "", fmt.Errorf("unsupported overlay format %q", format)
	}
}
