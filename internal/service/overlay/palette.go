package overlay

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"ripeness/internal/config"
)

// Palette resolves class names to stroke colors, case-insensitively.
type Palette struct {
	classes  map[string]color.RGBA
	fallback color.RGBA
}

// NewPalette parses the hex colors of a configured palette.
func NewPalette(cfg config.Palette) (Palette, error) {
	p := Palette{classes: make(map[string]color.RGBA, len(cfg.Classes))}

	for class, hex := range cfg.Classes {
		c, err := ParseHex(hex)
		if err != nil {
			return Palette{}, fmt.Errorf("class %q: %w", class, err)
		}
		p.classes[strings.ToLower(class)] = c
	}

	fallback, err := ParseHex(cfg.Default)
	if err != nil {
		return Palette{}, fmt.Errorf("default color: %w", err)
	}
	p.fallback = fallback

	return p, nil
}

// DefaultPalette returns the built-in class colors.
func DefaultPalette() Palette {
	p, err := NewPalette(config.DefaultPalette())
	if err != nil {
		panic(err)
	}
	return p
}

// Color returns the color for class, or the fallback for unknown classes.
func (p Palette) Color(class string) color.RGBA {
	if c, ok := p.classes[strings.ToLower(class)]; ok {
		return c
	}
	return p.fallback
}

// Hex returns the color for class as #rrggbb.
func (p Palette) Hex(class string) string {
	c := p.Color(class)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses "#rrggbb" (the leading # is optional) into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
