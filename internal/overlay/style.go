package overlay

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/facecam/internal/config"
)

type style struct {
	stroke      color.RGBA
	strokeWidth int
	fill        color.NRGBA
	plate       color.RGBA
	text        color.RGBA
	plateHeight int
	padding     int
	baseline    int
}

func parseStyle(cfg config.StyleConfig) (style, error) {
	stroke, err := parseHexColor(cfg.Box.Stroke)
	if err != nil {
		return style{}, fmt.Errorf("invalid box stroke: %w", err)
	}
	fill, err := parseHexColor(cfg.Box.Fill)
	if err != nil {
		return style{}, fmt.Errorf("invalid box fill: %w", err)
	}
	plate, err := parseHexColor(cfg.Label.Background)
	if err != nil {
		return style{}, fmt.Errorf("invalid label background: %w", err)
	}
	text, err := parseHexColor(cfg.Label.Text)
	if err != nil {
		return style{}, fmt.Errorf("invalid label text color: %w", err)
	}

	return style{
		stroke:      stroke,
		strokeWidth: max(cfg.Box.StrokeWidth, 1),
		fill:        color.NRGBA{R: fill.R, G: fill.G, B: fill.B, A: cfg.Box.FillAlpha},
		plate:       plate,
		text:        text,
		plateHeight: max(cfg.Label.Height, 1),
		padding:     max(cfg.Label.Padding, 0),
		baseline:    max(cfg.Label.Baseline, 0),
	}, nil
}

// parseHexColor parses "#rrggbb" or "#rgb".
func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// foldLabel removes diacritics ("Jiří" -> "Jiri") and replaces what is
// still outside printable ASCII, which the bitmap face cannot draw.
func foldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, folded)
}
