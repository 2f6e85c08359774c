package executor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rlupton/weaver/spec"
)

// applyColor resolves a link's display color from the aggregated
// measures for its edge, following the color scale's kind.
func applyColor(edge spec.EdgeSpec, measures map[string]float64, c spec.ColorSpec) string {
	switch cs := c.(type) {
	case spec.CategoricalColorSpec:
		key := categoricalLookupKey(edge, measures, cs.Attribute)
		if color, ok := cs.Lookup[key]; ok {
			return color
		}
		return cs.Default
	case spec.QuantitativeColorSpec:
		value := measures[cs.Attribute]
		if cs.Intensity != nil {
			if iv := measures[*cs.Intensity]; iv != 0 {
				value /= iv
			}
		}
		t := normalizeToUnit(value, cs.Domain)
		return interpolatePalette(cs.Palette, t)
	default:
		return "#cccccc"
	}
}

// categoricalLookupKey resolves the attribute a categorical color scale is
// keyed on: one of the edge's own fields, or an aggregated measure value
// formatted as a string.
func categoricalLookupKey(edge spec.EdgeSpec, measures map[string]float64, attr string) string {
	switch attr {
	case "type":
		return edge.Type
	case "source":
		return edge.Source
	case "target":
		return edge.Target
	case "time":
		return edge.Time
	default:
		if v, ok := measures[attr]; ok {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return ""
	}
}

// computeTitle derives a link's display title. Like the system it is
// grounded on, this is currently just the material type; richer titling
// (combining bundle provenance) is future work.
func computeTitle(edge spec.EdgeSpec) string {
	return edge.Type
}

func normalizeToUnit(value float64, domain [2]float64) float64 {
	lo, hi := domain[0], domain[1]
	if hi == lo {
		return 0
	}
	t := (value - lo) / (hi - lo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t
}

// interpolatePalette linearly interpolates RGB across a palette of hex
// colors at fractional position t in [0,1].
func interpolatePalette(palette []string, t float64) string {
	if len(palette) == 0 {
		return "#cccccc"
	}
	if len(palette) == 1 {
		return palette[0]
	}
	pos := t * float64(len(palette)-1)
	i := int(math.Floor(pos))
	if i >= len(palette)-1 {
		return palette[len(palette)-1]
	}
	frac := pos - float64(i)
	r1, g1, b1 := hexToRGB(palette[i])
	r2, g2, b2 := hexToRGB(palette[i+1])
	return rgbToHex(lerp(r1, r2, frac), lerp(g1, g2, frac), lerp(b1, b2, frac))
}

func hexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	r, _ := strconv.ParseInt(hex[0:2], 16, 32)
	g, _ := strconv.ParseInt(hex[2:4], 16, 32)
	b, _ := strconv.ParseInt(hex[4:6], 16, 32)
	return int(r), int(g), int(b)
}

func lerp(a, b int, t float64) int {
	return int(math.Round(float64(a) + t*float64(b-a)))
}

func rgbToHex(r, g, b int) string {
	return fmt.Sprintf("#%02x%02x%02x", clampByte(r), clampByte(g), clampByte(b))
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
