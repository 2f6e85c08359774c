package defio

import "strings"

// namedPalettes are the built-in palettes --palette-name can resolve,
// standing in for palettable's qualitative/sequential palette classes
// (e.g. "Pastel1_8", "Reds_9") referenced by graph_to_sankey.py; the
// retrieved pack carries no curated named-color-palette library to ground
// a richer table on.
var namedPalettes = map[string][]string{
	"pastel1": {"#fbb4ae", "#b3cde3", "#ccebc5", "#decbe4", "#fed9a6", "#ffffcc", "#e5d8bd", "#fddaec"},
	"reds":    {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#99000d"},
	"viridis": {"#440154", "#46327e", "#365c8d", "#277f8e", "#1fa187", "#4ac16d", "#a0da39", "#fde725"},
}

// ResolvePaletteName looks up a built-in palette by name, case-insensitively.
func ResolvePaletteName(name string) ([]string, bool) {
	p, ok := namedPalettes[strings.ToLower(name)]
	return p, ok
}
