package defio

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/rlupton/weaver/spec"
)

// ParseColorMapping parses the --color-mapping flag value into a
// spec.ColorSpec. The value is either inline JSON (a categorical or
// quantitative color document) or, prefixed with "@", a path to a file
// containing the same document, mirroring compiler/__main__.py's
// handling of its --color-mapping argument.
func ParseColorMapping(value string) (spec.ColorSpec, error) {
	return ParseColorMappingWithPalette(value, "")
}

// ParseColorMappingWithPalette is ParseColorMapping, additionally stamping
// a named palette (resolved via ResolvePaletteName) onto the document
// before parsing when paletteName is non-empty, so a quantitative
// --color-mapping document that omits its own "palette" can still name one
// via --palette-name.
func ParseColorMappingWithPalette(value, paletteName string) (spec.ColorSpec, error) {
	raw, err := loadColorMappingDocument(value)
	if err != nil {
		return nil, err
	}

	if paletteName != "" {
		palette, ok := ResolvePaletteName(paletteName)
		if !ok {
			return nil, fmt.Errorf("defio: unknown palette name %q", paletteName)
		}
		raw, err = ApplyPaletteName(raw, paletteName, palette)
		if err != nil {
			return nil, err
		}
	}

	cs, err := spec.ParseColorSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("defio: failed to parse color-mapping: %w", err)
	}
	return cs, nil
}

func loadColorMappingDocument(value string) ([]byte, error) {
	if strings.HasPrefix(value, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, fmt.Errorf("defio: failed to read color-mapping file: %w", err)
		}
		return data, nil
	}
	return []byte(value), nil
}

// ApplyPaletteName rewrites a quantitative color-mapping document's
// "palette" field in place, used when --palette-name is given alongside
// an inline --color-mapping document that omits its own palette. sjson
// performs the rewrite without round-tripping through a typed struct,
// the same tolerant-edit role it plays for the teacher's JSON configs.
func ApplyPaletteName(document []byte, paletteName string, palette []string) ([]byte, error) {
	out, err := sjson.SetBytes(document, "palette_name", paletteName)
	if err != nil {
		return nil, fmt.Errorf("defio: failed to set palette_name: %w", err)
	}
	out, err = sjson.SetBytes(out, "palette", palette)
	if err != nil {
		return nil, fmt.Errorf("defio: failed to set palette: %w", err)
	}
	return out, nil
}
