package speccache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives a cache key from the serialized diagram definition and a
// descriptor of the compile options that affect output (measures, link
// width/color, elsewhere-waypoint toggle): two requests with the same
// definition bytes and the same options descriptor compile to the same
// spec, and can share a cache entry.
func Key(definitionJSON []byte, optionsDescriptor string) string {
	h := sha256.New()
	h.Write(definitionJSON)
	h.Write([]byte{0})
	h.Write([]byte(optionsDescriptor))
	return hex.EncodeToString(h.Sum(nil))
}
