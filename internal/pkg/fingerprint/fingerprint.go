// Package fingerprint derives short stable cache keys from URLs.
package fingerprint

import (
	"strconv"
	"unicode/utf16"
)

// Hash maps a URL to a compact deterministic identifier: a 32-bit rolling
// polynomial hash (h = h*31 + code unit) over the UTF-16 code units of the
// string, reduced to its magnitude and rendered in base 36. Existing cache
// entries are keyed with this exact arithmetic, so it must stay in wrapping
// int32 and must not be widened.
func Hash(url string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(url)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
