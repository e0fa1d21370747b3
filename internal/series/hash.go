package series

import "unicode/utf16"

// Hash maps s to a 32-bit value that is identical on every platform and in
// every process. It walks the UTF-16 code units of s and accumulates
// h = h*31 + unit with wrapping arithmetic. Hash("") is 0.
//
// Hash is a tie-breaker only; it is not an identity and not collision
// resistant (Hash("Aa") == Hash("BB")).
func Hash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(u)
	}
	return h
}
