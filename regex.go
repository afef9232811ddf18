package bson

import (
	"regexp"
	"strings"
)

// canonicalRegexOptions reorders options into the canonical encode
// order (i, m, s, then any other flag characters in their original
// relative order), omitting absent flags. The decoder accepts any order;
// this function is only used on the encode path.
func canonicalRegexOptions(options string) string {
	var out strings.Builder
	has := func(c byte) bool { return strings.IndexByte(options, c) >= 0 }
	if has('i') {
		out.WriteByte('i')
	}
	if has('m') {
		out.WriteByte('m')
	}
	if has('s') {
		out.WriteByte('s')
	}
	for i := 0; i < len(options); i++ {
		c := options[i]
		if c == 'i' || c == 'm' || c == 's' {
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

// Compile converts a Regex carrier to a *regexp.Regexp, translating the
// BSON i/m/s flags to Go's equivalent inline flags (which happen to use
// the same letters and the same meaning: case-insensitive, multi-line
// ^/$, and dot-matches-newline respectively). Unsupported letters in
// Options (anything outside i/m/s, e.g. the MongoDB-specific 'x' or 'u')
// are dropped from the compiled pattern but left untouched on the Regex
// value itself, so a caller that round-trips the value through Serialize
// preserves them even though Go's regexp engine can't honor them.
func (r Regex) Compile() (*regexp.Regexp, error) {
	var flags strings.Builder
	for _, c := range r.Options {
		switch c {
		case 'i', 'm', 's':
			flags.WriteRune(c)
		}
	}
	pattern := r.Pattern
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}
