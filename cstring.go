package bson

import (
	"strings"
	"unicode/utf8"
)

// cstringByteLen returns the number of bytes a cstring occupies on the
// wire: its UTF-8 byte length plus the terminating NUL. It does not
// validate UTF-8 on the size pass — validation happens once, at write
// time, in writeCstring / writeString, to avoid paying for it twice.
func cstringByteLen(s string) int {
	return len(s) + 1
}

// stringByteLen returns the number of bytes a BSON String payload occupies
// on the wire: a 4-byte length prefix, the UTF-8 bytes, and a trailing
// NUL.
func stringByteLen(s string) int {
	return 4 + len(s) + 1
}

// validateUTF8 returns ErrEncoding if s is not valid UTF-8. It does not
// check for embedded NULs; validateKey does that for field names.
func validateUTF8(s string) error {
	if !utf8.ValidString(s) {
		return errKeyf(ErrEncoding, "invalid UTF-8 string")
	}
	return nil
}

// validateKey enforces the no-embedded-NUL rule (always) and, when strict
// is true, the strict-key mode rules: a field name must not start with
// '$' and must not contain '.'.
func validateKey(name string, strict bool) error {
	if strings.IndexByte(name, 0x00) >= 0 {
		return errKeyf(ErrKey, "field name %q contains an embedded NUL", name)
	}
	if !strict {
		return nil
	}
	if strings.HasPrefix(name, "$") {
		return errKeyf(ErrKey, "field name %q starts with '$'", name)
	}
	if strings.Contains(name, ".") {
		return errKeyf(ErrKey, "field name %q contains '.'", name)
	}
	return nil
}

// catpath concatenates name onto a dotted path for error context (e.g.
// "a.b.c"), used throughout encode.go/decode.go to report where in a
// document an error occurred.
func catpath(path, name string) string {
	if path == "" {
		return name
	}
	return strings.Join([]string{path, name}, ".")
}
