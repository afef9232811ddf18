package bson

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error taxonomy. Each is a sentinel tested with errors.Is; call sites
// wrap it with github.com/pkg/errors to attach positional context
// (dotted field path on encode, byte offset on decode).
var (
	// ErrConfig: the Registry is missing one of the ten required carrier
	// constructors.
	ErrConfig = errors.New("bson: registry missing required carrier constructor")

	// ErrKey: a field name is invalid under strict-key mode (starts with
	// '$' or contains '.'), or contains an embedded NUL, which is
	// rejected in every mode.
	ErrKey = errors.New("bson: invalid key under strict-key mode")

	// ErrUnsupportedValue: a value is neither a recognised host primitive
	// nor a registered carrier.
	ErrUnsupportedValue = errors.New("bson: unsupported value")

	// ErrOverflow: a numeric or fixed-size value cannot be represented in
	// any available wire slot.
	ErrOverflow = errors.New("bson: value out of representable range")

	// ErrTruncatedInput: a declared document length extends past the end
	// of the buffer.
	ErrTruncatedInput = errors.New("bson: truncated input")

	// ErrCorruptTag: an unknown type tag was encountered during decode.
	ErrCorruptTag = errors.New("bson: corrupt or unknown type tag")

	// ErrBadCString: a cstring is missing its terminating NUL before the
	// buffer end.
	ErrBadCString = errors.New("bson: cstring missing terminator")

	// ErrLengthMismatch: a (sub)document's declared total length did not
	// match the number of bytes actually consumed parsing it.
	ErrLengthMismatch = errors.New("bson: declared length does not match consumed bytes")

	// ErrEncoding: invalid UTF-8 in a string or cstring.
	ErrEncoding = errors.New("bson: invalid UTF-8")
)

// errKeyf wraps a sentinel error with a formatted context message.
func errKeyf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrap(sentinel, fmt.Sprintf(format, args...))
}
