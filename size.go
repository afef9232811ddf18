package bson

import (
	"reflect"
	"strconv"
	"time"
)

// SizeOptions controls CalculateSize, mirroring EncodeOptions' flags.
type SizeOptions struct {
	// SerializeFunctions mirrors EncodeOptions.SerializeFunctions so a
	// caller's size pass and write pass agree on whether functions are
	// excluded. See encode.go's writeElement for why Go functions never
	// actually produce a non-zero contribution either way.
	SerializeFunctions bool
}

// CalculateSize returns the exact number of bytes Serialize(v) will write.
// It never fails: a value of an unrecognised kind contributes a 0-byte
// payload (its element's tag and name are still counted).
func (c *Codec) CalculateSize(v interface{}, opts SizeOptions) int {
	return documentSize(v, opts)
}

// documentSize returns the size of v encoded as a top-level BSON
// document: 4 (length prefix) + sum of element sizes + 1 (terminator).
func documentSize(v interface{}, opts SizeOptions) int {
	return 4 + fieldsSize(v, opts) + 1
}

// fieldsSize sums tag + cstring(name) + payload over every field of a
// Map or Document. Any other value contributes 0.
func fieldsSize(v interface{}, opts SizeOptions) int {
	switch vt := v.(type) {
	case Map:
		total := 0
		for name, val := range vt {
			total += elementSize(name, val, opts)
		}
		return total
	case Document:
		total := 0
		for _, el := range vt {
			total += elementSize(el.Key, el.Value, opts)
		}
		return total
	}
	return 0
}

// elementSize returns 1 (tag) + cstring(name) + payloadSize(val), or 0 if
// val is an excluded function.
func elementSize(name string, val interface{}, opts SizeOptions) int {
	if isExcludedFunction(val, opts) {
		return 0
	}
	return 1 + cstringByteLen(name) + payloadSize(val, opts)
}

// isExcludedFunction reports whether val is a Go function value that
// should be omitted entirely. Go functions carry no source text, so even
// with SerializeFunctions set they never contribute a positive size —
// encode.go instead raises ErrUnsupportedValue for that combination. The
// function is therefore "excluded" from size accounting in both modes;
// only the *decision to error* differs by mode, and that's encode.go's
// concern.
func isExcludedFunction(val interface{}, opts SizeOptions) bool {
	if val == nil {
		return false
	}
	return reflect.ValueOf(val).Kind() == reflect.Func
}

// payloadSize returns the wire size of val's payload alone (excluding
// the tag byte and the element name).
func payloadSize(val interface{}, opts SizeOptions) int {
	if val == nil {
		return 0
	}
	rv := reflect.ValueOf(val)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return 0
	}

	switch vt := val.(type) {
	case Double:
		return 8
	case string:
		return stringByteLen(vt)
	case Map:
		return documentSize(vt, opts)
	case Document:
		return documentSize(vt, opts)
	case Array:
		return arraySize(vt, opts)
	case Binary:
		return 4 + 1 + len(vt.Bytes())
	case []byte:
		return 4 + 1 + len(vt)
	case ObjectID:
		return 12
	case bool:
		return 1
	case DateTime:
		return 8
	case time.Time:
		return 8
	case Null:
		return 0
	case Regex:
		return len(vt.Pattern) + 1 + len(canonicalRegexOptions(vt.Options)) + 1
	case Code:
		if len(vt.Scope) == 0 {
			return stringByteLen(vt.Source)
		}
		return 4 + stringByteLen(vt.Source) + documentSize(vt.Scope, opts)
	case Symbol:
		return stringByteLen(vt.Value)
	case int8, int16, int32:
		return 4
	case int:
		if fitsInt32(int64(vt)) {
			return 4
		}
		return 8
	case int64:
		if fitsInt32(vt) {
			return 4
		}
		return 8
	case float32:
		return floatPayloadSize(float64(vt))
	case float64:
		return floatPayloadSize(vt)
	case Timestamp:
		return 8
	case Long:
		return 8
	case DBRef:
		return dbRefProjectedSize(vt, opts)
	case MinKey:
		return 0
	case MaxKey:
		return 0
	}

	// Reflective fallback for named/derived kinds (e.g. a custom string
	// or slice type) that don't match one of the concrete cases above.
	switch rv.Kind() {
	case reflect.Bool:
		return 1
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return 4
	case reflect.Int, reflect.Int64:
		if fitsInt32(rv.Int()) {
			return 4
		}
		return 8
	case reflect.Float64, reflect.Float32:
		return floatPayloadSize(rv.Float())
	case reflect.String:
		return stringByteLen(rv.String())
	case reflect.Slice, reflect.Array:
		arr := make(Array, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}
		return arraySize(arr, opts)
	}
	// Unrecognised kind: contributes 0.
	return 0
}

// fitsInt32 reports whether v is representable in BSON's signed 32-bit
// Int32 slot.
func fitsInt32(v int64) bool {
	return v >= -(1<<31) && v <= (1<<31)-1
}

// floatPayloadSize implements the numeric promotion rule for a host
// floating-point number: a non-zero fractional part always emits Double;
// an integral value emits Int32 if it fits, otherwise Double (never
// Int64 — that path is reserved for the explicit Long carrier).
func floatPayloadSize(f float64) int {
	if f != float64(int64(f)) {
		return 8
	}
	if fitsInt32(int64(f)) {
		return 4
	}
	return 8
}

// arraySize returns the size of val encoded as a BSON array: a document
// whose field names are the ascending decimal indices "0","1",….
func arraySize(val Array, opts SizeOptions) int {
	total := 0
	for i, v := range val {
		total += elementSize(strconv.Itoa(i), v, opts)
	}
	return 4 + total + 1
}

// dbRefProjectedSize returns the size of the {$ref, $id, [$db]} document
// DBRef projects onto.
func dbRefProjectedSize(ref DBRef, opts SizeOptions) int {
	total := elementSize(keyDBRefRef, ref.Namespace, opts)
	total += elementSize(keyDBRefID, ref.OID, opts)
	if ref.HasDB {
		total += elementSize(keyDBRefDB, ref.DB, opts)
	}
	return 4 + total + 1
}
