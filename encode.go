package bson

import (
	"encoding/binary"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// EncodeOptions controls Serialize/SerializeWithBufferAndIndex.
type EncodeOptions struct {
	// CheckKeys enables strict-key validation: field names may not start
	// with '$' or contain '.'. Default off — a caller round-tripping
	// query-operator- or DBRef-shaped documents relies on exactly those
	// keys passing through.
	CheckKeys bool

	// SerializeFunctions opts in to encoding Go function values as Code.
	// Go functions carry no retrievable source text, so this module
	// cannot honor the request losslessly; setting this flag makes
	// encountering a function value an error instead of silently
	// omitting it.
	SerializeFunctions bool
}

// Serialize encodes v as a top-level BSON document. It performs a
// two-pass size-then-write discipline: one call to CalculateSize for the
// exact output length, one allocation, one write pass.
func (c *Codec) Serialize(v interface{}, opts EncodeOptions) ([]byte, error) {
	size := c.CalculateSize(v, SizeOptions{SerializeFunctions: opts.SerializeFunctions})
	buf := make([]byte, size)
	end, err := c.writeDocument(buf, 0, v, opts, "")
	if err != nil {
		return nil, err
	}
	if c.debugAssertSize && end != size {
		panic(errors.Errorf("bson: computed size %d does not match %d bytes written", size, end))
	}
	return buf, nil
}

// SerializeWithBufferAndIndex writes v's BSON encoding into buf starting
// at index. It returns the index of the last byte written —
// buf[index:returned+1] holds v's encoding. buf must have at least
// CalculateSize(v, ...) bytes available from index onward.
func (c *Codec) SerializeWithBufferAndIndex(v interface{}, buf []byte, index int, opts EncodeOptions) (int, error) {
	end, err := c.writeDocument(buf, index, v, opts, "")
	if err != nil {
		return 0, err
	}
	return end - 1, nil
}

// writeDocument writes v as a BSON document starting at offset, returning
// the offset just past the last byte written (the terminator).
func (c *Codec) writeDocument(buf []byte, offset int, v interface{}, opts EncodeOptions, path string) (int, error) {
	lengthPos := offset
	cursor := offset + 4

	switch vt := v.(type) {
	case Map:
		for name, val := range vt {
			next, err := c.writeElement(buf, cursor, catpath(path, name), name, val, opts)
			if err != nil {
				return 0, err
			}
			cursor = next
		}
	case Document:
		for _, el := range vt {
			next, err := c.writeElement(buf, cursor, catpath(path, el.Key), el.Key, el.Value, opts)
			if err != nil {
				return 0, err
			}
			cursor = next
		}
	default:
		return 0, errors.Wrapf(ErrUnsupportedValue, "%v: cannot encode %T as a document", path, v)
	}

	buf[cursor] = 0x00
	cursor++
	binary.LittleEndian.PutUint32(buf[lengthPos:], uint32(cursor-lengthPos))
	return cursor, nil
}

// writeElement writes one field: tag + cstring(name) + payload. It
// returns offset unchanged (skipping the field) for an excluded function
// value.
func (c *Codec) writeElement(buf []byte, offset int, path, name string, val interface{}, opts EncodeOptions) (int, error) {
	if val != nil {
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Func {
			if !opts.SerializeFunctions {
				return offset, nil
			}
			return 0, errors.Wrapf(ErrUnsupportedValue, "%v: cannot serialize a function value", path)
		}
	}
	if err := validateKey(name, opts.CheckKeys); err != nil {
		return 0, errors.WithMessagef(err, "at %v", path)
	}

	if val == nil {
		return writeTagName(buf, offset, tagNull, name), nil
	}
	rv := reflect.ValueOf(val)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return writeTagName(buf, offset, tagNull, name), nil
	}

	switch vt := val.(type) {
	case Double:
		offset = writeTagName(buf, offset, tagDouble, name)
		return writeDouble(buf, offset, vt.Value), nil
	case string:
		offset = writeTagName(buf, offset, tagString, name)
		return writeString(buf, offset, vt, path)
	case Map:
		offset = writeTagName(buf, offset, tagEmbeddedDocument, name)
		return c.writeDocument(buf, offset, vt, opts, path)
	case Document:
		offset = writeTagName(buf, offset, tagEmbeddedDocument, name)
		return c.writeDocument(buf, offset, vt, opts, path)
	case Array:
		offset = writeTagName(buf, offset, tagArray, name)
		return c.writeArray(buf, offset, vt, opts, path)
	case Binary:
		offset = writeTagName(buf, offset, tagBinary, name)
		return writeBinary(buf, offset, vt.Bytes(), vt.SubType), nil
	case []byte:
		offset = writeTagName(buf, offset, tagBinary, name)
		return writeBinary(buf, offset, vt, BinarySubtypeDefault), nil
	case ObjectID:
		offset = writeTagName(buf, offset, tagObjectID, name)
		n := copy(buf[offset:], vt.ID[:])
		return offset + n, nil
	case bool:
		offset = writeTagName(buf, offset, tagBoolean, name)
		return writeBool(buf, offset, vt), nil
	case DateTime:
		offset = writeTagName(buf, offset, tagUTCDateTime, name)
		return writeInt64(buf, offset, int64(vt)), nil
	case time.Time:
		offset = writeTagName(buf, offset, tagUTCDateTime, name)
		return writeInt64(buf, offset, vt.UnixMilli()), nil
	case Null:
		return writeTagName(buf, offset, tagNull, name), nil
	case Regex:
		offset = writeTagName(buf, offset, tagRegexp, name)
		offset, err := writeCstring(buf, offset, vt.Pattern, path)
		if err != nil {
			return 0, err
		}
		return writeCstring(buf, offset, canonicalRegexOptions(vt.Options), path)
	case Code:
		return c.writeCode(buf, offset, name, vt, opts, path)
	case Symbol:
		offset = writeTagName(buf, offset, tagSymbol, name)
		return writeString(buf, offset, vt.Value, path)
	case int8:
		offset = writeTagName(buf, offset, tagInt32, name)
		return writeInt32(buf, offset, int32(vt)), nil
	case int16:
		offset = writeTagName(buf, offset, tagInt32, name)
		return writeInt32(buf, offset, int32(vt)), nil
	case int32:
		offset = writeTagName(buf, offset, tagInt32, name)
		return writeInt32(buf, offset, vt), nil
	case int:
		return writeIntegral(buf, offset, name, int64(vt)), nil
	case int64:
		return writeIntegral(buf, offset, name, vt), nil
	case float32:
		return writeFloat(buf, offset, name, float64(vt)), nil
	case float64:
		return writeFloat(buf, offset, name, vt), nil
	case Timestamp:
		offset = writeTagName(buf, offset, tagTimestamp, name)
		binary.LittleEndian.PutUint32(buf[offset:], uint32(vt.Low))
		binary.LittleEndian.PutUint32(buf[offset+4:], uint32(vt.High))
		return offset + 8, nil
	case Long:
		offset = writeTagName(buf, offset, tagInt64, name)
		return writeInt64(buf, offset, vt.Value()), nil
	case DBRef:
		offset = writeTagName(buf, offset, tagEmbeddedDocument, name)
		return c.writeDBRef(buf, offset, vt, opts, path)
	case MinKey:
		return writeTagName(buf, offset, tagMinKey, name), nil
	case MaxKey:
		return writeTagName(buf, offset, tagMaxKey, name), nil
	}

	// Reflective fallback for named/derived kinds, mirroring payloadSize's
	// own fallback in size.go.
	switch rv.Kind() {
	case reflect.Bool:
		offset = writeTagName(buf, offset, tagBoolean, name)
		return writeBool(buf, offset, rv.Bool()), nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		offset = writeTagName(buf, offset, tagInt32, name)
		return writeInt32(buf, offset, int32(rv.Int())), nil
	case reflect.Int, reflect.Int64:
		return writeIntegral(buf, offset, name, rv.Int()), nil
	case reflect.Float32, reflect.Float64:
		return writeFloat(buf, offset, name, rv.Float()), nil
	case reflect.String:
		offset = writeTagName(buf, offset, tagString, name)
		return writeString(buf, offset, rv.String(), path)
	case reflect.Slice, reflect.Array:
		arr := make(Array, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}
		offset = writeTagName(buf, offset, tagArray, name)
		return c.writeArray(buf, offset, arr, opts, path)
	}

	return 0, errors.Wrapf(ErrUnsupportedValue, "%v: cannot encode %T", path, val)
}

// writeIntegral writes a native Go integer, promoting to Int64 only when
// it doesn't fit Int32. This bypasses the "float never promotes past
// Double" rule below — Go's int/int64 are exact, unlike a floating-point
// host number, which can't represent every int64 value precisely.
func writeIntegral(buf []byte, offset int, name string, v int64) int {
	if fitsInt32(v) {
		offset = writeTagName(buf, offset, tagInt32, name)
		return writeInt32(buf, offset, int32(v))
	}
	offset = writeTagName(buf, offset, tagInt64, name)
	return writeInt64(buf, offset, v)
}

// writeFloat implements the numeric promotion rule for a host
// floating-point number: non-integral emits Double; integral emits Int32
// if it fits, otherwise Double (never Int64).
func writeFloat(buf []byte, offset int, name string, f float64) int {
	if f != float64(int64(f)) {
		offset = writeTagName(buf, offset, tagDouble, name)
		return writeDouble(buf, offset, f)
	}
	if fitsInt32(int64(f)) {
		offset = writeTagName(buf, offset, tagInt32, name)
		return writeInt32(buf, offset, int32(int64(f)))
	}
	offset = writeTagName(buf, offset, tagDouble, name)
	return writeDouble(buf, offset, f)
}

// writeArray writes val as a BSON array document, whose field names are
// the ascending decimal indices "0","1",….
func (c *Codec) writeArray(buf []byte, offset int, val Array, opts EncodeOptions, path string) (int, error) {
	lengthPos := offset
	cursor := offset + 4
	for i, v := range val {
		name := strconv.Itoa(i)
		next, err := c.writeElement(buf, cursor, catpath(path, name), name, v, opts)
		if err != nil {
			return 0, err
		}
		cursor = next
	}
	buf[cursor] = 0x00
	cursor++
	binary.LittleEndian.PutUint32(buf[lengthPos:], uint32(cursor-lengthPos))
	return cursor, nil
}

// writeCode writes a Code value: tag 0x0D (plain) if Scope is empty, tag
// 0x0F (code-with-scope) otherwise.
func (c *Codec) writeCode(buf []byte, offset int, name string, code Code, opts EncodeOptions, path string) (int, error) {
	if len(code.Scope) == 0 {
		offset = writeTagName(buf, offset, tagCode, name)
		return writeString(buf, offset, code.Source, path)
	}
	offset = writeTagName(buf, offset, tagCodeWithScope, name)
	lengthPos := offset
	cursor := offset + 4
	cursor, err := writeString(buf, cursor, code.Source, path)
	if err != nil {
		return 0, err
	}
	cursor, err = c.writeDocument(buf, cursor, code.Scope, opts, catpath(path, "$scope"))
	if err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(buf[lengthPos:], uint32(cursor-lengthPos))
	return cursor, nil
}

// writeDBRef writes the {$ref, $id, [$db]} projection of a DBRef. The
// projected keys are fixed and internally generated, so they bypass
// CheckKeys regardless of the caller's option — strict-key mode guards
// against a caller's own '$'-prefixed input, not against this package's
// own DBRef convention.
func (c *Codec) writeDBRef(buf []byte, offset int, ref DBRef, opts EncodeOptions, path string) (int, error) {
	lengthPos := offset
	cursor := offset + 4

	unchecked := opts
	unchecked.CheckKeys = false

	var err error
	cursor, err = c.writeElement(buf, cursor, catpath(path, keyDBRefRef), keyDBRefRef, ref.Namespace, unchecked)
	if err != nil {
		return 0, err
	}
	cursor, err = c.writeElement(buf, cursor, catpath(path, keyDBRefID), keyDBRefID, ref.OID, unchecked)
	if err != nil {
		return 0, err
	}
	if ref.HasDB {
		cursor, err = c.writeElement(buf, cursor, catpath(path, keyDBRefDB), keyDBRefDB, ref.DB, unchecked)
		if err != nil {
			return 0, err
		}
	}

	buf[cursor] = 0x00
	cursor++
	binary.LittleEndian.PutUint32(buf[lengthPos:], uint32(cursor-lengthPos))
	return cursor, nil
}

// writeTagName writes the 1-byte type tag and the cstring field name,
// returning the offset just past them. The name has already passed
// validateKey, so it needs no further validation here.
func writeTagName(buf []byte, offset int, tag byte, name string) int {
	buf[offset] = tag
	offset++
	n := copy(buf[offset:], name)
	offset += n
	buf[offset] = 0x00
	return offset + 1
}

// writeCstring writes a bare cstring (not a full element): bytes + NUL.
func writeCstring(buf []byte, offset int, s string, path string) (int, error) {
	if err := validateUTF8(s); err != nil {
		return 0, errors.WithMessagef(err, "at %v", path)
	}
	n := copy(buf[offset:], s)
	offset += n
	buf[offset] = 0x00
	return offset + 1, nil
}

// writeString writes a BSON String payload: int32 length (UTF-8 bytes + 1
// for the trailing NUL), the bytes, then the NUL.
func writeString(buf []byte, offset int, s string, path string) (int, error) {
	if err := validateUTF8(s); err != nil {
		return 0, errors.WithMessagef(err, "at %v", path)
	}
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(s)+1))
	offset += 4
	n := copy(buf[offset:], s)
	offset += n
	buf[offset] = 0x00
	return offset + 1, nil
}

// writeBinary writes a Binary payload: int32 length + 1-byte subtype +
// raw bytes.
func writeBinary(buf []byte, offset int, data []byte, subtype byte) int {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(data)))
	offset += 4
	buf[offset] = subtype
	offset++
	n := copy(buf[offset:], data)
	return offset + n
}

// writeBool writes a 1-byte BSON boolean.
func writeBool(buf []byte, offset int, v bool) int {
	if v {
		buf[offset] = 0x01
	} else {
		buf[offset] = 0x00
	}
	return offset + 1
}

// writeInt32 writes a little-endian int32.
func writeInt32(buf []byte, offset int, v int32) int {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(v))
	return offset + 4
}

// writeInt64 writes a little-endian int64.
func writeInt64(buf []byte, offset int, v int64) int {
	binary.LittleEndian.PutUint64(buf[offset:], uint64(v))
	return offset + 8
}

// writeDouble writes a little-endian IEEE-754 double.
func writeDouble(buf []byte, offset int, f float64) int {
	binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(f))
	return offset + 8
}
