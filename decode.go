package bson

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// maxDocLen bounds a single document's declared length, guarding against a
// corrupt or hostile length prefix driving an enormous allocation.
const maxDocLen = 64 * 1024 * 1024

// DecodeOptions controls Deserialize/DeserializeStream.
type DecodeOptions struct {
	// LegacyBinarySubtype2 recognises the old double-length-prefixed
	// encoding of Binary subtype 2. Off by default since no current
	// writer — including this package's own Serialize — emits it.
	LegacyBinarySubtype2 bool
}

// Deserialize decodes buf as a single top-level BSON document. buf must
// contain exactly one document; trailing bytes after the declared length
// are a LengthMismatch, and a declared length past the end of buf is a
// TruncatedInput.
func (c *Codec) Deserialize(buf []byte, opts DecodeOptions) (Document, error) {
	doc, end, err := c.readDocument(buf, 0, opts, "")
	if err != nil {
		return nil, err
	}
	if end != len(buf) {
		return nil, errKeyf(ErrLengthMismatch, "document declares end %d, buffer is %d bytes", end, len(buf))
	}
	return doc, nil
}

// DeserializeStream decodes up to count concatenated documents from
// buf[start:], appending each to out. count <= 0 means "as many as fit".
// It returns the updated slice and the offset just past the last
// document consumed, so a caller can resume a subsequent call at that
// offset once more bytes arrive. opts applies to every document in the
// batch, same as a single Deserialize call.
func (c *Codec) DeserializeStream(buf []byte, start, count int, out []Document, opts DecodeOptions) ([]Document, int, error) {
	pos := start
	for n := 0; (count <= 0 || n < count) && pos < len(buf); n++ {
		doc, end, err := c.readDocument(buf, pos, opts, "")
		if err != nil {
			return out, pos, err
		}
		out = append(out, doc)
		pos = end
	}
	return out, pos, nil
}

// readDocument parses one BSON document starting at offset, returning the
// decoded Document and the offset just past its terminating NUL.
func (c *Codec) readDocument(buf []byte, offset int, opts DecodeOptions, path string) (Document, int, error) {
	if err := ensure(buf, offset, 4); err != nil {
		return nil, 0, errors.WithMessagef(err, "at %v (document length)", path)
	}
	length := int32(binary.LittleEndian.Uint32(buf[offset:]))
	if length < 5 || int64(length) > maxDocLen {
		return nil, 0, errKeyf(ErrCorruptTag, "at %v: implausible document length %d", path, length)
	}
	end := offset + int(length)
	if end > len(buf) {
		return nil, 0, errKeyf(ErrTruncatedInput, "at %v: document declares length %d past end of buffer", path, length)
	}

	cursor := offset + 4
	doc := Document{}
	for {
		if cursor >= end {
			return nil, 0, errKeyf(ErrTruncatedInput, "at %v: missing document terminator", path)
		}
		tag := buf[cursor]
		cursor++
		if tag == 0x00 {
			if cursor != end {
				return nil, 0, errKeyf(ErrLengthMismatch, "at %v: %d trailing bytes after terminator", path, end-cursor)
			}
			return doc, end, nil
		}

		name, next, err := readCstring(buf, cursor, end)
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (field name)", path)
		}
		cursor = next

		val, next, err := c.readValue(buf, cursor, end, tag, opts, catpath(path, name))
		if err != nil {
			return nil, 0, err
		}
		cursor = next
		doc = append(doc, Element{Key: name, Value: val})
	}
}

// readValue dispatches on tag, decoding one element's payload.
func (c *Codec) readValue(buf []byte, offset, end int, tag byte, opts DecodeOptions, path string) (interface{}, int, error) {
	switch tag {
	case tagDouble:
		if err := ensure(buf, offset, 8); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (double)", path)
		}
		bits := binary.LittleEndian.Uint64(buf[offset:])
		return math.Float64frombits(bits), offset + 8, nil

	case tagString:
		return readString(buf, offset, end, path)

	case tagEmbeddedDocument:
		doc, next, err := c.readDocument(buf, offset, opts, path)
		if err != nil {
			return nil, 0, err
		}
		if ref, ok := asDBRef(c.registry, doc); ok {
			return ref, next, nil
		}
		return doc, next, nil

	case tagArray:
		doc, next, err := c.readDocument(buf, offset, opts, path)
		if err != nil {
			return nil, 0, err
		}
		arr := make(Array, len(doc))
		for i, el := range doc {
			arr[i] = el.Value
		}
		return arr, next, nil

	case tagBinary:
		return c.readBinary(buf, offset, end, opts, path)

	case tagObjectID:
		if err := ensure(buf, offset, 12); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (objectid)", path)
		}
		var id [12]byte
		copy(id[:], buf[offset:offset+12])
		return c.registry.NewObjectID(id), offset + 12, nil

	case tagBoolean:
		if err := ensure(buf, offset, 1); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (bool)", path)
		}
		return buf[offset] == 0x01, offset + 1, nil

	case tagUTCDateTime:
		if err := ensure(buf, offset, 8); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (datetime)", path)
		}
		return DateTime(int64(binary.LittleEndian.Uint64(buf[offset:]))), offset + 8, nil

	case tagNull:
		return nil, offset, nil

	case tagRegexp:
		pattern, next, err := readCstring(buf, offset, end)
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (regex pattern)", path)
		}
		options, next2, err := readCstring(buf, next, end)
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (regex options)", path)
		}
		return Regex{Pattern: pattern, Options: options}, next2, nil

	case tagCode:
		source, next, err := readString(buf, offset, end, path)
		if err != nil {
			return nil, 0, err
		}
		return c.registry.NewCode(source.(string), nil), next, nil

	case tagSymbol:
		value, next, err := readString(buf, offset, end, path)
		if err != nil {
			return nil, 0, err
		}
		return c.registry.NewSymbol(value.(string)), next, nil

	case tagCodeWithScope:
		return c.readCodeWithScope(buf, offset, end, opts, path)

	case tagInt32:
		if err := ensure(buf, offset, 4); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (int32)", path)
		}
		return int32(binary.LittleEndian.Uint32(buf[offset:])), offset + 4, nil

	case tagTimestamp:
		if err := ensure(buf, offset, 8); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (timestamp)", path)
		}
		low := int32(binary.LittleEndian.Uint32(buf[offset:]))
		high := int32(binary.LittleEndian.Uint32(buf[offset+4:]))
		return c.registry.NewTimestamp(low, high), offset + 8, nil

	case tagInt64:
		if err := ensure(buf, offset, 8); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (int64)", path)
		}
		v := int64(binary.LittleEndian.Uint64(buf[offset:]))
		return demoteInt64(c.registry, v), offset + 8, nil

	case tagMinKey:
		return c.registry.NewMinKey(), offset, nil

	case tagMaxKey:
		return c.registry.NewMaxKey(), offset, nil
	}

	return nil, 0, errKeyf(ErrCorruptTag, "at %v: unknown type tag %#x", path, tag)
}

// demoteInt64 chooses the decoded representation of a wire Int64: a
// value whose magnitude fits a float64's 53-bit mantissa decodes to a
// native Go int64 (exact and ergonomic); a larger magnitude — which a
// host restricted to float64 arithmetic could not represent exactly as a
// single number — decodes to the explicit Long carrier instead.
func demoteInt64(r *Registry, v int64) interface{} {
	const limit = int64(1) << 53
	if v >= -limit && v <= limit {
		return v
	}
	long := NewLong(v)
	return r.NewLong(long.Low, long.High)
}

// readCodeWithScope decodes a CodeWithScope element: int32 total length,
// then a string, then a scope document.
func (c *Codec) readCodeWithScope(buf []byte, offset, end int, opts DecodeOptions, path string) (interface{}, int, error) {
	start := offset
	if err := ensure(buf, offset, 4); err != nil {
		return nil, 0, errors.WithMessagef(err, "at %v (code_w_scope length)", path)
	}
	total := int32(binary.LittleEndian.Uint32(buf[offset:]))
	cursor := offset + 4

	sourceVal, next, err := readString(buf, cursor, end, path)
	if err != nil {
		return nil, 0, err
	}
	cursor = next

	scopeDoc, next, err := c.readDocument(buf, cursor, opts, catpath(path, "$scope"))
	if err != nil {
		return nil, 0, err
	}
	cursor = next

	if cursor-start != int(total) {
		return nil, 0, errKeyf(ErrLengthMismatch, "at %v: code_w_scope declares length %d, consumed %d", path, total, cursor-start)
	}
	return c.registry.NewCode(sourceVal.(string), scopeDoc.ToMap()), cursor, nil
}

// readBinary decodes a Binary element: int32 length, 1-byte subtype, then
// that many raw bytes. When subtype is the legacy double-length variant 2
// and opts.LegacyBinarySubtype2 is set, the payload itself opens with a
// redundant inner length that must match length-4.
func (c *Codec) readBinary(buf []byte, offset, end int, opts DecodeOptions, path string) (interface{}, int, error) {
	if err := ensure(buf, offset, 5); err != nil {
		return nil, 0, errors.WithMessagef(err, "at %v (binary)", path)
	}
	length := int32(binary.LittleEndian.Uint32(buf[offset:]))
	subtype := buf[offset+4]
	cursor := offset + 5
	if length < 0 {
		return nil, 0, errKeyf(ErrCorruptTag, "at %v: negative binary length %d", path, length)
	}

	if subtype == BinarySubtypeByteArray && opts.LegacyBinarySubtype2 {
		if err := ensure(buf, cursor, 4); err != nil {
			return nil, 0, errors.WithMessagef(err, "at %v (legacy binary inner length)", path)
		}
		inner := int32(binary.LittleEndian.Uint32(buf[cursor:]))
		if inner != length-4 {
			return nil, 0, errKeyf(ErrLengthMismatch, "at %v: legacy binary inner length %d does not match outer length-4 %d", path, inner, length-4)
		}
		cursor += 4
		length -= 4
	}

	if err := ensure(buf, cursor, int(length)); err != nil {
		return nil, 0, errors.WithMessagef(err, "at %v (binary data)", path)
	}
	data := make([]byte, length)
	copy(data, buf[cursor:cursor+int(length)])
	cursor += int(length)
	return c.registry.NewBinary(data, subtype), cursor, nil
}

// asDBRef recognises the {$ref, $id, [$db]} projection and reconstructs a
// DBRef carrier from it. Any other document shape — including one that
// merely has a field named "$ref" of the wrong type — is left as a plain
// Document.
func asDBRef(r *Registry, doc Document) (DBRef, bool) {
	refVal, ok := doc.Get(keyDBRefRef)
	if !ok {
		return DBRef{}, false
	}
	ref, ok := refVal.(string)
	if !ok {
		return DBRef{}, false
	}
	idVal, ok := doc.Get(keyDBRefID)
	if !ok {
		return DBRef{}, false
	}
	oid, ok := idVal.(ObjectID)
	if !ok {
		return DBRef{}, false
	}
	db, hasDB := doc.Get(keyDBRefDB)
	dbStr, _ := db.(string)
	return r.NewDBRef(ref, oid, dbStr, hasDB), true
}

// ensure reports a TruncatedInput error unless buf has at least n bytes
// available starting at pos.
func ensure(buf []byte, pos, n int) error {
	if pos < 0 || n < 0 || pos+n > len(buf) {
		return errKeyf(ErrTruncatedInput, "need %d bytes at offset %d, have %d", n, pos, len(buf)-pos)
	}
	return nil
}

// readCstring reads a NUL-terminated string starting at pos, not past
// end, returning the string and the offset just past the NUL.
func readCstring(buf []byte, pos, end int) (string, int, error) {
	i := pos
	for i < end && buf[i] != 0x00 {
		i++
	}
	if i >= end {
		return "", 0, errKeyf(ErrBadCString, "missing NUL terminator starting at offset %d", pos)
	}
	s := string(buf[pos:i])
	if err := validateUTF8(s); err != nil {
		return "", 0, err
	}
	return s, i + 1, nil
}

// readString reads a BSON String payload: int32 length (including the
// trailing NUL), the UTF-8 bytes, then the NUL.
func readString(buf []byte, pos, end int, path string) (interface{}, int, error) {
	if err := ensure(buf, pos, 4); err != nil {
		return nil, 0, errors.WithMessagef(err, "at %v (string length)", path)
	}
	length := int32(binary.LittleEndian.Uint32(buf[pos:]))
	if length < 1 {
		return nil, 0, errKeyf(ErrCorruptTag, "at %v: implausible string length %d", path, length)
	}
	dataStart := pos + 4
	dataEnd := dataStart + int(length) - 1
	if dataEnd+1 > end || dataEnd+1 > len(buf) {
		return nil, 0, errKeyf(ErrTruncatedInput, "at %v: string declares length %d past end of document", path, length)
	}
	if buf[dataEnd] != 0x00 {
		return nil, 0, errKeyf(ErrBadCString, "at %v: string missing NUL terminator", path)
	}
	s := string(buf[dataStart:dataEnd])
	if err := validateUTF8(s); err != nil {
		return nil, 0, errors.WithMessagef(err, "at %v", path)
	}
	return s, dataEnd + 1, nil
}
