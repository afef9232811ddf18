package bson

// Wire type tags, one byte preceding each element's name/payload.
const (
	tagDouble          = 0x01
	tagString          = 0x02
	tagEmbeddedDocument = 0x03
	tagArray           = 0x04
	tagBinary          = 0x05
	tagObjectID        = 0x07
	tagBoolean         = 0x08
	tagUTCDateTime     = 0x09
	tagNull            = 0x0A
	tagRegexp          = 0x0B
	tagCode            = 0x0D
	tagSymbol          = 0x0E
	tagCodeWithScope   = 0x0F
	tagInt32           = 0x10
	tagTimestamp       = 0x11
	tagInt64           = 0x12
	tagMinKey          = 0xFF
	tagMaxKey          = 0x7F
)

// Binary subtype constants. Opaque to the codec beyond being
// written/read verbatim; masked with 0xFF on read.
const (
	BinarySubtypeDefault     byte = 0x00
	BinarySubtypeFunction    byte = 0x01
	BinarySubtypeByteArray   byte = 0x02
	BinarySubtypeUUID        byte = 0x03
	BinarySubtypeMD5         byte = 0x04
	BinarySubtypeUserDefined byte = 0x80
)

// Array is the host value for a BSON array: an ordered, dense sequence of
// values, encoded as a document with decimal-string keys "0","1",….
type Array []interface{}

// Double is the Double carrier (tag 0x01). Present alongside native
// float64 so a caller can force Double encoding for an otherwise-integral
// value (the codec itself never needs this — see EncodeOptions and
// size.go/encode.go's numeric dispatch — but round-tripping a value that
// arrived as a Double carrier should re-emit it as Double).
type Double struct {
	Value float64
}

// ObjectID is the ObjectID carrier (tag 0x07): 12 raw, opaque bytes.
type ObjectID struct {
	ID [12]byte
}

// NewObjectIDFromBytes builds an ObjectID from a raw 12-byte slice.
func NewObjectIDFromBytes(b []byte) (ObjectID, error) {
	var oid ObjectID
	if len(b) != 12 {
		return oid, errKeyf(ErrOverflow, "ObjectID must be 12 bytes, got %d", len(b))
	}
	copy(oid.ID[:], b)
	return oid, nil
}

// Binary is the Binary carrier (tag 0x05). Buffer is the raw allocation;
// Position is the logical length actually valid and is what gets
// encoded — the two are deliberately distinct, so a caller can reuse a
// larger backing array without reslicing it first. SubType is the
// 1-byte subtype tag.
type Binary struct {
	Buffer   []byte
	Position int
	SubType  byte
}

// NewBinary builds a Binary carrier whose logical length equals the full
// buffer (the common case).
func NewBinary(buf []byte, subtype byte) Binary {
	return Binary{Buffer: buf, Position: len(buf), SubType: subtype}
}

// Bytes returns the logically-valid prefix of Buffer (length Position,
// or all of Buffer when Position exceeds its length), which is exactly
// what the encoder writes.
func (b Binary) Bytes() []byte {
	if b.Position >= len(b.Buffer) {
		return b.Buffer
	}
	return b.Buffer[:b.Position]
}

// DateTime is the UTC datetime carrier (tag 0x09): milliseconds since the
// Unix epoch.
type DateTime int64

// Null is the Null carrier (tag 0x0A). Value is ignored.
type Null struct{}

// Regex is the Regular Expression carrier (tag 0x0B).
type Regex struct {
	Pattern string
	Options string
}

// Code is the JavaScript-code carrier (tag 0x0D, or 0x0F with a non-empty
// Scope). Scope nil or an empty Map encodes as plain Code (0x0D); a
// non-empty Scope encodes as Code-with-scope (0x0F).
type Code struct {
	Source string
	Scope  Map
}

// Symbol is the Symbol carrier (tag 0x0E).
type Symbol struct {
	Value string
}

// Timestamp is the internal MongoDB replication timestamp carrier (tag
// 0x11): identical wire layout to Long (low int32 + high int32), distinct
// type only because its carrier identity differs.
type Timestamp struct {
	Low, High int32
}

// Long is the explicit 64-bit integer carrier (tag 0x12), split into two
// signed 32-bit halves, mirroring how a host whose only integer type is
// 32 bits would represent a wider value. Value combines the halves:
// low contributes the unsigned low 32 bits, high contributes the signed
// high 32 bits.
type Long struct {
	Low, High int32
}

// Value returns the combined signed 64-bit integer this Long represents.
func (l Long) Value() int64 {
	return int64(uint32(l.Low)) | int64(l.High)<<32
}

// NewLong splits a signed 64-bit integer into its Long carrier halves.
func NewLong(v int64) Long {
	return Long{Low: int32(uint32(v)), High: int32(v >> 32)}
}

// DBRef is the DBRef carrier: not a wire tag of its own — it projects
// onto an ordinary embedded document ($ref, $id, optionally $db).
type DBRef struct {
	Namespace string
	OID       ObjectID
	DB        string
	HasDB     bool
}

// MinKey is the MinKey carrier (tag 0xFF). Identity only.
type MinKey struct{}

// MaxKey is the MaxKey carrier (tag 0x7F). Identity only.
type MaxKey struct{}
