package bson

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeEmptyDocument(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Map{}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x00}, buf)
}

func TestSerializeSingleString(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "hello", Value: "world"}}, EncodeOptions{})
	require.NoError(t, err)

	expected := []byte{
		0x16, 0x00, 0x00, 0x00, // total length
		0x02,                                           // string tag
		'h', 'e', 'l', 'l', 'o', 0x00, // e_name
		0x06, 0x00, 0x00, 0x00, // string length
		'w', 'o', 'r', 'l', 'd', 0x00, // string value
		0x00, // terminator
	}
	assert.Equal(t, expected, buf)
}

func TestSerializeCheckKeysRejectsDollarPrefix(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	_, err := c.Serialize(Document{{Key: "$where", Value: 1}}, EncodeOptions{CheckKeys: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKey)
}

func TestSerializeCheckKeysRejectsDot(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	_, err := c.Serialize(Document{{Key: "a.b", Value: 1}}, EncodeOptions{CheckKeys: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKey)
}

func TestSerializeCheckKeysOffByDefault(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	_, err := c.Serialize(Document{{Key: "$where", Value: 1}}, EncodeOptions{})
	assert.NoError(t, err)
}

func TestSerializeFunctionExcludedByDefault(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "fn", Value: func() {}}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x00}, buf)
}

func TestSerializeFunctionErrorsWhenOptedIn(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	_, err := c.Serialize(Document{{Key: "fn", Value: func() {}}}, EncodeOptions{SerializeFunctions: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestSerializeIntPromotion(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()

	small, err := c.Serialize(Document{{Key: "n", Value: 42}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagInt32), small[4])

	big, err := c.Serialize(Document{{Key: "n", Value: 5000000000}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagInt64), big[4])
}

func TestSerializeFloatNeverPromotesToInt64(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "n", Value: float64(5000000000)}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagDouble), buf[4])
}

func TestSerializeNilIsNull(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "n", Value: nil}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagNull), buf[4])
}

func TestSerializeRegexCanonicalFlagOrder(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "r", Value: Regex{Pattern: "^a", Options: "xsmi"}}}, EncodeOptions{})
	require.NoError(t, err)

	// tag(1) + "r\x00"(2) + pattern "^a\x00"(3) = offset 6 for options.
	optionsStart := 4 + 1 + 2 + 3
	nul := optionsStart
	for buf[nul] != 0x00 {
		nul++
	}
	assert.Equal(t, "imsx", string(buf[optionsStart:nul]))
}

func TestSerializeObjectID(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	var id [12]byte
	for i := range id {
		id[i] = byte(i)
	}
	buf, err := c.Serialize(Document{{Key: "_id", Value: ObjectID{ID: id}}}, EncodeOptions{})
	require.NoError(t, err)
	payloadStart := 4 + 1 + len("_id") + 1
	assert.Equal(t, id[:], buf[payloadStart:payloadStart+12])
}

func TestSerializeCodeWithoutScope(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "f", Value: Code{Source: "return 1;"}}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagCode), buf[4])
}

func TestSerializeCodeWithScope(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	code := Code{Source: "return x;", Scope: Map{"x": int32(1)}}
	buf, err := c.Serialize(Document{{Key: "f", Value: code}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagCodeWithScope), buf[4])
}

func TestSerializeDBRefProjection(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	ref := DBRef{Namespace: "users", OID: ObjectID{}, DB: "mydb", HasDB: true}
	buf, err := c.Serialize(Document{{Key: "author", Value: ref}}, EncodeOptions{CheckKeys: true})
	require.NoError(t, err, "DBRef's $-prefixed projected keys must bypass CheckKeys")

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	got, ok := doc.Get("author")
	require.True(t, ok)
	gotRef, ok := got.(DBRef)
	require.True(t, ok)
	assert.Equal(t, ref, gotRef)
}

func TestSerializeDBRefWithoutDB(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	ref := DBRef{Namespace: "users", OID: ObjectID{}}
	buf, err := c.Serialize(Document{{Key: "author", Value: ref}}, EncodeOptions{})
	require.NoError(t, err)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	got, _ := doc.Get("author")
	gotRef := got.(DBRef)
	assert.False(t, gotRef.HasDB)
	assert.Equal(t, "", gotRef.DB)
}

func TestSerializeWithBufferAndIndexAtOffset(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	doc := Document{{Key: "a", Value: int32(1)}}
	size := c.CalculateSize(doc, SizeOptions{})

	buf := make([]byte, 10+size)
	last, err := c.SerializeWithBufferAndIndex(doc, buf, 10, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10+size-1, last)

	length := int32(binary.LittleEndian.Uint32(buf[10:]))
	assert.Equal(t, int32(size), length)
}

func TestSerializeInvalidUTF8(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	_, err := c.Serialize(Document{{Key: "s", Value: string([]byte{0xff, 0xfe})}}, EncodeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestSerializeArrayOrder(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "a", Value: Array{"x", "y", "z"}}}, EncodeOptions{})
	require.NoError(t, err)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	got, _ := doc.Get("a")
	assert.Equal(t, Array{"x", "y", "z"}, got)
}
