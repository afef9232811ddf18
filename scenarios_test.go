package bson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioEmptyDocument is the canonical 5-byte empty document.
func TestScenarioEmptyDocument(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Map{}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x00}, buf)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	assert.Empty(t, doc)
}

// TestScenarioSingleString is {"hello": "world"}, the textbook 22-byte
// example.
func TestScenarioSingleString(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "hello", Value: "world"}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Len(t, buf, 22)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	v, _ := doc.Get("hello")
	assert.Equal(t, "world", v)
}

// TestScenarioIntPromotionSmall: an int that fits Int32 round-trips
// through the Int32 wire tag.
func TestScenarioIntPromotionSmall(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "n", Value: 42}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagInt32), buf[4])

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	v, _ := doc.Get("n")
	assert.EqualValues(t, 42, v)
}

// TestScenarioIntPromotionLarge: an int beyond Int32's range round-trips
// through the Int64 wire tag.
func TestScenarioIntPromotionLarge(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "n", Value: 5000000000}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagInt64), buf[4])

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	v, _ := doc.Get("n")
	assert.EqualValues(t, 5000000000, v)
}

// TestScenarioNestedArray: {"a": [1, 2]}.
func TestScenarioNestedArray(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{{Key: "a", Value: Array{int32(1), int32(2)}}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(tagArray), buf[4])

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	v, _ := doc.Get("a")
	assert.Equal(t, Array{int32(1), int32(2)}, v)
}

// TestScenarioObjectIDRoundTrip.
func TestScenarioObjectIDRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	id, err := NewObjectIDFromBytes([]byte{0x5f, 0x1d, 0x2a, 0x3b, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77})
	require.NoError(t, err)
	buf, err := c.Serialize(Document{{Key: "_id", Value: id}}, EncodeOptions{})
	require.NoError(t, err)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	v, _ := doc.Get("_id")
	assert.Equal(t, id, v)
}

// TestScenarioDBRefProjection.
func TestScenarioDBRefProjection(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	ref := DBRef{Namespace: "authors", OID: ObjectID{ID: [12]byte{1, 2, 3}}, DB: "library", HasDB: true}
	buf, err := c.Serialize(Document{{Key: "author", Value: ref}}, EncodeOptions{})
	require.NoError(t, err)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	inner, _ := doc.Get("author")
	assert.Equal(t, ref, inner)
}

// TestScenarioCodeWithScope.
func TestScenarioCodeWithScope(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	code := Code{Source: "return this.x > bound;", Scope: Map{"bound": int32(10)}}
	buf, err := c.Serialize(Document{{Key: "$where", Value: code}}, EncodeOptions{})
	require.NoError(t, err)

	doc, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	v, _ := doc.Get("$where")
	got := v.(Code)
	assert.Equal(t, code.Source, got.Source)
	assert.Equal(t, code.Scope["bound"], got.Scope["bound"])
}

// TestScenarioBatchedParse concatenates the empty-document, single-string
// and small-int-promotion scenarios and parses them in one
// DeserializeStream call.
func TestScenarioBatchedParse(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	empty, err := c.Serialize(Map{}, EncodeOptions{})
	require.NoError(t, err)
	str, err := c.Serialize(Document{{Key: "hello", Value: "world"}}, EncodeOptions{})
	require.NoError(t, err)
	num, err := c.Serialize(Document{{Key: "n", Value: 42}}, EncodeOptions{})
	require.NoError(t, err)

	var buf []byte
	buf = append(buf, empty...)
	buf = append(buf, str...)
	buf = append(buf, num...)

	docs, end, err := c.DeserializeStream(buf, 0, 0, nil, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(buf), end)
	require.Len(t, docs, 3)
	assert.Empty(t, docs[0])
	v, _ := docs[1].Get("hello")
	assert.Equal(t, "world", v)
	v, _ = docs[2].Get("n")
	assert.EqualValues(t, 42, v)
}

// TestInvariantSizeExactness: CalculateSize always predicts Serialize's
// exact output length.
func TestInvariantSizeExactness(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	docs := []Document{
		{},
		{{Key: "a", Value: "b"}},
		{{Key: "n", Value: 5000000000}},
		{{Key: "arr", Value: Array{1, "x", true, nil}}},
		{{Key: "sub", Value: Map{"x": 1.5}}},
	}
	for _, doc := range docs {
		size := c.CalculateSize(doc, SizeOptions{})
		buf, err := c.Serialize(doc, EncodeOptions{})
		require.NoError(t, err)
		assert.Equal(t, size, len(buf))
	}
}

// TestInvariantLengthPrefixSelfConsistency: every document and embedded
// document's length prefix equals the byte range it actually spans.
func TestInvariantLengthPrefixSelfConsistency(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	buf, err := c.Serialize(Document{
		{Key: "sub", Value: Map{"nested": Map{"deep": true}}},
	}, EncodeOptions{})
	require.NoError(t, err)

	// Re-parsing end-to-end without a LengthMismatch error is itself the
	// self-consistency check, since Deserialize compares the outer
	// length prefix to len(buf) and readDocument compares every embedded
	// document's prefix to its own terminator position.
	_, err = c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
}

// TestInvariantOrderPreservation: Document field order survives a
// round trip exactly, even when it is not alphabetical.
func TestInvariantOrderPreservation(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	doc := Document{
		{Key: "z", Value: 1},
		{Key: "a", Value: 2},
		{Key: "m", Value: 3},
	}
	buf, err := c.Serialize(doc, EncodeOptions{})
	require.NoError(t, err)

	out, err := c.Deserialize(buf, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "z", out[0].Key)
	assert.Equal(t, "a", out[1].Key)
	assert.Equal(t, "m", out[2].Key)
}

// TestInvariantStrictKeyEnforcement: CheckKeys rejects '$'-prefixed and
// dotted keys but leaves everything else untouched.
func TestInvariantStrictKeyEnforcement(t *testing.T) {
	t.Parallel()

	c := NewDefaultCodec()
	_, err := c.Serialize(Document{{Key: "ok", Value: 1}}, EncodeOptions{CheckKeys: true})
	assert.NoError(t, err)

	_, err = c.Serialize(Document{{Key: "$bad", Value: 1}}, EncodeOptions{CheckKeys: true})
	assert.ErrorIs(t, err, ErrKey)

	_, err = c.Serialize(Document{{Key: "bad.key", Value: 1}}, EncodeOptions{CheckKeys: true})
	assert.ErrorIs(t, err, ErrKey)
}
