package bson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapReachNested(t *testing.T) {
	t.Parallel()

	doc := Map{
		"foo": Map{
			"bar": true,
		},
	}
	var dst bool
	ok, err := doc.Reach(&dst, "foo", "bar")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, dst)
}

func TestMapReachMissing(t *testing.T) {
	t.Parallel()

	doc := Map{"foo": Map{}}
	var dst bool
	ok, err := doc.Reach(&dst, "foo", "bar")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapReachTypeMismatchErrors(t *testing.T) {
	t.Parallel()

	doc := Map{"n": "not a number"}
	var dst int64
	_, err := doc.Reach(&dst, "n")
	require.Error(t, err)
}

func TestDocumentReachNested(t *testing.T) {
	t.Parallel()

	doc := Document{
		{Key: "foo", Value: Document{
			{Key: "bar", Value: "baz"},
		}},
	}
	var dst string
	ok, err := doc.Reach(&dst, "foo", "bar")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "baz", dst)
}

func TestReachIntoRegexFields(t *testing.T) {
	t.Parallel()

	doc := Map{"r": Regex{Pattern: "^a", Options: "i"}}
	var pattern string
	ok, err := doc.Reach(&pattern, "r", "Pattern")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "^a", pattern)
}

func TestReachRejectsNilDestination(t *testing.T) {
	t.Parallel()

	doc := Map{"foo": true}
	_, err := doc.Reach(nil, "foo")
	require.Error(t, err)
}
