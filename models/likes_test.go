package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikesToggle(t *testing.T) {
	l := Likes{}
	assert.True(t, l.Toggle("u1"))
	assert.True(t, l.Has("u1"))
	assert.Equal(t, 1, l.Count())

	assert.False(t, l.Toggle("u1"))
	assert.False(t, l.Has("u1"))
	_, present := l["u1"]
	assert.False(t, present, "unliking removes the key")
	assert.Equal(t, 0, l.Count())
}

func TestLikesClone(t *testing.T) {
	var nilLikes Likes
	assert.NotNil(t, nilLikes.Clone())

	src := Likes{"a": true, "b": false}
	c := src.Clone()
	assert.Equal(t, Likes{"a": true}, c)
	c.Toggle("z")
	assert.False(t, src.Has("z"))
}

func TestLikesColumn(t *testing.T) {
	v, err := Likes(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	v, err = Likes{"u1": true}.Value()
	require.NoError(t, err)

	var back Likes
	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, Likes{"u1": true}, back)

	require.NoError(t, back.Scan(nil))
	assert.Equal(t, Likes{}, back)
	assert.Error(t, back.Scan(42))
}

func TestStringListColumn(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var list StringList
	require.NoError(t, list.Scan(`["b","a"]`))
	assert.Equal(t, StringList{"b", "a"}, list)
	assert.True(t, list.Contains("a"))
	assert.False(t, list.Contains("c"))
	assert.Error(t, list.Scan("not json"))
}
