package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_SetExpectedFields(t *testing.T) {
	assert.Equal(t, Request{Kind: KindGet, Key: []byte("k")}, Get([]byte("k")))
	assert.Equal(t, Request{Kind: KindListKeys}, ListKeys())
	assert.Equal(t, Request{Kind: KindContains, Key: []byte("k")}, Contains([]byte("k")))
	assert.Equal(t, Request{Kind: KindPut, Key: []byte("k"), Value: []byte("v")}, Put([]byte("k"), []byte("v")))
	assert.Equal(t, Request{Kind: KindRemove, Key: []byte("k")}, Remove([]byte("k")))
}

func TestIsWrite(t *testing.T) {
	assert.True(t, Put([]byte("k"), []byte("v")).IsWrite())
	assert.True(t, Remove([]byte("k")).IsWrite())
	assert.False(t, Get([]byte("k")).IsWrite())
	assert.False(t, Contains([]byte("k")).IsWrite())
	assert.False(t, ListKeys().IsWrite())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "get", KindGet.String())
	assert.Equal(t, "list_keys", KindListKeys.String())
	assert.Equal(t, "contains", KindContains.String())
	assert.Equal(t, "put", KindPut.String())
	assert.Equal(t, "remove", KindRemove.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
