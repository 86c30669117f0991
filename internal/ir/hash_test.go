package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkHashDeterminism(t *testing.T) {
	v := IRObject{
		"ts":       IRString("author^{alpha}"),
		"children": IRArray{},
	}

	h1, err := NetworkHash(v)
	require.NoError(t, err)
	h2, err := NetworkHash(IRObject{
		"children": IRArray{},
		"ts":       IRString("author^{alpha}"),
	})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "key order must not affect identity")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestBlockHashChangesWithIndex(t *testing.T) {
	a, err := BlockHash("net", []int{0, 1})
	require.NoError(t, err)
	b, err := BlockHash("net", []int{1, 0})
	require.NoError(t, err)
	c, err := BlockHash("other", []int{0, 1})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"x":1}`)
	assert.NotEqual(t, hashWithDomain(DomainNetwork, data), hashWithDomain(DomainBlock, data))
}
