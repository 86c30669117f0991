package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/block"
)

func queued(kind block.Kind, value float64) *block.Block {
	return &block.Block{State: block.State{Kind: kind, Value: value}}
}

func TestBlockQueue_Order(t *testing.T) {
	q := newBlockQueue()
	low := queued(block.USCORE, 0.2)
	firstU := queued(block.USCORE, 0.8)
	b := queued(block.BSCORE, 0.8)
	secondU := queued(block.USCORE, 0.8)
	high := queued(block.BSCORE, 0.9)

	for _, x := range []*block.Block{low, firstU, b, secondU, high} {
		q.Push(x)
	}
	require.Equal(t, 5, q.Len())
	assert.Same(t, high, q.Peek())

	var got []*block.Block
	for q.Len() > 0 {
		got = append(got, q.Pop())
	}
	assert.Equal(t, []*block.Block{high, b, firstU, secondU, low}, got)
}

func TestBlockQueue_Empty(t *testing.T) {
	q := newBlockQueue()

	assert.Nil(t, q.Peek())
	assert.Nil(t, q.Pop())
	assert.Equal(t, 0, q.Len())
}

func TestBlockQueue_RequeueAfterStateChange(t *testing.T) {
	q := newBlockQueue()
	a := queued(block.USCORE, 0.9)
	other := queued(block.USCORE, 0.5)
	q.Push(a)
	q.Push(other)

	popped := q.Pop()
	require.Same(t, a, popped)
	st, err := popped.State.Tighten(0.4)
	require.NoError(t, err)
	popped.State = st
	q.Push(popped)

	assert.Same(t, other, q.Pop())
	assert.Same(t, a, q.Pop())
}
