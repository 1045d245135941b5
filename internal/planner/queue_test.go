package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueuePopsLowestFirst(t *testing.T) {
	q := NewPriorityQueue[string]()
	q.Push("c", 3)
	q.Push("a", 1)
	q.Push("b", 2)

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestPriorityQueueBreaksTiesByInsertionOrder(t *testing.T) {
	q := NewPriorityQueue[int]()
	for i := 0; i < 10; i++ {
		q.Push(i, 5)
	}
	for i := 0; i < 10; i++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
}

func TestPriorityQueuePeekDoesNotRemove(t *testing.T) {
	q := NewPriorityQueue[string]()
	q.Push("only", 1)

	got, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "only", got)
	assert.Equal(t, 1, q.Len())
}
