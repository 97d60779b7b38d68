package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpQueuePushPopFIFO(t *testing.T) {
	q := newOpQueue(4)
	assert.Equal(t, 0, q.size())
	assert.Nil(t, q.front())

	q.push(Operation{Key: "a"})
	q.push(Operation{Key: "b"})
	assert.Equal(t, 2, q.size())
	assert.Equal(t, "a", q.front().Key)

	popped := q.pop()
	assert.Equal(t, "a", popped.Key)
	assert.Equal(t, 1, q.size())
	assert.Equal(t, "b", q.front().Key)

	q.pop()
	assert.Equal(t, 0, q.size())
	assert.Nil(t, q.front())
}

func TestOperationDone(t *testing.T) {
	op := Operation{StartTime: 1.0}
	assert.False(t, op.Done())
	op.EndTime = 1.5
	assert.True(t, op.Done())
}
