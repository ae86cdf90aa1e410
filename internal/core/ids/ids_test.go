package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorSpacesAreIndependent(t *testing.T) {
	alloc := NewAllocator()

	assert.Equal(t, ObjectID(1), alloc.Next(Global))
	assert.Equal(t, ObjectID(2), alloc.Next(Global))
	assert.Equal(t, ObjectID(1), alloc.Next(Scene))
	assert.Equal(t, ObjectID(1), alloc.Next(Action))
	assert.Equal(t, ObjectID(3), alloc.Next(Global))

	assert.Equal(t, ObjectID(3), alloc.Peek(Global))
	assert.Equal(t, ObjectID(1), alloc.Peek(Scene))
}

func TestAllocatorsDoNotShareState(t *testing.T) {
	a, b := NewAllocator(), NewAllocator()
	a.Next(Global)
	a.Next(Global)

	assert.Equal(t, ObjectID(1), b.Next(Global))
	assert.Equal(t, "2", a.Peek(Global).String())
	assert.True(t, Zero.IsZero())
}
