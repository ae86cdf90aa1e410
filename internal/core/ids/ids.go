// Package ids allocates object identifiers from independent named counters.
package ids

import (
	"strconv"
	"sync"
)

// ObjectID is an opaque identifier. Two ids are equal when their numeric values are.
// Ids are not stable across process restarts and must not be persisted as a key.
type ObjectID uint64

// Zero is never handed out by an Allocator.
const Zero ObjectID = 0

func (id ObjectID) IsZero() bool {
	return id == Zero
}

func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Space names one counter.
type Space string

const (
	Global Space = "global"
	Scene  Space = "scene"
	Action Space = "action"
)

// Allocator hands out monotonically increasing ids per Space. It is owned by the
// session root and injected where needed; tests build their own.
type Allocator struct {
	mu       sync.Mutex
	counters map[Space]uint64
}

func NewAllocator() *Allocator {
	return &Allocator{counters: make(map[Space]uint64)}
}

// Next returns the next id in space. The first id of every space is 1.
func (a *Allocator) Next(space Space) ObjectID {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counters[space]++
	return ObjectID(a.counters[space])
}

// Peek returns the last id handed out in space, or Zero.
func (a *Allocator) Peek(space Space) ObjectID {
	a.mu.Lock()
	defer a.mu.Unlock()

	return ObjectID(a.counters[space])
}
