package models

// Iterator walks a snapshot taken when it was created, so the store may be
// mutated while iterating.
type Iterator[T any] interface {
	Next() bool
	Item() T
	Error() error
	Close() error
	ToSlice() []T
	Count() int
}

type sliceIterator[T any] struct {
	items []T
	pos   int
}

// NewSliceIterator iterates items, which the iterator takes ownership of.
func NewSliceIterator[T any](items []T) Iterator[T] {
	return &sliceIterator[T]{items: items, pos: -1}
}

func (it *sliceIterator[T]) Next() bool {
	if it.pos+1 >= len(it.items) {
		it.pos = len(it.items)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator[T]) Item() T {
	if it.pos < 0 || it.pos >= len(it.items) {
		var zero T
		return zero
	}
	return it.items[it.pos]
}

func (it *sliceIterator[T]) Error() error { return nil }

func (it *sliceIterator[T]) Close() error {
	it.pos = len(it.items)
	return nil
}

// ToSlice returns the items not consumed yet.
func (it *sliceIterator[T]) ToSlice() []T {
	start := it.pos + 1
	if start > len(it.items) {
		start = len(it.items)
	}
	return append([]T(nil), it.items[start:]...)
}

func (it *sliceIterator[T]) Count() int { return len(it.items) }
