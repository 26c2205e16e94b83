package registry

import "iter"

// Cursor walks the entries of a container in insertion order.
//
// The name order is copied when the cursor is created; each call to Next
// resolves the next name against the live container. Entries deleted after
// creation are skipped and entries added after creation are not visited, so
// a walk is consistent as of creation time even if the container changes.
//
// A Cursor is one-shot: once Next reports false it stays exhausted. Create a
// new cursor to iterate again.
type Cursor[T any] struct {
	size    int
	pos     int
	resolve func(pos int) (T, bool)
}

func newCursor[T any](names []string, resolve func(name string) (T, bool)) *Cursor[T] {
	return &Cursor[T]{size: len(names), resolve: func(pos int) (T, bool) {
		return resolve(names[pos])
	}}
}

// Next returns the next live entry, or false once the cursor is exhausted.
func (c *Cursor[T]) Next() (T, bool) {
	for c.pos < c.size {
		pos := c.pos
		c.pos++
		if item, ok := c.resolve(pos); ok {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Remaining returns how many names are left to visit. Entries deleted since
// the cursor was created are still counted, so this is an upper bound.
func (c *Cursor[T]) Remaining() int {
	return c.size - c.pos
}

// Done reports whether the cursor has no names left.
func (c *Cursor[T]) Done() bool {
	return c.pos >= c.size
}

// Collect drains the cursor into a slice.
func (c *Cursor[T]) Collect() []T {
	out := make([]T, 0, c.Remaining())
	for item, ok := c.Next(); ok; item, ok = c.Next() {
		out = append(out, item)
	}
	return out
}

// All adapts the cursor to a range-over-func sequence. Breaking out of the
// loop leaves the cursor positioned after the last yielded entry.
func (c *Cursor[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for item, ok := c.Next(); ok; item, ok = c.Next() {
			if !yield(item) {
				return
			}
		}
	}
}
