package registry

import "slices"

// collection is an insertion-ordered map with unique string keys.
type collection[T any] struct {
	keys  []string
	items map[string]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) get(key string) (T, bool) {
	item, ok := c.items[key]
	return item, ok
}

func (c *collection[T]) has(key string) bool {
	_, ok := c.items[key]
	return ok
}

// insert appends item under key. It reports false and changes nothing if
// the key is already present.
func (c *collection[T]) insert(key string, item T) bool {
	if c.has(key) {
		return false
	}
	c.keys = append(c.keys, key)
	c.items[key] = item
	return true
}

func (c *collection[T]) remove(key string) (T, bool) {
	item, ok := c.items[key]
	if !ok {
		return item, false
	}
	delete(c.items, key)
	if i := slices.Index(c.keys, key); i >= 0 {
		c.keys = slices.Delete(c.keys, i, i+1)
	}
	return item, true
}

func (c *collection[T]) len() int {
	return len(c.keys)
}

// snapshot returns a copy of the key order.
func (c *collection[T]) snapshot() []string {
	return slices.Clone(c.keys)
}

// values returns the items in insertion order.
func (c *collection[T]) values() []T {
	out := make([]T, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

// clear drops every entry.
func (c *collection[T]) clear() {
	c.keys = nil
	c.items = make(map[string]T)
}
