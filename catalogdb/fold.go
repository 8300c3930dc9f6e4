// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

// fold groups flat join rows under a key while preserving the order in
// which keys were first seen. Queries that join child tables return one
// row per child; folding collapses them back into one record per parent
// without disturbing the ordering the database produced.
type fold[K comparable, V any] struct {
	order []K
	items map[K]V
}

func newFold[K comparable, V any]() *fold[K, V] {
	return &fold[K, V]{items: make(map[K]V)}
}

// Get returns the value stored under key.
func (f *fold[K, V]) Get(key K) (V, bool) {
	value, ok := f.items[key]
	return value, ok
}

// Set stores value under key, appending the key to the iteration order
// on first sight.
func (f *fold[K, V]) Set(key K, value V) {
	if _, ok := f.items[key]; !ok {
		f.order = append(f.order, key)
	}
	f.items[key] = value
}

// Keys returns all keys in first-seen order.
func (f *fold[K, V]) Keys() []K {
	return f.order
}

// Values returns all values in first-seen key order.
func (f *fold[K, V]) Values() []V {
	values := make([]V, 0, len(f.order))
	for _, key := range f.order {
		values = append(values, f.items[key])
	}
	return values
}

// Len returns the number of distinct keys.
func (f *fold[K, V]) Len() int {
	return len(f.order)
}
