// Package cache assigns small integer ids to opaque native resources so a
// caller without pointer semantics can reference them across a foreign-call
// boundary. The id is the only externally valid reference: once an entry is
// removed, its id cannot resolve to anything until the table reissues it for a
// new entry.
package cache

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when an id does not reference a live entry.
var ErrNotFound = errors.New("cache: id not found")

// An ID references one cached item. The zero value never references a live
// item, so the C boundary can use 0 as its failure sentinel.
type ID int32

// Valid reports whether the id could reference a live item.
func (id ID) Valid() bool {
	return id > 0
}

// A Table maps ids to items of type T. It is safe for concurrent use. Ids are
// never reissued while live; removed ids are preferred for reuse so the id
// space stays small.
type Table[T any] struct {
	mu    sync.Mutex
	items map[ID]T
	free  []ID
	next  ID
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		items: make(map[ID]T),
		next:  1,
	}
}

// Insert stores item and returns a fresh id for it.
func (t *Table[T]) Insert(item T) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var id ID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		id = t.next
		t.next++
	}

	t.items[id] = item

	return id
}

// Retrieve returns the item stored under id.
func (t *Table[T]) Retrieve(id ID) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}

	return item, nil
}

// Remove deletes the entry for id. The id may be reissued by a later Insert.
func (t *Table[T]) Remove(id ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[id]; !ok {
		return ErrNotFound
	}

	delete(t.items, id)
	t.free = append(t.free, id)

	return nil
}

// Take removes the entry for id and returns the item it held. It exists so an
// owner can tear down a resource exactly once even when releases race: only
// one caller receives the item.
func (t *Table[T]) Take(id ID) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}

	delete(t.items, id)
	t.free = append(t.free, id)

	return item, nil
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.items)
}
