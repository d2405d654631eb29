// Package recency implements a bounded, newest-first buffer: the backing
// store for the event service's per-class and per-topic caches.
//
// hashicorp/golang-lru was considered here and does not fit: it evicts by
// key (one value per key, bounded key count), while a recency buffer
// needs many values retained under a single key (the most recent N
// events published for one class or topic). container/list is the
// correct, idiomatic primitive for that shape and has no ecosystem
// substitute worth adding a dependency for.
package recency

import "container/list"

// Buffer holds up to a capacity's worth of values, newest at the front.
// Not safe for concurrent use; callers serialize access (the event cache
// does so under its own lock).
type Buffer struct {
	cap int
	l   *list.List
}

// New creates a Buffer with the given capacity. A non-positive capacity
// is valid and simply never retains anything.
func New(capacity int) *Buffer {
	return &Buffer{cap: capacity, l: list.New()}
}

// Cap returns the buffer's configured capacity.
func (b *Buffer) Cap() int {
	return b.cap
}

// SetCap changes the capacity. If the new capacity is smaller than the
// current length, the buffer is trimmed from the tail immediately.
func (b *Buffer) SetCap(capacity int) {
	b.cap = capacity
	b.trim()
}

// Push inserts v at the head (newest position) and trims from the tail
// if the buffer now exceeds its capacity. A non-positive capacity causes
// Push to retain nothing at all.
func (b *Buffer) Push(v any) {
	if b.cap <= 0 {
		return
	}
	b.l.PushFront(v)
	b.trim()
}

func (b *Buffer) trim() {
	for b.l.Len() > b.cap && b.l.Len() > 0 {
		b.l.Remove(b.l.Back())
	}
	if b.cap <= 0 {
		b.l.Init()
	}
}

// Len returns the number of retained values.
func (b *Buffer) Len() int {
	return b.l.Len()
}

// Head returns the most recently pushed value, or (nil, false) if empty.
func (b *Buffer) Head() (any, bool) {
	front := b.l.Front()
	if front == nil {
		return nil, false
	}
	return front.Value, true
}

// Snapshot returns a defensive copy of the retained values, newest first.
// Callers must treat the result as read-only regardless; this also closes
// the aliasing hole where returning the live list would let a caller
// mutate cache internals through the returned slice.
func (b *Buffer) Snapshot() []any {
	out := make([]any, 0, b.l.Len())
	for e := b.l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value)
	}
	return out
}
