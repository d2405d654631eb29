package eventbus

import (
	"container/list"

	"github.com/google/uuid"

	"github.com/arcbus/eventbus/pkg/weakref"
)

// subscription is one entry of a per-key ordered list: a reference
// cell plus the identifier used to correlate it with timing events.
type subscription struct {
	id   uuid.UUID
	cell weakref.Cell
}

// subList is the per-key ordered list backing each of the nine
// subscriber-index maps. lomik-hub's sublist.go keeps entries sorted by
// subscription ID for binary-search removal; that sort order cannot
// express "a duplicate subscribe moves the existing entry to the tail"
// (spec invariant #1), so this is insertion-ordered instead, with
// dedup-by-target done by a linear scan. Per-key lists are expected to
// be short (tens of subscribers, not thousands), so linear scan does
// not trade away anything the sorted list actually bought.
type subList struct {
	l *list.List // list.Element.Value is *subscription
}

func newSubList() *subList {
	return &subList{l: list.New()}
}

// upsert walks the list evicting stale cells as it goes (mirroring
// subscribe's "opportunistic stale-cell eviction during scans"), then
// either moves an existing entry for the same target to the tail or
// appends a new one. Returns whether the target is newly added.
func (s *subList) upsert(cell weakref.Cell) bool {
	target, ok := cell.Target()
	if !ok {
		// A cell that is already dead on arrival (e.g. a weak wrapper
		// around an already-collected value) is still inserted: the
		// spec only requires scrub-on-scan, not scrub-on-subscribe.
		s.l.PushBack(&subscription{id: uuid.New(), cell: cell})
		return true
	}

	var e = s.l.Front()
	for e != nil {
		next := e.Next()
		sub := e.Value.(*subscription)

		live, alive := sub.cell.Target()
		if !alive {
			if sub.cell.IsProxy() {
				sub.cell.OnUnsubscribed()
			}
			s.l.Remove(e)
			e = next
			continue
		}
		if live == target {
			s.l.Remove(e)
			s.l.PushBack(&subscription{id: sub.id, cell: cell})
			return false
		}
		e = next
	}

	s.l.PushBack(&subscription{id: uuid.New(), cell: cell})
	return true
}

// removeTarget removes the first live cell whose target equals target,
// notifying Proxy cells via OnUnsubscribed, and scrubs any stale cells
// encountered along the way. Returns whether a removal occurred and,
// if so, whether the removed cell was weak/weak-proxy (so the caller
// can keep the reaper's counter in sync).
func (s *subList) removeTarget(target any) (removed bool, wasWeakish bool) {
	e := s.l.Front()
	for e != nil {
		next := e.Next()
		sub := e.Value.(*subscription)

		live, alive := sub.cell.Target()
		if !alive {
			if sub.cell.IsProxy() {
				sub.cell.OnUnsubscribed()
			}
			s.l.Remove(e)
			e = next
			continue
		}
		if !removed && live == target {
			if sub.cell.IsProxy() {
				sub.cell.OnUnsubscribed()
			}
			s.l.Remove(e)
			removed = true
			wasWeakish = sub.cell.IsWeakish()
		}
		e = next
	}
	return removed, wasWeakish
}

// snapshot resolves every cell to its live dispatch target (Strong and
// Weak cells resolve to the target itself; Proxy cells resolve to the
// proxy, which is the actual dispatch target), scrubbing dead cells
// from the underlying list as it goes. The returned slice is a private
// copy, stable against concurrent mutation of s.
func (s *subList) snapshot() []subscriberHandle {
	var out []subscriberHandle
	e := s.l.Front()
	for e != nil {
		next := e.Next()
		sub := e.Value.(*subscription)

		live, alive := sub.cell.Live()
		if !alive {
			if sub.cell.IsProxy() {
				sub.cell.OnUnsubscribed()
			}
			s.l.Remove(e)
			e = next
			continue
		}
		out = append(out, subscriberHandle{id: sub.id, value: live})
		e = next
	}
	return out
}

func (s *subList) len() int {
	return s.l.Len()
}

// scrubStale removes every cell whose Live() is empty, notifying Proxy
// cells via OnUnsubscribed, and returns how many of the removed cells
// were weak (the reaper's sweep counter per spec §4.5).
func (s *subList) scrubStale() int {
	removed := 0
	e := s.l.Front()
	for e != nil {
		next := e.Next()
		sub := e.Value.(*subscription)

		if _, alive := sub.cell.Live(); !alive {
			if sub.cell.IsProxy() {
				sub.cell.OnUnsubscribed()
			}
			if sub.cell.IsWeakish() {
				removed++
			}
			s.l.Remove(e)
		}
		e = next
	}
	return removed
}

// subscriberHandle is one entry of a lookup snapshot: the resolved
// dispatch target (a ClassSubscriber, TopicSubscriber, vetoer, or a
// Proxy standing in for one) plus the subscription identifier the
// Timing Monitor uses to describe the offending subscriber.
type subscriberHandle struct {
	id    uuid.UUID
	value any
}
