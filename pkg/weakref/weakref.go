// Package weakref implements the Reference Cell abstraction: a uniform
// handle over strong, weak, and proxy subscriber/vetoer references.
//
// Weak cells are backed by the standard library's weak.Pointer, added in
// Go 1.24. No third-party library offers a weak-reference primitive —
// it is runtime-level machinery, not a domain concern — so this is the
// one place in the module that deliberately reaches for stdlib over an
// ecosystem dependency.
package weakref

import (
	"weak"
)

// Strength selects how a Cell holds its target.
type Strength int

const (
	// Strong cells keep their target alive for as long as the cell exists.
	Strong Strength = iota
	// Weak cells do not prevent their target from being collected.
	Weak
)

func (s Strength) String() string {
	if s == Weak {
		return "weak"
	}
	return "strong"
}

// Proxy is the contract an intermediary subscriber/vetoer must satisfy.
// Annotation-driven proxy bindings (out of scope for this module) hold a
// weak back-reference to their real target and report it through Target.
type Proxy interface {
	// Target returns the real subscriber/vetoer this proxy forwards to,
	// or (nil, false) once the real target has been collected.
	Target() (any, bool)
	// Unsubscribed notifies the proxy that its cell is being removed from
	// the index, so it can release any bookkeeping of its own.
	Unsubscribed()
}

type kind int

const (
	kindStrong kind = iota
	kindWeak
	kindProxy
)

// Cell is a tagged handle over {strong, weak, proxy} references. The zero
// Cell is not valid; construct one with NewStrong, NewWeak, or NewProxy.
type Cell struct {
	kind     kind
	strength Strength // meaningful for kindProxy; kindWeak is implicitly Weak

	strong any
	weak   func() (any, bool)
	proxy  Proxy
}

// NewStrong wraps target in a Cell that keeps it alive.
func NewStrong(target any) Cell {
	return Cell{kind: kindStrong, strength: Strong, strong: target}
}

// NewWeak wraps target in a Cell that does not keep it alive. Callers must
// pass the concrete pointer (not boxed behind an unrelated interface
// value) so the compiler can infer T for weak.Make; this mirrors the
// constraint Go's weak package itself imposes.
func NewWeak[T any](target *T) Cell {
	wp := weak.Make(target)
	return Cell{
		kind:     kindWeak,
		strength: Weak,
		weak: func() (any, bool) {
			v := wp.Value()
			if v == nil {
				return nil, false
			}
			return any(v), true
		},
	}
}

// ErrWeakProxy is returned by NewProxy when asked to build a Weak-strength
// proxy cell: the proxy itself already holds the weak back-reference to
// the real target, so a Weak-strength proxy cell would be a reference
// with nothing left strongly reachable to call Unsubscribed on.
type weakProxyError struct{}

func (weakProxyError) Error() string {
	return "weakref: a proxy cell must be held strongly; the proxy is the weak holder"
}

// ErrWeakProxy is the sentinel returned for the invalid combination above.
var ErrWeakProxy error = weakProxyError{}

// NewProxy wraps a Proxy. strength must be Strong — proxies are always
// held strongly by the index; the proxy itself is responsible for the
// weak link to its real target.
func NewProxy(strength Strength, proxy Proxy) (Cell, error) {
	if strength == Weak {
		return Cell{}, ErrWeakProxy
	}
	return Cell{kind: kindProxy, strength: strength, proxy: proxy}, nil
}

// Live returns the real underlying subscriber/vetoer if still reachable.
// For a Proxy cell, the proxy itself is returned (it is the dispatch
// target), consistent with a proxy being pushed into delivery snapshots.
func (c Cell) Live() (any, bool) {
	switch c.kind {
	case kindStrong:
		return c.strong, true
	case kindWeak:
		return c.weak()
	case kindProxy:
		if _, ok := c.proxy.Target(); !ok {
			return nil, false
		}
		return c.proxy, true
	default:
		return nil, false
	}
}

// Target returns the real object a cell ultimately dispatches for —
// unlike Live, a Proxy cell resolves through to its proxied target so
// index de-duplication can compare the underlying subscriber identity,
// not the proxy wrapper identity.
func (c Cell) Target() (any, bool) {
	switch c.kind {
	case kindStrong:
		return c.strong, true
	case kindWeak:
		return c.weak()
	case kindProxy:
		return c.proxy.Target()
	default:
		return nil, false
	}
}

// IsWeakish reports whether this cell contributes to the reaper's
// weak/proxy accounting: true for Weak cells and for Proxy cells created
// with Weak strength (rejected today by NewProxy, but the predicate is
// kept general in case a future proxy kind carries its own strength).
func (c Cell) IsWeakish() bool {
	if c.kind == kindWeak {
		return true
	}
	if c.kind == kindProxy && c.strength == Weak {
		return true
	}
	return false
}

// IsProxy reports whether this cell wraps a Proxy.
func (c Cell) IsProxy() bool {
	return c.kind == kindProxy
}

// OnUnsubscribed notifies a Proxy cell that it is being removed from the
// index. A no-op for Strong/Weak cells.
func (c Cell) OnUnsubscribed() {
	if c.kind == kindProxy && c.proxy != nil {
		c.proxy.Unsubscribed()
	}
}
