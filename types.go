package eventbus

import "reflect"

// ClassSubscriber receives published events by their Go type. OnEvent is
// called with the concrete event value; a single object may also
// implement TopicSubscriber, the same way lomik-hub let one handler
// answer to more than one registration.
type ClassSubscriber interface {
	OnEvent(event any)
}

// TopicSubscriber receives payloads published under a topic name.
type TopicSubscriber interface {
	OnTopicEvent(topic string, payload any)
}

// ClassVetoer is consulted before a class-keyed publish is delivered. A
// true return cancels the publication; a panic is recovered and treated
// as a non-veto (see DESIGN.md for why this mirrors the one open
// question the spec leaves unresolved).
type ClassVetoer interface {
	ShouldVeto(event any) bool
}

// TopicVetoer is the topic-keyed analogue of ClassVetoer.
type TopicVetoer interface {
	ShouldVetoTopic(topic string, payload any) bool
}

// TypeArg is one position of a ParamType: either a concrete type the
// published argument must equal exactly, or a wildcard bounded by zero
// or more interface types the published argument must implement.
type TypeArg struct {
	exact    reflect.Type
	wildcard bool
	bounds   []reflect.Type
}

// Exact returns a TypeArg that only matches t itself.
func Exact(t reflect.Type) TypeArg {
	return TypeArg{exact: t}
}

// Wildcard returns a TypeArg that matches any type implementing every
// bound. A published argument may never itself be a wildcard — only
// subscription keys carry wildcards.
func Wildcard(bounds ...reflect.Type) TypeArg {
	return TypeArg{wildcard: true, bounds: bounds}
}

// matches reports whether the published type argument u satisfies this
// key argument, per spec §3's GenericType row.
func (a TypeArg) matches(u reflect.Type) bool {
	if u == nil {
		return false
	}
	if !a.wildcard {
		return a.exact == u
	}
	for _, bound := range a.bounds {
		if bound.Kind() != reflect.Interface {
			if u != bound {
				return false
			}
			continue
		}
		if !u.Implements(bound) {
			return false
		}
	}
	return true
}

// ParamType is a GenericType subscription key: a raw type plus an
// ordered list of type arguments, the Go analogue of Java's
// parameterized type tokens (e.g. List<? extends Number>).
type ParamType struct {
	Raw  reflect.Type
	Args []TypeArg
}

// NewParamType builds a ParamType from a raw type and its arguments.
func NewParamType(raw reflect.Type, args ...TypeArg) ParamType {
	return ParamType{Raw: raw, Args: args}
}

// matches reports whether published ParamType other satisfies key p:
// raw types equal, same argument count, and every argument matches
// positionally.
func (p ParamType) matches(other ParamType) bool {
	if p.Raw != other.Raw {
		return false
	}
	if len(p.Args) != len(other.Args) {
		return false
	}
	for i, arg := range p.Args {
		o := other.Args[i]
		if o.wildcard {
			// A published type argument may not itself be a wildcard.
			return false
		}
		if !arg.matches(o.exact) {
			return false
		}
	}
	return true
}
