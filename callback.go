package eventbus

import (
	"time"

	"github.com/spf13/cast"
)

// typedTopicSubscriber adapts a typed callback into a TopicSubscriber.
// Grounded in lomik-hub's handler.go/callback.go, which wraps a
// caller-supplied function and uses spf13/cast to coerce a loosely
// typed payload into the signature the function actually wants.
type typedTopicSubscriber[T any] struct {
	fn func(topic string, value T)
}

// AsTopicSubscriber wraps fn as a TopicSubscriber. If payload is
// already of type T, fn is called directly; otherwise the payload is
// coerced via spf13/cast for the scalar kinds it supports. A payload
// that cannot be coerced is logged and dropped rather than panicking
// the delivery loop.
func AsTopicSubscriber[T any](fn func(topic string, value T)) TopicSubscriber {
	return typedTopicSubscriber[T]{fn: fn}
}

func (t typedTopicSubscriber[T]) OnTopicEvent(topic string, payload any) {
	if v, ok := payload.(T); ok {
		t.fn(topic, v)
		return
	}
	v, err := castTo[T](payload)
	if err != nil {
		currentLogger().Warn().Err(err).Str("topic", topic).Msg("eventbus: topic payload cast failed")
		return
	}
	t.fn(topic, v)
}

// castTo coerces payload to T using spf13/cast for the scalar kinds it
// handles. Non-scalar T falls through to InvalidArgument: casting a
// struct or interface payload is not spf13/cast's job, and the caller
// should register a subscriber whose signature already matches the
// published type instead.
func castTo[T any](payload any) (T, error) {
	var zero T
	switch any(zero).(type) {
	case string:
		s, err := cast.ToStringE(payload)
		return any(s).(T), err
	case int:
		n, err := cast.ToIntE(payload)
		return any(n).(T), err
	case int64:
		n, err := cast.ToInt64E(payload)
		return any(n).(T), err
	case float64:
		n, err := cast.ToFloat64E(payload)
		return any(n).(T), err
	case bool:
		b, err := cast.ToBoolE(payload)
		return any(b).(T), err
	case time.Duration:
		d, err := cast.ToDurationE(payload)
		return any(d).(T), err
	default:
		return zero, invalidArgumentf("cannot cast topic payload of type %T to %T", payload, zero)
	}
}
