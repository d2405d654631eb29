package eventbus

import (
	"testing"
	"time"
)

func TestAsTopicSubscriber_DirectTypeMatch(t *testing.T) {
	var got int
	sub := AsTopicSubscriber(func(topic string, v int) { got = v })
	sub.OnTopicEvent("t", 42)
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestAsTopicSubscriber_CastsStringToInt(t *testing.T) {
	var got int
	sub := AsTopicSubscriber(func(topic string, v int) { got = v })
	sub.OnTopicEvent("t", "42")
	if got != 42 {
		t.Fatalf("expected cast 42, got %d", got)
	}
}

func TestAsTopicSubscriber_CastFailureIsDroppedNotPanicked(t *testing.T) {
	called := false
	sub := AsTopicSubscriber(func(topic string, v int) { called = true })
	sub.OnTopicEvent("t", "not-a-number")
	if called {
		t.Fatal("expected cast failure to drop delivery rather than call through")
	}
}

func TestAsTopicSubscriber_DurationCast(t *testing.T) {
	var got time.Duration
	sub := AsTopicSubscriber(func(topic string, v time.Duration) { got = v })
	sub.OnTopicEvent("t", "5s")
	if got != 5*time.Second {
		t.Fatalf("expected 5s, got %v", got)
	}
}

func TestCastTo_UnsupportedStructTypeIsInvalidArgument(t *testing.T) {
	type unsupported struct{ X int }
	_, err := castTo[unsupported]("whatever")
	if !IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument for unsupported cast target, got %v", err)
	}
}
