package eventbus

import (
	"reflect"
	"testing"
	"time"
)

func TestNewTimingMonitor_SelfSubscribeRequiresThreshold(t *testing.T) {
	if _, err := newTimingMonitor(nil, true); !IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestNewTimingMonitor_NilThresholdDisabled(t *testing.T) {
	tm, err := newTimingMonitor(nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if tm.threshold != nil {
		t.Error("expected nil threshold to disable the monitor")
	}
}

type slowClassSubscriber struct{ delay time.Duration }

func (s *slowClassSubscriber) OnEvent(event any) {
	time.Sleep(s.delay)
}

func TestService_ConfigureTimingMonitor_EmitsOverThreshold(t *testing.T) {
	svc := New()
	threshold := 5 * time.Millisecond
	if err := svc.ConfigureTimingMonitor(&threshold, false); err != nil {
		t.Fatal(err)
	}

	seen := make(chan SubscriberTimingEvent, 4)
	svc.Subscribe(TimingTopic, AsTopicSubscriber(func(topic string, ev SubscriberTimingEvent) {
		seen <- ev
	}))

	type timingTestEvent struct{}
	svc.Subscribe(reflect.TypeOf(timingTestEvent{}), &slowClassSubscriber{delay: 20 * time.Millisecond})

	if err := svc.Publish(timingTestEvent{}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-seen:
		if ev.Threshold != threshold {
			t.Errorf("expected threshold %v, got %v", threshold, ev.Threshold)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a timing event")
	}
}

func TestService_ConfigureTimingMonitor_SelfSubscribeLogsViaLogger(t *testing.T) {
	svc := New()
	threshold := time.Millisecond
	if err := svc.ConfigureTimingMonitor(&threshold, true); err != nil {
		t.Fatal(err)
	}
	// No assertion beyond "does not panic": the internal logger writes
	// through the package-level zerolog logger, which defaults to
	// io.Discard until a host calls SetLogger.
	type selfSubEvent struct{}
	svc.Subscribe(reflect.TypeOf(selfSubEvent{}), &slowClassSubscriber{delay: 5 * time.Millisecond})
	if err := svc.Publish(selfSubEvent{}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
}
