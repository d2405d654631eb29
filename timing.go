package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// ReaperTopic and TimingTopic are the internal topics the reaper and
// timing monitor publish their lifecycle/observability events on,
// through the same Service.PublishTopic path application code uses.
const (
	ReaperTopic = "eventbus.reaper"
	TimingTopic = "eventbus.timing"
)

// SubscriberTimingEvent describes a single vetoer or subscriber call
// that exceeded the configured timing threshold, per spec §4.6.
type SubscriberTimingEvent struct {
	// Source describes the offending callback, e.g.
	// "vetoer(class=*alert.Fired)" or "subscriber(topic=orders.created)".
	Source string
	Start  time.Time
	End    time.Time
	// Threshold is the configured threshold the call exceeded.
	Threshold time.Duration
	// EventOrTopic is the published event value, or the topic string,
	// whichever the offending callback was invoked for.
	EventOrTopic any
	// SubscriberID identifies the specific subscription that was slow.
	SubscriberID uuid.UUID
}

// timingMonitor implements spec §4.6: optional per-callback wall-clock
// measurement that emits a SubscriberTimingEvent when a call runs over
// threshold. A nil *timingMonitor is valid and simply never fires —
// used when a Service is constructed with no timing configuration.
type timingMonitor struct {
	threshold     *time.Duration
	selfSubscribe bool
}

// newTimingMonitor validates spec §4.6's one invariant: selfSubscribe
// requires a non-nil threshold.
func newTimingMonitor(threshold *time.Duration, selfSubscribe bool) (*timingMonitor, error) {
	if selfSubscribe && threshold == nil {
		return nil, invalidArgumentf("timing monitor: selfSubscribe requires a non-nil threshold")
	}
	return &timingMonitor{threshold: threshold, selfSubscribe: selfSubscribe}, nil
}

// record is called after every vetoer/subscriber invocation. It always
// feeds the Prometheus histogram (an ambient metrics concern, not
// gated by the spec's opt-in threshold) and, only when over threshold,
// publishes a SubscriberTimingEvent on TimingTopic.
func (tm *timingMonitor) record(svc *Service, kind, source string, eventOrTopic any, subscriberID uuid.UUID, start, end time.Time) {
	dur := end.Sub(start)
	callbackDuration.WithLabelValues(kind, source).Observe(dur.Seconds())

	if tm == nil || tm.threshold == nil || dur <= *tm.threshold {
		return
	}

	ev := SubscriberTimingEvent{
		Source:       source,
		Start:        start,
		End:          end,
		Threshold:    *tm.threshold,
		EventOrTopic: eventOrTopic,
		SubscriberID: subscriberID,
	}
	svc.PublishTopic(TimingTopic, ev)
}

// timingLogger is the internal subscriber registered on TimingTopic
// when a timing monitor's selfSubscribe flag is set.
type timingLogger struct{}

func (timingLogger) OnTopicEvent(topic string, payload any) {
	ev, ok := payload.(SubscriberTimingEvent)
	if !ok {
		return
	}
	currentLogger().Warn().
		Str("source", ev.Source).
		Dur("elapsed", ev.End.Sub(ev.Start)).
		Dur("threshold", ev.Threshold).
		Interface("event_or_topic", ev.EventOrTopic).
		Msg("subscriber exceeded timing threshold")
}
