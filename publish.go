package eventbus

import (
	"fmt"
	"time"
)

func classSource(kind string, event any) string {
	return fmt.Sprintf("%s(class=%T)", kind, event)
}

func topicSource(kind string, topic string) string {
	return fmt.Sprintf("%s(topic=%s)", kind, topic)
}

// runClassVeto invokes a single class-keyed vetoer with timing and
// panic recovery. A throwing vetoer does not veto (§1.1's resolution
// of spec's open question).
func (svc *Service) runClassVeto(h subscriberHandle, event any) (veto bool) {
	vetoer, ok := h.value.(ClassVetoer)
	if !ok {
		return false
	}
	source := classSource("vetoer", event)
	start := time.Now()
	defer func() {
		end := time.Now()
		if r := recover(); r != nil {
			svc.currentTiming().record(svc, "vetoer", source, event, h.id, start, end)
			svc.handleException("vetoer", source, recoverToError(r))
			veto = false
			return
		}
		svc.currentTiming().record(svc, "vetoer", source, event, h.id, start, end)
	}()
	veto = vetoer.ShouldVeto(event)
	return veto
}

func (svc *Service) runTopicVeto(h subscriberHandle, topic string, payload any) (veto bool) {
	vetoer, ok := h.value.(TopicVetoer)
	if !ok {
		return false
	}
	source := topicSource("vetoer", topic)
	start := time.Now()
	defer func() {
		end := time.Now()
		if r := recover(); r != nil {
			svc.currentTiming().record(svc, "vetoer", source, topic, h.id, start, end)
			svc.handleException("vetoer", source, recoverToError(r))
			veto = false
			return
		}
		svc.currentTiming().record(svc, "vetoer", source, topic, h.id, start, end)
	}()
	veto = vetoer.ShouldVetoTopic(topic, payload)
	return veto
}

func (svc *Service) runClassSubscriber(h subscriberHandle, event any) {
	subscriber, ok := h.value.(ClassSubscriber)
	if !ok {
		return
	}
	source := classSource("subscriber", event)
	start := time.Now()
	defer func() {
		end := time.Now()
		if r := recover(); r != nil {
			svc.currentTiming().record(svc, "subscriber", source, event, h.id, start, end)
			svc.handleException("subscriber", source, recoverToError(r))
			return
		}
		svc.currentTiming().record(svc, "subscriber", source, event, h.id, start, end)
	}()
	subscriber.OnEvent(event)
}

func (svc *Service) runTopicSubscriber(h subscriberHandle, topic string, payload any) {
	subscriber, ok := h.value.(TopicSubscriber)
	if !ok {
		return
	}
	source := topicSource("subscriber", topic)
	start := time.Now()
	defer func() {
		end := time.Now()
		if r := recover(); r != nil {
			svc.currentTiming().record(svc, "subscriber", source, topic, h.id, start, end)
			svc.handleException("subscriber", source, recoverToError(r))
			return
		}
		svc.currentTiming().record(svc, "subscriber", source, topic, h.id, start, end)
	}()
	subscriber.OnTopicEvent(topic, payload)
}

// Publish runs the two-phase veto/deliver pipeline for a class-keyed
// event, per spec §4.3: validate & snapshot, veto, cache, deliver.
func (svc *Service) Publish(event any) error {
	if event == nil {
		return invalidArgumentf("Publish: event must not be nil")
	}

	vetoes := svc.idx.vetoersForEvent(event)
	subs := svc.idx.subscribersForEvent(event)

	for _, v := range vetoes {
		if svc.runClassVeto(v, event) {
			currentLogger().Info().Str("event_type", fmt.Sprintf("%T", event)).Msg("eventbus: publish vetoed")
			return nil
		}
	}

	svc.cache.recordEvent(event)

	for _, s := range subs {
		svc.runClassSubscriber(s, event)
	}
	return nil
}

// PublishTopic is Publish's topic-keyed counterpart.
func (svc *Service) PublishTopic(topic string, payload any) error {
	if topic == "" {
		return invalidArgumentf("PublishTopic: topic must not be empty")
	}

	vetoes := svc.idx.vetoersForTopic(topic)
	subs := svc.idx.subscribersForTopic(topic)

	for _, v := range vetoes {
		if svc.runTopicVeto(v, topic, payload) {
			currentLogger().Info().Str("topic", topic).Msg("eventbus: publish vetoed")
			return nil
		}
	}

	svc.cache.recordTopic(topic, payload)

	for _, s := range subs {
		svc.runTopicSubscriber(s, topic, payload)
	}
	return nil
}

// PublishType delivers event to GenericType subscribers whose key
// matches published. GenericType has no veto dimension (§1.1) and no
// cache dimension — only TopicExact/TopicPattern and ClassExact/
// ClassHierarchical keys feed the Event Cache.
func (svc *Service) PublishType(published ParamType, event any) error {
	if event == nil {
		return invalidArgumentf("PublishType: event must not be nil")
	}
	for _, s := range svc.idx.subscribersForType(published) {
		svc.runClassSubscriber(s, event)
	}
	return nil
}
