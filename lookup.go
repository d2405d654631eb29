package eventbus

import (
	"reflect"
	"regexp"
)

// fullyMatches reports whether re matches the entirety of s, not merely
// a substring — spec §3's TopicPattern row requires a full match.
func fullyMatches(re *regexp.Regexp, s string) bool {
	anchored, err := regexp.Compile(`^(?:` + re.String() + `)$`)
	if err != nil {
		return false
	}
	return anchored.MatchString(s)
}

func classHierarchicalSnapshot(m map[reflect.Type]*subList, concrete reflect.Type) []subscriberHandle {
	var out []subscriberHandle
	for iface, list := range m {
		if iface.Kind() != reflect.Interface {
			continue
		}
		if concrete.Implements(iface) {
			out = append(out, list.snapshot()...)
		}
	}
	return out
}

// subscribersForEvent resolves every ClassSubscriber that should see
// event, per spec §4.2: exact-class matches, then hierarchical matches.
func (idx *subscriberIndex) subscribersForEvent(event any) []subscriberHandle {
	concrete := reflect.TypeOf(event)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var out []subscriberHandle
	if list, ok := idx.classExactSubs[concrete]; ok {
		out = append(out, list.snapshot()...)
	}
	out = append(out, classHierarchicalSnapshot(idx.classHierSubs, concrete)...)
	return out
}

// vetoersForEvent is the vetoer analogue of subscribersForEvent.
func (idx *subscriberIndex) vetoersForEvent(event any) []subscriberHandle {
	concrete := reflect.TypeOf(event)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var out []subscriberHandle
	if list, ok := idx.classExactVetoes[concrete]; ok {
		out = append(out, list.snapshot()...)
	}
	out = append(out, classHierarchicalSnapshot(idx.classHierVetoes, concrete)...)
	return out
}

// subscribersForType resolves GenericType subscribers whose key matches
// the published ParamType, per §3's wildcard-bound match rule.
func (idx *subscriberIndex) subscribersForType(published ParamType) []subscriberHandle {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var out []subscriberHandle
	for _, entry := range idx.genericSubs {
		if entry.key.matches(published) {
			out = append(out, entry.subs.snapshot()...)
		}
	}
	return out
}

func topicSnapshot(exact map[string]*subList, patterns []*patternEntry, topic string) []subscriberHandle {
	var out []subscriberHandle
	if list, ok := exact[topic]; ok {
		out = append(out, list.snapshot()...)
	}
	for _, entry := range patterns {
		if fullyMatches(entry.re, topic) {
			out = append(out, entry.subs.snapshot()...)
		}
	}
	return out
}

// subscribersForTopic resolves every TopicSubscriber whose key matches
// topic: exact match first, then every matching pattern in the order
// the patterns were first registered (patterns are kept in a slice and
// are not sorted).
func (idx *subscriberIndex) subscribersForTopic(topic string) []subscriberHandle {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return topicSnapshot(idx.topicExactSubs, idx.topicPatternSubs, topic)
}

// vetoersForTopic is the vetoer analogue of subscribersForTopic.
func (idx *subscriberIndex) vetoersForTopic(topic string) []subscriberHandle {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return topicSnapshot(idx.topicExactVetoes, idx.topicPatternVetoes, topic)
}
