package eventbus

import (
	"reflect"
	"regexp"
	"sync"

	"github.com/arcbus/eventbus/pkg/weakref"
)

// genericEntry is one GenericType subscription. ParamType embeds a slice
// (TypeArg list) and so is not a valid Go map key; entries are kept in
// an insertion-ordered slice and matched linearly, the same approach
// topicPatternSubs already needs for regexes.
type genericEntry struct {
	key  ParamType
	subs *subList
}

// patternEntry is one TopicPattern subscription: the compiled regex plus
// its per-key subscriber list. Keyed internally by the regex source
// string so re-registering the same pattern text reuses one entry.
type patternEntry struct {
	source string
	re     *regexp.Regexp
	subs   *subList
}

// subscriberIndex holds the nine keyed maps from spec §2/§4.1. One
// RWMutex is the "index lock" spec §5 describes: it protects every map
// below plus the reaper's weak/proxy counter, and is never held while a
// subscriber or vetoer callback runs.
type subscriberIndex struct {
	mu sync.RWMutex

	classHierSubs  map[reflect.Type]*subList
	classExactSubs map[reflect.Type]*subList
	genericSubs    []*genericEntry
	topicExactSubs map[string]*subList
	topicPatternSubs []*patternEntry

	classHierVetoes  map[reflect.Type]*subList
	classExactVetoes map[reflect.Type]*subList
	// GenericType has no veto dimension (§1.1 open-question resolution).
	topicExactVetoes   map[string]*subList
	topicPatternVetoes []*patternEntry

	weakOrProxyCount int
	// onWeakCountChange lets the reaper observe count transitions without
	// the index importing the reaper; nil until a reaper attaches.
	onWeakCountChange func(count int)
}

func newSubscriberIndex() *subscriberIndex {
	return &subscriberIndex{
		classHierSubs:    make(map[reflect.Type]*subList),
		classExactSubs:   make(map[reflect.Type]*subList),
		topicExactSubs:   make(map[string]*subList),
		classHierVetoes:  make(map[reflect.Type]*subList),
		classExactVetoes: make(map[reflect.Type]*subList),
		topicExactVetoes: make(map[string]*subList),
	}
}

func validateCell(cell weakref.Cell) error {
	target, ok := cell.Target()
	if ok && target == nil {
		return invalidArgumentf("subscribe: subscriber must not be nil")
	}
	return nil
}

func (idx *subscriberIndex) adjustWeakCount(weakish bool, delta int) {
	if !weakish {
		return
	}
	idx.weakOrProxyCount += delta
	if idx.weakOrProxyCount < 0 {
		idx.weakOrProxyCount = 0
	}
	if idx.onWeakCountChange != nil {
		idx.onWeakCountChange(idx.weakOrProxyCount)
	}
}

// --- ClassHierarchical / ClassExact ------------------------------------

func (idx *subscriberIndex) subscribeClassMap(m map[reflect.Type]*subList, t reflect.Type, cell weakref.Cell) (bool, error) {
	if t == nil {
		return false, invalidArgumentf("subscribe: class key must not be nil")
	}
	if err := validateCell(cell); err != nil {
		return false, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list, ok := m[t]
	if !ok {
		list = newSubList()
		m[t] = list
	}
	added := list.upsert(cell)
	if added {
		idx.adjustWeakCount(cell.IsWeakish(), 1)
	}
	return added, nil
}

func (idx *subscriberIndex) unsubscribeClassMap(m map[reflect.Type]*subList, t reflect.Type, target any) (bool, error) {
	if t == nil {
		return false, invalidArgumentf("unsubscribe: class key must not be nil")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list, ok := m[t]
	if !ok {
		return false, nil
	}
	removed, wasWeakish := list.removeTarget(target)
	if removed {
		idx.adjustWeakCount(wasWeakish, -1)
	}
	return removed, nil
}

func (idx *subscriberIndex) subscribeClassHier(t reflect.Type, cell weakref.Cell) (bool, error) {
	return idx.subscribeClassMap(idx.classHierSubs, t, cell)
}

func (idx *subscriberIndex) subscribeClassExact(t reflect.Type, cell weakref.Cell) (bool, error) {
	return idx.subscribeClassMap(idx.classExactSubs, t, cell)
}

func (idx *subscriberIndex) subscribeClassHierVeto(t reflect.Type, cell weakref.Cell) (bool, error) {
	return idx.subscribeClassMap(idx.classHierVetoes, t, cell)
}

func (idx *subscriberIndex) subscribeClassExactVeto(t reflect.Type, cell weakref.Cell) (bool, error) {
	return idx.subscribeClassMap(idx.classExactVetoes, t, cell)
}

// --- TopicExact ---------------------------------------------------------

func (idx *subscriberIndex) subscribeTopicMap(m map[string]*subList, topic string, cell weakref.Cell) (bool, error) {
	if topic == "" {
		return false, invalidArgumentf("subscribe: topic key must not be empty")
	}
	if err := validateCell(cell); err != nil {
		return false, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list, ok := m[topic]
	if !ok {
		list = newSubList()
		m[topic] = list
	}
	added := list.upsert(cell)
	if added {
		idx.adjustWeakCount(cell.IsWeakish(), 1)
	}
	return added, nil
}

func (idx *subscriberIndex) unsubscribeTopicMap(m map[string]*subList, topic string, target any) (bool, error) {
	if topic == "" {
		return false, invalidArgumentf("unsubscribe: topic key must not be empty")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list, ok := m[topic]
	if !ok {
		return false, nil
	}
	removed, wasWeakish := list.removeTarget(target)
	if removed {
		idx.adjustWeakCount(wasWeakish, -1)
	}
	return removed, nil
}

func (idx *subscriberIndex) subscribeTopicExact(topic string, cell weakref.Cell) (bool, error) {
	return idx.subscribeTopicMap(idx.topicExactSubs, topic, cell)
}

func (idx *subscriberIndex) subscribeTopicExactVeto(topic string, cell weakref.Cell) (bool, error) {
	return idx.subscribeTopicMap(idx.topicExactVetoes, topic, cell)
}

// --- TopicPattern ---------------------------------------------------------

func findPatternEntry(entries []*patternEntry, source string) *patternEntry {
	for _, e := range entries {
		if e.source == source {
			return e
		}
	}
	return nil
}

func (idx *subscriberIndex) subscribePattern(entries *[]*patternEntry, re *regexp.Regexp, cell weakref.Cell) (bool, error) {
	if re == nil {
		return false, invalidArgumentf("subscribe: topic pattern must not be nil")
	}
	if err := validateCell(cell); err != nil {
		return false, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := findPatternEntry(*entries, re.String())
	if entry == nil {
		entry = &patternEntry{source: re.String(), re: re, subs: newSubList()}
		*entries = append(*entries, entry)
	}
	added := entry.subs.upsert(cell)
	if added {
		idx.adjustWeakCount(cell.IsWeakish(), 1)
	}
	return added, nil
}

func (idx *subscriberIndex) unsubscribePattern(entries []*patternEntry, re *regexp.Regexp, target any) (bool, error) {
	if re == nil {
		return false, invalidArgumentf("unsubscribe: topic pattern must not be nil")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := findPatternEntry(entries, re.String())
	if entry == nil {
		return false, nil
	}
	removed, wasWeakish := entry.subs.removeTarget(target)
	if removed {
		idx.adjustWeakCount(wasWeakish, -1)
	}
	return removed, nil
}

func (idx *subscriberIndex) subscribeTopicPattern(re *regexp.Regexp, cell weakref.Cell) (bool, error) {
	return idx.subscribePattern(&idx.topicPatternSubs, re, cell)
}

func (idx *subscriberIndex) subscribeTopicPatternVeto(re *regexp.Regexp, cell weakref.Cell) (bool, error) {
	return idx.subscribePattern(&idx.topicPatternVetoes, re, cell)
}

// --- GenericType ---------------------------------------------------------

func findGenericEntry(entries []*genericEntry, pt ParamType) *genericEntry {
	for _, e := range entries {
		if genericKeyEqual(e.key, pt) {
			return e
		}
	}
	return nil
}

// genericKeyEqual compares two subscription keys for identity (not the
// asymmetric match rule used at lookup time): same raw type, same
// argument shapes in the same order.
func genericKeyEqual(a, b ParamType) bool {
	if a.Raw != b.Raw || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		x, y := a.Args[i], b.Args[i]
		if x.wildcard != y.wildcard || x.exact != y.exact {
			return false
		}
		if len(x.bounds) != len(y.bounds) {
			return false
		}
		for j := range x.bounds {
			if x.bounds[j] != y.bounds[j] {
				return false
			}
		}
	}
	return true
}

func (idx *subscriberIndex) subscribeGenericType(pt ParamType, cell weakref.Cell) (bool, error) {
	if pt.Raw == nil {
		return false, invalidArgumentf("subscribe: generic type key must not be nil")
	}
	if err := validateCell(cell); err != nil {
		return false, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := findGenericEntry(idx.genericSubs, pt)
	if entry == nil {
		entry = &genericEntry{key: pt, subs: newSubList()}
		idx.genericSubs = append(idx.genericSubs, entry)
	}
	added := entry.subs.upsert(cell)
	if added {
		idx.adjustWeakCount(cell.IsWeakish(), 1)
	}
	return added, nil
}

func (idx *subscriberIndex) unsubscribeGenericType(pt ParamType, target any) (bool, error) {
	if pt.Raw == nil {
		return false, invalidArgumentf("unsubscribe: generic type key must not be nil")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := findGenericEntry(idx.genericSubs, pt)
	if entry == nil {
		return false, nil
	}
	removed, wasWeakish := entry.subs.removeTarget(target)
	if removed {
		idx.adjustWeakCount(wasWeakish, -1)
	}
	return removed, nil
}

// sweepStale walks all nine maps removing stale cells, decrementing the
// weak/proxy counter for each one removed, and returns the total
// removed. This is the reaper's per-tick "begun -> scrub -> finished"
// work (spec §4.5).
func (idx *subscriberIndex) sweepStale() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	total := 0
	for _, m := range []map[reflect.Type]*subList{idx.classHierSubs, idx.classExactSubs, idx.classHierVetoes, idx.classExactVetoes} {
		for _, list := range m {
			total += list.scrubStale()
		}
	}
	for _, m := range []map[string]*subList{idx.topicExactSubs, idx.topicExactVetoes} {
		for _, list := range m {
			total += list.scrubStale()
		}
	}
	for _, entries := range [][]*patternEntry{idx.topicPatternSubs, idx.topicPatternVetoes} {
		for _, e := range entries {
			total += e.subs.scrubStale()
		}
	}
	for _, e := range idx.genericSubs {
		total += e.subs.scrubStale()
	}

	idx.weakOrProxyCount -= total
	if idx.weakOrProxyCount < 0 {
		idx.weakOrProxyCount = 0
	}
	if idx.onWeakCountChange != nil {
		idx.onWeakCountChange(idx.weakOrProxyCount)
	}
	return total
}

// weakCount returns the current reaper counter value.
func (idx *subscriberIndex) weakCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.weakOrProxyCount
}

// clearAll removes every subscription and vetoer across all nine maps,
// without touching cache state (spec §6's clearAllSubscribers).
func (idx *subscriberIndex) clearAll() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.classHierSubs = make(map[reflect.Type]*subList)
	idx.classExactSubs = make(map[reflect.Type]*subList)
	idx.genericSubs = nil
	idx.topicExactSubs = make(map[string]*subList)
	idx.topicPatternSubs = nil
	idx.classHierVetoes = make(map[reflect.Type]*subList)
	idx.classExactVetoes = make(map[reflect.Type]*subList)
	idx.topicExactVetoes = make(map[string]*subList)
	idx.topicPatternVetoes = nil
	idx.weakOrProxyCount = 0
}
