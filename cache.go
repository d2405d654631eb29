package eventbus

import (
	"reflect"
	"regexp"
	"sync"

	"github.com/arcbus/eventbus/pkg/cmap"
	"github.com/arcbus/eventbus/pkg/recency"
)

type classCapEntry struct {
	iface reflect.Type
	cap   int
}

type topicCapEntry struct {
	re  *regexp.Regexp
	cap int
}

// eventCache implements spec §4.4's Event Cache: bounded recency buffers
// per concrete event type and per topic, with inheritance-aware and
// pattern-aware cap resolution. mu is the "cache lock" from spec §5 —
// held only while resolving a cap and mutating a buffer, never across a
// subscriber or vetoer callback.
type eventCache struct {
	mu sync.Mutex

	defaultCap int

	classExactCaps map[reflect.Type]int
	classIfaceCaps []classCapEntry // ordered; first registered, first tried
	classCapMemo   map[reflect.Type]int

	topicExactCaps   map[string]int
	topicPatternCaps []topicCapEntry
	topicCapMemo     *cmap.CMap

	classBuffers map[reflect.Type]*recency.Buffer
	topicBuffers map[string]*recency.Buffer
}

func newEventCache() *eventCache {
	return &eventCache{
		classExactCaps: make(map[reflect.Type]int),
		classCapMemo:   make(map[reflect.Type]int),
		topicExactCaps: make(map[string]int),
		topicCapMemo:   cmap.New(),
		classBuffers:   make(map[reflect.Type]*recency.Buffer),
		topicBuffers:   make(map[string]*recency.Buffer),
	}
}

// SetDefaultCacheSize sets the cap used when no class or topic key
// resolves to anything more specific.
func (c *eventCache) SetDefaultCacheSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultCap = n
	c.invalidateMemoLocked()
}

// SetCacheSizeForClass registers a cap for a class key: a concrete type
// resolves via classExactCaps, an interface type is tried in
// registration order as the ancestor-style fallback (§1.1's collapse of
// spec's "walk ancestors" / "walk declared interfaces" steps).
func (c *eventCache) SetCacheSizeForClass(t reflect.Type, n int) error {
	if t == nil {
		return invalidArgumentf("SetCacheSizeForClass: class key must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Kind() == reflect.Interface {
		for i, e := range c.classIfaceCaps {
			if e.iface == t {
				c.classIfaceCaps[i].cap = n
				c.invalidateMemoLocked()
				return nil
			}
		}
		c.classIfaceCaps = append(c.classIfaceCaps, classCapEntry{iface: t, cap: n})
	} else {
		c.classExactCaps[t] = n
	}
	c.invalidateMemoLocked()
	return nil
}

// SetCacheSizeForTopic registers an exact-topic cap.
func (c *eventCache) SetCacheSizeForTopic(topic string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topicExactCaps[topic] = n
	c.invalidateMemoLocked()
}

// SetCacheSizeForTopicPattern registers a cap for every topic a pattern
// matches. Re-registering the same pattern source updates its cap
// in place rather than appending a second entry.
func (c *eventCache) SetCacheSizeForTopicPattern(re *regexp.Regexp, n int) error {
	if re == nil {
		return invalidArgumentf("SetCacheSizeForTopicPattern: pattern must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.topicPatternCaps {
		if e.re.String() == re.String() {
			c.topicPatternCaps[i].cap = n
			c.invalidateMemoLocked()
			return nil
		}
	}
	c.topicPatternCaps = append(c.topicPatternCaps, topicCapEntry{re: re, cap: n})
	c.invalidateMemoLocked()
	return nil
}

// invalidateMemoLocked drops every memoized resolution. Spec describes a
// dirty flag checked lazily on next read; an eager full invalidation on
// every cap-table write is behaviorally identical (resolution is pure
// and idempotent) and simpler than tracking per-entry staleness.
func (c *eventCache) invalidateMemoLocked() {
	c.classCapMemo = make(map[reflect.Type]int)
	c.topicCapMemo.Clear()
}

// resolveClassCap implements spec §4.4's class resolution, collapsed per
// §1.1: exact cap, then first matching registered interface cap in
// registration order, then the default. Must be called with mu held.
func (c *eventCache) resolveClassCap(t reflect.Type) int {
	if n, ok := c.classCapMemo[t]; ok {
		return n
	}
	if n, ok := c.classExactCaps[t]; ok {
		c.classCapMemo[t] = n
		return n
	}
	for _, e := range c.classIfaceCaps {
		if t.Implements(e.iface) {
			c.classCapMemo[t] = e.cap
			return e.cap
		}
	}
	c.classCapMemo[t] = c.defaultCap
	return c.defaultCap
}

// resolveTopicCap implements spec §4.4's topic resolution: exact cap,
// then first matching pattern cap in pattern registration order (the
// pattern caps are not sorted), then the default.
func (c *eventCache) resolveTopicCap(topic string) int {
	if n, ok := c.topicCapMemo.Get(topic); ok {
		return n
	}
	if n, ok := c.topicExactCaps[topic]; ok {
		c.topicCapMemo.Set(topic, n)
		return n
	}
	for _, e := range c.topicPatternCaps {
		if fullyMatches(e.re, topic) {
			c.topicCapMemo.Set(topic, e.cap)
			return e.cap
		}
	}
	c.topicCapMemo.Set(topic, c.defaultCap)
	return c.defaultCap
}

// recordEvent is the cache phase for a class-keyed publish: resolves
// the effective cap for event's concrete type, applies it to that
// type's buffer (shrinking or dropping it if the cap changed), and
// pushes event if the cap is positive.
func (c *eventCache) recordEvent(event any) {
	t := reflect.TypeOf(event)
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.resolveClassCap(t)
	buf, ok := c.classBuffers[t]
	if !ok {
		buf = recency.New(n)
		c.classBuffers[t] = buf
	} else {
		buf.SetCap(n)
	}
	buf.Push(event)
}

// recordTopic is the cache phase for a topic-keyed publish.
func (c *eventCache) recordTopic(topic string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.resolveTopicCap(topic)
	buf, ok := c.topicBuffers[topic]
	if !ok {
		buf = recency.New(n)
		c.topicBuffers[topic] = buf
	} else {
		buf.SetCap(n)
	}
	buf.Push(payload)
}

// GetLastEvent returns the most recently cached event of concrete type
// t. Rejects interface types with InvalidArgument, per spec §4.4: a
// cache is keyed by a concrete observed event, not by the ancestor
// relation used only to resolve its cap.
func (c *eventCache) GetLastEvent(t reflect.Type) (any, bool, error) {
	if t == nil {
		return nil, false, invalidArgumentf("GetLastEvent: class key must not be nil")
	}
	if t.Kind() == reflect.Interface {
		return nil, false, invalidArgumentf("GetLastEvent: interface key %s is not a valid cache read key", t)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.classBuffers[t]
	if !ok {
		return nil, false, nil
	}
	v, ok := buf.Head()
	return v, ok, nil
}

// GetCachedEvents returns the retained events of concrete type t,
// newest first. Rejects interface types with InvalidArgument.
func (c *eventCache) GetCachedEvents(t reflect.Type) ([]any, error) {
	if t == nil {
		return nil, invalidArgumentf("GetCachedEvents: class key must not be nil")
	}
	if t.Kind() == reflect.Interface {
		return nil, invalidArgumentf("GetCachedEvents: interface key %s is not a valid cache read key", t)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.classBuffers[t]
	if !ok {
		return nil, nil
	}
	return buf.Snapshot(), nil
}

// GetLastTopicData returns the most recently cached payload for topic.
func (c *eventCache) GetLastTopicData(topic string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.topicBuffers[topic]
	if !ok {
		return nil, false
	}
	return buf.Head()
}

// GetCachedTopicData returns the retained payloads for topic, newest first.
func (c *eventCache) GetCachedTopicData(topic string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.topicBuffers[topic]
	if !ok {
		return nil
	}
	return buf.Snapshot()
}

// ClearCache removes every cached class and topic buffer.
func (c *eventCache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classBuffers = make(map[reflect.Type]*recency.Buffer)
	c.topicBuffers = make(map[string]*recency.Buffer)
}

// ClearCacheForClass removes cached buffers whose concrete key is e
// itself, or — when e is an interface — every concrete key implementing
// it (the Go analogue of "E or a subclass of E").
func (c *eventCache) ClearCacheForClass(e reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for t := range c.classBuffers {
		if t == e || (e.Kind() == reflect.Interface && t.Implements(e)) {
			delete(c.classBuffers, t)
		}
	}
}

// ClearCacheForTopic removes the cached buffer for an exact topic.
func (c *eventCache) ClearCacheForTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topicBuffers, topic)
}

// ClearCacheForTopicPattern removes cached buffers for every topic
// fully matching re.
func (c *eventCache) ClearCacheForTopicPattern(re *regexp.Regexp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic := range c.topicBuffers {
		if fullyMatches(re, topic) {
			delete(c.topicBuffers, topic)
		}
	}
}
