package eventbus

import (
	"reflect"
	"regexp"
	"testing"
)

type cacheFakeEvent struct{ n int }
type cacheAncestor interface{ isCacheAncestor() }

func (cacheFakeEvent) isCacheAncestor() {}

func TestCache_ScenarioE_ResizeAndTrim(t *testing.T) {
	c := newEventCache()
	et := reflect.TypeOf(cacheFakeEvent{})

	c.recordEvent(cacheFakeEvent{1})
	got, _ := c.GetCachedEvents(et)
	if len(got) != 0 {
		t.Fatalf("expected empty cache at cap 0, got %v", got)
	}

	c.SetCacheSizeForClass(et, 1)
	c.recordEvent(cacheFakeEvent{2})
	got, _ = c.GetCachedEvents(et)
	if len(got) != 1 || got[0].(cacheFakeEvent).n != 2 {
		t.Fatalf("expected [2], got %v", got)
	}

	c.SetCacheSizeForClass(et, 5)
	for _, n := range []int{3, 4, 5, 6} {
		c.recordEvent(cacheFakeEvent{n})
	}
	got, _ = c.GetCachedEvents(et)
	want := []int{6, 5, 4, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, n := range want {
		if got[i].(cacheFakeEvent).n != n {
			t.Errorf("index %d: expected %d, got %v", i, n, got[i])
		}
	}

	c.recordEvent(cacheFakeEvent{7})
	got, _ = c.GetCachedEvents(et)
	want = []int{7, 6, 5, 4, 3}
	for i, n := range want {
		if got[i].(cacheFakeEvent).n != n {
			t.Errorf("after publishing 7, index %d: expected %d, got %v", i, n, got[i])
		}
	}
}

func TestCache_GetLastEvent_RejectsInterfaceKey(t *testing.T) {
	c := newEventCache()
	iface := reflect.TypeOf((*cacheAncestor)(nil)).Elem()
	if err := c.SetCacheSizeForClass(iface, 3); err != nil {
		t.Fatalf("expected SetCacheSizeForClass to accept an interface key, got %v", err)
	}
	if _, _, err := c.GetLastEvent(iface); !IsInvalidArgument(err) {
		t.Errorf("expected GetLastEvent(interface) to be InvalidArgument, got %v", err)
	}
	if _, err := c.GetCachedEvents(iface); !IsInvalidArgument(err) {
		t.Errorf("expected GetCachedEvents(interface) to be InvalidArgument, got %v", err)
	}
}

func TestCache_InterfaceCapFallback(t *testing.T) {
	c := newEventCache()
	iface := reflect.TypeOf((*cacheAncestor)(nil)).Elem()
	et := reflect.TypeOf(cacheFakeEvent{})

	c.SetCacheSizeForClass(iface, 2)
	c.recordEvent(cacheFakeEvent{1})
	c.recordEvent(cacheFakeEvent{2})
	c.recordEvent(cacheFakeEvent{3})

	got, _ := c.GetCachedEvents(et)
	if len(got) != 2 {
		t.Fatalf("expected the interface cap to apply via ancestor fallback, got %v", got)
	}
}

func TestCache_TopicExactBeatsPattern(t *testing.T) {
	c := newEventCache()
	c.SetCacheSizeForTopic("orders.created", 1)
	c.SetCacheSizeForTopicPattern(regexp.MustCompile("orders\\..*"), 5)

	c.recordTopic("orders.created", "p1")
	c.recordTopic("orders.created", "p2")

	got := c.GetCachedTopicData("orders.created")
	if len(got) != 1 || got[0] != "p2" {
		t.Fatalf("expected exact cap to win, got %v", got)
	}
}

func TestCache_ClearCacheForClass_Ancestor(t *testing.T) {
	c := newEventCache()
	et := reflect.TypeOf(cacheFakeEvent{})
	iface := reflect.TypeOf((*cacheAncestor)(nil)).Elem()

	c.SetCacheSizeForClass(et, 3)
	c.recordEvent(cacheFakeEvent{1})

	c.ClearCacheForClass(iface)
	got, _ := c.GetCachedEvents(et)
	if len(got) != 0 {
		t.Fatalf("expected clear-by-ancestor to drop the concrete buffer, got %v", got)
	}
}

func TestCache_ClearCacheForTopicPattern(t *testing.T) {
	c := newEventCache()
	c.SetCacheSizeForTopic("Foo1", 3)
	c.recordTopic("Foo1", "p1")

	c.ClearCacheForTopicPattern(regexp.MustCompile("Foo[1-5]"))
	if got := c.GetCachedTopicData("Foo1"); len(got) != 0 {
		t.Fatalf("expected pattern clear to drop Foo1, got %v", got)
	}
}
