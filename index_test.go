package eventbus

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/arcbus/eventbus/pkg/weakref"
)

type indexFakeSub struct{ name string }

func TestIndex_SubscribeClassExact_NewlyAdded(t *testing.T) {
	idx := newSubscriberIndex()
	et := reflect.TypeOf(indexFakeSub{})
	s := &indexFakeSub{"s"}

	added, err := idx.subscribeClassExact(et, weakref.NewStrong(s))
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("expected first subscribe to report newly added")
	}

	added, err = idx.subscribeClassExact(et, weakref.NewStrong(s))
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("expected duplicate subscribe to report not newly added")
	}
}

func TestIndex_SubscribeClassExact_NilKeyRejected(t *testing.T) {
	idx := newSubscriberIndex()
	_, err := idx.subscribeClassExact(nil, weakref.NewStrong(&indexFakeSub{}))
	if !IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestIndex_UnsubscribeClassExact(t *testing.T) {
	idx := newSubscriberIndex()
	et := reflect.TypeOf(indexFakeSub{})
	s := &indexFakeSub{"s"}
	idx.subscribeClassExact(et, weakref.NewStrong(s))

	removed, err := idx.unsubscribeClassMap(idx.classExactSubs, et, s)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Error("expected removal to succeed")
	}

	removed, _ = idx.unsubscribeClassMap(idx.classExactSubs, et, s)
	if removed {
		t.Error("expected second removal to report false")
	}
}

func TestIndex_WeakCountTracksSubscribeAndUnsubscribe(t *testing.T) {
	idx := newSubscriberIndex()
	et := reflect.TypeOf(indexFakeSub{})
	target := &indexFakeSub{"weak"}

	idx.subscribeClassExact(et, weakref.NewWeak(target))
	if idx.weakOrProxyCount != 1 {
		t.Fatalf("expected weakOrProxyCount=1 after weak subscribe, got %d", idx.weakOrProxyCount)
	}

	idx.unsubscribeClassMap(idx.classExactSubs, et, target)
	if idx.weakOrProxyCount != 0 {
		t.Fatalf("expected weakOrProxyCount=0 after unsubscribe, got %d", idx.weakOrProxyCount)
	}
}

func TestIndex_SubscribeTopicPattern_ReusesEntry(t *testing.T) {
	idx := newSubscriberIndex()
	re := regexp.MustCompile("Foo[1-5]")
	a := &indexFakeSub{"a"}
	b := &indexFakeSub{"b"}

	idx.subscribeTopicPattern(re, weakref.NewStrong(a))
	idx.subscribeTopicPattern(regexp.MustCompile("Foo[1-5]"), weakref.NewStrong(b))

	if len(idx.topicPatternSubs) != 1 {
		t.Fatalf("expected one pattern entry reused by identical source, got %d", len(idx.topicPatternSubs))
	}
	if idx.topicPatternSubs[0].subs.len() != 2 {
		t.Fatalf("expected two subscribers on the shared pattern entry, got %d", idx.topicPatternSubs[0].subs.len())
	}
}

func TestIndex_SubscribeGenericType_DedupsByShape(t *testing.T) {
	idx := newSubscriberIndex()
	raw := reflect.TypeOf([]any{})
	numberIface := reflect.TypeOf((*numberT)(nil)).Elem()
	pt := NewParamType(raw, Wildcard(numberIface))
	a := &indexFakeSub{"a"}

	added1, err := idx.subscribeGenericType(pt, weakref.NewStrong(a))
	if err != nil || !added1 {
		t.Fatalf("expected first subscribe to succeed, added=%v err=%v", added1, err)
	}

	pt2 := NewParamType(raw, Wildcard(numberIface))
	added2, err := idx.subscribeGenericType(pt2, weakref.NewStrong(a))
	if err != nil {
		t.Fatal(err)
	}
	if added2 {
		t.Error("expected equivalent key shape to be treated as the same subscription")
	}
	if len(idx.genericSubs) != 1 {
		t.Fatalf("expected one generic entry, got %d", len(idx.genericSubs))
	}
}

func TestIndex_ClearAll(t *testing.T) {
	idx := newSubscriberIndex()
	et := reflect.TypeOf(indexFakeSub{})
	idx.subscribeClassExact(et, weakref.NewStrong(&indexFakeSub{"a"}))
	idx.subscribeTopicExact("orders.created", weakref.NewStrong(&indexFakeSub{"b"}))
	idx.subscribeTopicPattern(regexp.MustCompile("Foo.*"), weakref.NewWeak(&indexFakeSub{"c"}))

	idx.clearAll()

	if len(idx.classExactSubs) != 0 || len(idx.topicExactSubs) != 0 || len(idx.topicPatternSubs) != 0 {
		t.Fatal("expected clearAll to empty every map")
	}
	if idx.weakOrProxyCount != 0 {
		t.Errorf("expected weakOrProxyCount reset to 0, got %d", idx.weakOrProxyCount)
	}
}
