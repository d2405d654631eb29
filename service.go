package eventbus

import (
	"reflect"
	"regexp"
	"sync"
	"time"

	"github.com/arcbus/eventbus/pkg/weakref"
)

// ExceptionHandler is the overridable seam spec §7 describes: the sink
// every captured vetoer/subscriber error and panic is routed through.
// The default simply logs at warn via the package logger (log.go).
type ExceptionHandler func(err error)

// Service is the Event Service: the composition root wiring together
// the Subscriber Index, Event Cache, Reaper, and Timing Monitor.
type Service struct {
	idx   *subscriberIndex
	cache *eventCache
	rpr   *reaper

	timingMu sync.RWMutex
	timing   *timingMonitor

	exceptionHandler ExceptionHandler
}

// New constructs a Service. With no options it has no cache caps (every
// cache read is empty until SetDefaultCacheSize/SetCacheSizeFor* is
// called), no reaper thresholds (weak subscriptions never trigger a
// sweep until configured), and no timing monitor.
func New(opts ...Option) *Service {
	svc := &Service{
		idx:   newSubscriberIndex(),
		cache: newEventCache(),
	}
	svc.rpr = newReaper(svc, svc.idx)
	svc.exceptionHandler = svc.defaultExceptionHandler

	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) defaultExceptionHandler(err error) {
	currentLogger().Warn().Err(err).Msg("eventbus: subscriber or vetoer error")
}

// SetExceptionHandler overrides the sink captured vetoer/subscriber
// errors are routed through.
func (svc *Service) SetExceptionHandler(h ExceptionHandler) {
	if h == nil {
		h = svc.defaultExceptionHandler
	}
	svc.exceptionHandler = h
}

func (svc *Service) handleException(kind, source string, err error) {
	callbackErrorsTotal.WithLabelValues(kind, source).Inc()
	svc.exceptionHandler(newSubscriberError(source, err))
}

// --- Subscribe / Unsubscribe ---------------------------------------------

func classKeyDimension(t reflect.Type) bool {
	return t.Kind() == reflect.Interface
}

// Subscribe registers subscriber strongly under key, which must be one
// of reflect.Type (a concrete type for ClassExact, or an interface
// type obtained via reflect.TypeOf((*I)(nil)).Elem() for
// ClassHierarchical), ParamType (GenericType), string (TopicExact), or
// *regexp.Regexp (TopicPattern). Returns whether subscriber was newly
// added (false if it was already present and simply moved to the tail).
func (svc *Service) Subscribe(key any, subscriber any) (bool, error) {
	return svc.subscribeCell(key, weakref.NewStrong(subscriber))
}

// SubscribeWeak registers subscriber without extending its lifetime.
// Go's weak package requires the pointed-to type to be known at the
// call site, so this is a free function parameterized over T rather
// than a Service method.
func SubscribeWeak[T any](svc *Service, key any, subscriber *T) (bool, error) {
	return svc.subscribeCell(key, weakref.NewWeak(subscriber))
}

// SubscribeProxy registers a Proxy as described in spec §4.1/§9: an
// intermediary holding a weak back-reference to its real target. Proxy
// cells are always held strongly by the index (weakref.NewProxy rejects
// Weak strength); the proxy itself is the weak holder.
func (svc *Service) SubscribeProxy(key any, proxy weakref.Proxy) (bool, error) {
	cell, err := weakref.NewProxy(weakref.Strong, proxy)
	if err != nil {
		return false, invalidArgumentf("%v", err)
	}
	return svc.subscribeCell(key, cell)
}

func (svc *Service) subscribeCell(key any, cell weakref.Cell) (bool, error) {
	switch k := key.(type) {
	case reflect.Type:
		if k == nil {
			return false, invalidArgumentf("Subscribe: class key must not be nil")
		}
		if classKeyDimension(k) {
			return svc.idx.subscribeClassHier(k, cell)
		}
		return svc.idx.subscribeClassExact(k, cell)
	case ParamType:
		return svc.idx.subscribeGenericType(k, cell)
	case string:
		return svc.idx.subscribeTopicExact(k, cell)
	case *regexp.Regexp:
		return svc.idx.subscribeTopicPattern(k, cell)
	default:
		return false, invalidArgumentf("Subscribe: unsupported key type %T", key)
	}
}

// SubscribeVeto is the vetoer analogue of Subscribe. GenericType has no
// veto dimension (§1.1); passing a ParamType key returns InvalidArgument.
func (svc *Service) SubscribeVeto(key any, vetoer any) (bool, error) {
	return svc.subscribeVetoCell(key, weakref.NewStrong(vetoer))
}

// SubscribeVetoWeak is SubscribeVeto's weak-reference counterpart.
func SubscribeVetoWeak[T any](svc *Service, key any, vetoer *T) (bool, error) {
	return svc.subscribeVetoCell(key, weakref.NewWeak(vetoer))
}

func (svc *Service) subscribeVetoCell(key any, cell weakref.Cell) (bool, error) {
	switch k := key.(type) {
	case reflect.Type:
		if k == nil {
			return false, invalidArgumentf("SubscribeVeto: class key must not be nil")
		}
		if classKeyDimension(k) {
			return svc.idx.subscribeClassHierVeto(k, cell)
		}
		return svc.idx.subscribeClassExactVeto(k, cell)
	case string:
		return svc.idx.subscribeTopicExactVeto(k, cell)
	case *regexp.Regexp:
		return svc.idx.subscribeTopicPatternVeto(k, cell)
	case ParamType:
		return false, invalidArgumentf("SubscribeVeto: GenericType has no veto dimension")
	default:
		return false, invalidArgumentf("SubscribeVeto: unsupported key type %T", key)
	}
}

// Unsubscribe removes the subscription matching target under key.
// Matches Proxy cells by their proxied target, per spec §6.
func (svc *Service) Unsubscribe(key any, target any) (bool, error) {
	switch k := key.(type) {
	case reflect.Type:
		if k == nil {
			return false, invalidArgumentf("Unsubscribe: class key must not be nil")
		}
		if classKeyDimension(k) {
			return svc.idx.unsubscribeClassMap(svc.idx.classHierSubs, k, target)
		}
		return svc.idx.unsubscribeClassMap(svc.idx.classExactSubs, k, target)
	case ParamType:
		return svc.idx.unsubscribeGenericType(k, target)
	case string:
		return svc.idx.unsubscribeTopicMap(svc.idx.topicExactSubs, k, target)
	case *regexp.Regexp:
		return svc.idx.unsubscribePattern(svc.idx.topicPatternSubs, k, target)
	default:
		return false, invalidArgumentf("Unsubscribe: unsupported key type %T", key)
	}
}

// UnsubscribeVeto is Unsubscribe's vetoer counterpart.
func (svc *Service) UnsubscribeVeto(key any, target any) (bool, error) {
	switch k := key.(type) {
	case reflect.Type:
		if k == nil {
			return false, invalidArgumentf("UnsubscribeVeto: class key must not be nil")
		}
		if classKeyDimension(k) {
			return svc.idx.unsubscribeClassMap(svc.idx.classHierVetoes, k, target)
		}
		return svc.idx.unsubscribeClassMap(svc.idx.classExactVetoes, k, target)
	case string:
		return svc.idx.unsubscribeTopicMap(svc.idx.topicExactVetoes, k, target)
	case *regexp.Regexp:
		return svc.idx.unsubscribePattern(svc.idx.topicPatternVetoes, k, target)
	default:
		return false, invalidArgumentf("UnsubscribeVeto: unsupported key type %T", key)
	}
}

// ClearAllSubscribers removes every subscription and vetoer, leaving
// cache state untouched.
func (svc *Service) ClearAllSubscribers() {
	svc.idx.clearAll()
}

// --- Cache operations -----------------------------------------------------

func (svc *Service) SetDefaultCacheSize(n int) { svc.cache.SetDefaultCacheSize(n) }

func (svc *Service) SetCacheSizeForClass(t reflect.Type, n int) error {
	return svc.cache.SetCacheSizeForClass(t, n)
}

func (svc *Service) SetCacheSizeForTopic(topic string, n int) { svc.cache.SetCacheSizeForTopic(topic, n) }

func (svc *Service) SetCacheSizeForTopicPattern(re *regexp.Regexp, n int) error {
	return svc.cache.SetCacheSizeForTopicPattern(re, n)
}

func (svc *Service) GetLastEvent(t reflect.Type) (any, bool, error) { return svc.cache.GetLastEvent(t) }

func (svc *Service) GetCachedEvents(t reflect.Type) ([]any, error) { return svc.cache.GetCachedEvents(t) }

func (svc *Service) GetLastTopicData(topic string) (any, bool) { return svc.cache.GetLastTopicData(topic) }

func (svc *Service) GetCachedTopicData(topic string) []any { return svc.cache.GetCachedTopicData(topic) }

func (svc *Service) ClearCache() { svc.cache.ClearCache() }

func (svc *Service) ClearCacheForClass(t reflect.Type) { svc.cache.ClearCacheForClass(t) }

func (svc *Service) ClearCacheForTopic(topic string) { svc.cache.ClearCacheForTopic(topic) }

func (svc *Service) ClearCacheForTopicPattern(re *regexp.Regexp) {
	svc.cache.ClearCacheForTopicPattern(re)
}

// --- Reaper tuning ----------------------------------------------------------

func (svc *Service) SetCleanupStartThreshold(n *int) { svc.rpr.SetCleanupStartThreshold(n) }
func (svc *Service) CleanupStartThreshold() *int     { return svc.rpr.CleanupStartThreshold() }

func (svc *Service) SetCleanupStopThreshold(n *int) { svc.rpr.SetCleanupStopThreshold(n) }
func (svc *Service) CleanupStopThreshold() *int     { return svc.rpr.CleanupStopThreshold() }

func (svc *Service) SetCleanupPeriod(d *time.Duration) { svc.rpr.SetCleanupPeriod(d) }
func (svc *Service) CleanupPeriod() *time.Duration     { return svc.rpr.CleanupPeriod() }

// Close stops the reaper's background ticker, if running. A Service
// with no reaper activity is a no-op to close.
func (svc *Service) Close() {
	svc.rpr.stopNow()
}

// --- Timing monitor ---------------------------------------------------------

// ConfigureTimingMonitor installs a timing monitor per spec §4.6. When
// selfSubscribe is true, an internal logger is subscribed to TimingTopic.
func (svc *Service) ConfigureTimingMonitor(threshold *time.Duration, selfSubscribe bool) error {
	tm, err := newTimingMonitor(threshold, selfSubscribe)
	if err != nil {
		return err
	}
	svc.timingMu.Lock()
	svc.timing = tm
	svc.timingMu.Unlock()

	if selfSubscribe {
		svc.Subscribe(TimingTopic, timingLogger{})
	}
	return nil
}

func (svc *Service) currentTiming() *timingMonitor {
	svc.timingMu.RLock()
	defer svc.timingMu.RUnlock()
	return svc.timing
}
