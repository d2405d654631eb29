package eventbus

import "time"

// Option configures a Service at construction time, the generalized
// form of lomik-hub's hub_options.go HubOption pattern: each Option is
// sugar over a setter the Service also exposes directly, so
// construction by code never requires going through New's options.
type Option func(*Service)

// WithDefaultCacheSize sets the cache cap used when no class or topic
// key resolves to anything more specific.
func WithDefaultCacheSize(n int) Option {
	return func(svc *Service) { svc.SetDefaultCacheSize(n) }
}

// WithCleanupThresholds configures the reaper's high/low water marks
// and poll period in one call.
func WithCleanupThresholds(high, low int, period time.Duration) Option {
	return func(svc *Service) {
		h, l, p := high, low, period
		svc.SetCleanupStartThreshold(&h)
		svc.SetCleanupStopThreshold(&l)
		svc.SetCleanupPeriod(&p)
	}
}

// WithTimingMonitor installs a timing monitor at construction time. Any
// error from ConfigureTimingMonitor (only possible misuse: selfSubscribe
// without a threshold) is silently ignored here — build with New and
// call ConfigureTimingMonitor directly to observe that error.
func WithTimingMonitor(threshold time.Duration, selfSubscribe bool) Option {
	return func(svc *Service) {
		t := threshold
		_ = svc.ConfigureTimingMonitor(&t, selfSubscribe)
	}
}

// WithExceptionHandler overrides the sink subscriber/vetoer errors are
// routed through.
func WithExceptionHandler(h ExceptionHandler) Option {
	return func(svc *Service) { svc.SetExceptionHandler(h) }
}
