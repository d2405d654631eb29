package eventbus

import (
	"sync"
	"time"
)

// ReaperEvent is published on ReaperTopic at each lifecycle point spec
// §4.5 names: "starting", "cancelled", "begun", "finished".
type ReaperEvent struct {
	Phase string
	// StaleCount is populated on the "finished" phase only.
	StaleCount int
}

// reaper implements spec §4.5: tracks the index's weak/proxy count,
// lazily starts a ticker once a high-water mark is reached, and stops
// once the count drains to or below a low-water mark. lomik-hub has no background
// maintenance task to ground this on; the lazy-ticker shape follows
// cuemby-warren's worker lifecycle (start-on-demand, stop via a done
// channel) rather than a cron schedule — a fixed polling interval is
// not a calendar job, so robfig/cron (used elsewhere in the pack for
// scheduled tasks) is not a fit here; see DESIGN.md.
type reaper struct {
	mu sync.Mutex

	svc *Service
	idx *subscriberIndex

	highWater *int
	lowWater  *int
	period    *time.Duration

	running bool
	stop    chan struct{}
	done    chan struct{}
}

func newReaper(svc *Service, idx *subscriberIndex) *reaper {
	r := &reaper{svc: svc, idx: idx}
	idx.onWeakCountChange = r.onCountChanged
	return r
}

func (r *reaper) SetCleanupStartThreshold(n *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highWater = n
}

func (r *reaper) CleanupStartThreshold() *int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highWater
}

func (r *reaper) SetCleanupStopThreshold(n *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lowWater = n
}

func (r *reaper) CleanupStopThreshold() *int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lowWater
}

func (r *reaper) SetCleanupPeriod(d *time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.period = d
}

func (r *reaper) CleanupPeriod() *time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.period
}

// onCountChanged is invoked by subscriberIndex under its own lock
// whenever weakOrProxyCount changes. Crossing the high-water mark
// lazily starts the ticker goroutine if one is not already running.
func (r *reaper) onCountChanged(count int) {
	reaperWeakCount.Set(float64(count))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.highWater == nil || r.period == nil {
		return
	}
	if count < *r.highWater {
		return
	}
	r.startLocked()
}

func (r *reaper) startLocked() {
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	period := *r.period
	go r.run(period, r.stop, r.done)
}

func (r *reaper) run(period time.Duration, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !r.tick() {
				return
			}
		}
	}
}

// tick runs one reaper cycle. Returns false if it stopped the ticker
// (count at or below the low-water mark), in which case run exits.
func (r *reaper) tick() bool {
	r.svc.PublishTopic(ReaperTopic, ReaperEvent{Phase: "starting"})

	count := r.idx.weakCount()

	r.mu.Lock()
	low := r.lowWater
	r.mu.Unlock()

	if low != nil && count <= *low {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		r.svc.PublishTopic(ReaperTopic, ReaperEvent{Phase: "cancelled"})
		reaperSweepsTotal.WithLabelValues("cancelled").Inc()
		return false
	}

	r.svc.PublishTopic(ReaperTopic, ReaperEvent{Phase: "begun"})
	stale := r.idx.sweepStale()
	reaperStaleCellsTotal.Add(float64(stale))
	r.svc.PublishTopic(ReaperTopic, ReaperEvent{Phase: "finished", StaleCount: stale})
	reaperSweepsTotal.WithLabelValues("swept").Inc()
	return true
}

// stopNow halts the ticker goroutine without waiting for a tick,
// released when the Service is torn down.
func (r *reaper) stopNow() {
	r.mu.Lock()
	running := r.running
	stop := r.stop
	done := r.done
	r.running = false
	r.mu.Unlock()

	if !running {
		return
	}
	close(stop)
	<-done
}
