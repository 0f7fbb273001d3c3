package attempt

import (
	"sort"
	"sync"
	"time"
)

// DefaultWarnings are the minutes-remaining thresholds announced by a timer.
var DefaultWarnings = []time.Duration{10 * time.Minute, 5 * time.Minute, 2 * time.Minute, time.Minute}

type TimerConfig struct {
	Seconds   int
	Warnings  []time.Duration
	OnWarning func(threshold time.Duration, remaining int)
	OnExpire  func()
}

// Timer is a whole-second countdown advanced by Tick. Callbacks run after the
// timer's lock is released, so they may call back into the timer.
type Timer struct {
	mu         sync.Mutex
	remaining  int
	thresholds []int // seconds, descending
	next       int
	paused     bool
	stopped    bool
	fired      bool
	onWarning  func(threshold time.Duration, remaining int)
	onExpire   func()
}

func NewTimer(cfg TimerConfig) *Timer {
	ths := make([]int, 0, len(cfg.Warnings))
	for _, w := range cfg.Warnings {
		s := int(w / time.Second)
		// a threshold at or above the starting value is never crossed
		if s > 0 && s < cfg.Seconds {
			ths = append(ths, s)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ths)))
	return &Timer{
		remaining:  cfg.Seconds,
		thresholds: dedupe(ths),
		onWarning:  cfg.OnWarning,
		onExpire:   cfg.OnExpire,
	}
}

// Tick decrements by one second unless paused, stopped or already expired.
func (t *Timer) Tick() {
	t.mu.Lock()
	if t.paused || t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	warn, expire := t.collect()
	t.mu.Unlock()
	t.dispatch(warn, expire)
}

// Sync lowers the remaining time to an externally computed value, firing any
// thresholds crossed on the way. It never raises the countdown.
func (t *Timer) Sync(remaining int) {
	t.mu.Lock()
	if t.paused || t.stopped || t.fired || remaining >= t.remaining {
		t.mu.Unlock()
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	warn, expire := t.collect()
	t.mu.Unlock()
	t.dispatch(warn, expire)
}

func (t *Timer) collect() (warn []int, expire bool) {
	for t.next < len(t.thresholds) && t.remaining <= t.thresholds[t.next] {
		warn = append(warn, t.thresholds[t.next])
		t.next++
	}
	if t.remaining <= 0 && !t.fired {
		t.fired = true
		expire = true
	}
	return warn, expire
}

func (t *Timer) dispatch(warn []int, expire bool) {
	if t.onWarning != nil {
		for _, w := range warn {
			t.onWarning(time.Duration(w)*time.Second, t.Remaining())
		}
	}
	if expire && t.onExpire != nil {
		t.onExpire()
	}
}

func (t *Timer) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

func (t *Timer) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
}

// Stop disarms the timer; later ticks are no-ops.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Expired reports whether the expiry callback has fired.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
