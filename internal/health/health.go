// Package health tracks request outcomes in sliding windows and the
// process shutdown flag. The health handler reads these to classify the
// service as healthy, degraded, overloaded, idle, or shutting down.
package health

import (
	"sync"
	"sync/atomic"
	"time"
)

// retention bounds how long outcome timestamps are kept. Windows larger
// than this under-count.
const retention = 30 * time.Minute

var (
	defaultWindows Windows
	shuttingDown   atomic.Bool
)

// SetShuttingDown marks the process as draining. Set on SIGTERM/SIGINT;
// the health handler answers 503 shutting-down while true.
func SetShuttingDown(v bool) { shuttingDown.Store(v) }

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool { return shuttingDown.Load() }

// RecordSuccess records a successfully served query.
func RecordSuccess() { defaultWindows.RecordSuccess() }

// RecordError records a failed query (agent failure, upstream error).
func RecordError() { defaultWindows.RecordError() }

// RecordDenial records a rate-limit denial (429).
func RecordDenial() { defaultWindows.RecordDenial() }

// RecordSuccessN and RecordErrorN record N outcomes. For the synthetic
// load endpoints in testing mode.
func RecordSuccessN(n int) { defaultWindows.RecordSuccessN(n) }
func RecordErrorN(n int)   { defaultWindows.RecordErrorN(n) }

// ErrorRate returns (errors, successes+errors) within the window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultWindows.ErrorRate(window)
}

// RequestCount returns all outcomes (including denials) within the window.
func RequestCount(window time.Duration) int { return defaultWindows.RequestCount(window) }

// DenialCount returns denials within the window.
func DenialCount(window time.Duration) int { return defaultWindows.DenialCount(window) }

// ActivityCount returns served queries (success + error) within the
// window. Drives idle detection.
func ActivityCount(window time.Duration) int { return defaultWindows.ActivityCount(window) }

// Reset clears recorded outcomes and the shutdown flag. For tests only.
func Reset() {
	defaultWindows.Reset()
	shuttingDown.Store(false)
}

// Windows holds timestamped outcome records and answers counting queries
// over trailing windows. The zero value is ready to use.
type Windows struct {
	mu        sync.Mutex
	successes []time.Time
	errors    []time.Time
	denials   []time.Time
}

func (w *Windows) RecordSuccess() { w.record(&w.successes, 1) }
func (w *Windows) RecordError()   { w.record(&w.errors, 1) }
func (w *Windows) RecordDenial()  { w.record(&w.denials, 1) }

func (w *Windows) RecordSuccessN(n int) { w.record(&w.successes, n) }
func (w *Windows) RecordErrorN(n int)   { w.record(&w.errors, n) }

func (w *Windows) record(dst *[]time.Time, n int) {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < n; i++ {
		*dst = append(*dst, now)
	}
	w.pruneLocked(now)
}

// ErrorRate returns (errors, successes+errors) within the window.
// Denials are excluded: a shed request is not a service failure.
func (w *Windows) ErrorRate(window time.Duration) (errs, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := time.Now().Add(-window)
	errs = countSince(w.errors, cutoff)
	total = errs + countSince(w.successes, cutoff)
	return errs, total
}

func (w *Windows) RequestCount(window time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := time.Now().Add(-window)
	return countSince(w.successes, cutoff) + countSince(w.errors, cutoff) + countSince(w.denials, cutoff)
}

func (w *Windows) DenialCount(window time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return countSince(w.denials, time.Now().Add(-window))
}

func (w *Windows) ActivityCount(window time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := time.Now().Add(-window)
	return countSince(w.successes, cutoff) + countSince(w.errors, cutoff)
}

func (w *Windows) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.successes, w.errors, w.denials = nil, nil, nil
}

func (w *Windows) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	w.successes = dropBefore(w.successes, cutoff)
	w.errors = dropBefore(w.errors, cutoff)
	w.denials = dropBefore(w.denials, cutoff)
}

func countSince(ts []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range ts {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

func dropBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts) && ts[i].Before(cutoff); i++ {
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
