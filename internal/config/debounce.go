package config

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of calls to trigger into a single firing of
// fn after the interval has passed with no further calls, matching the
// teacher's file-watcher debounce behavior for config hot-reload.
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	fn       func()
}

func newDebouncer(interval time.Duration, fn func()) *debouncer {
	return &debouncer{interval: interval, fn: fn}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fn)
}
