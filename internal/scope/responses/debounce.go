package responses

import (
	"sync"
	"time"

	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
)

// Stopper cancels one scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs fn once after d. fn must not run on the caller's goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Stopper
}

// ClockScheduler schedules on wall-clock timers.
type ClockScheduler struct{}

func (ClockScheduler) AfterFunc(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, fn)
}

// NotifyFunc receives the latest responses snapshot once a burst of edits settles.
type NotifyFunc func(snapshot models.Responses)

// Debouncer delivers trailing-edge notifications. Every Trigger supersedes the
// pending token, so only the latest snapshot is delivered.
type Debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	scheduler Scheduler
	notify    NotifyFunc
	logger    logger.Logger

	token   uint64
	timer   Stopper
	pending bool
	latest  models.Responses
}

func NewDebouncer(delay time.Duration, scheduler Scheduler, notify NotifyFunc, log logger.Logger) *Debouncer {
	if scheduler == nil {
		scheduler = ClockScheduler{}
	}
	return &Debouncer{
		delay:     delay,
		scheduler: scheduler,
		notify:    notify,
		logger:    log,
	}
}

// Trigger records snapshot and restarts the delay.
func (d *Debouncer) Trigger(snapshot models.Responses) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.token++
	d.latest = snapshot
	d.pending = true

	token := d.token
	d.timer = d.scheduler.AfterFunc(d.delay, func() { d.fire(token) })
}

// Flush delivers a pending notification now. It reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	d.stopLocked()
	d.token++
	snapshot := d.takeLocked()
	d.mu.Unlock()

	d.deliver(snapshot, "flush")
	return true
}

// Cancel drops any pending notification without delivering it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending {
		d.logger.Debug("pending response notification cancelled", nil)
	}
	d.stopLocked()
	d.token++
	d.takeLocked()
}

// Pending reports whether a notification is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) fire(token uint64) {
	d.mu.Lock()
	if token != d.token || !d.pending {
		d.mu.Unlock()
		return
	}
	snapshot := d.takeLocked()
	d.mu.Unlock()

	d.deliver(snapshot, "timer")
}

func (d *Debouncer) deliver(snapshot models.Responses, trigger string) {
	d.logger.Debug("delivering response notification", map[string]interface{}{
		"trigger": trigger,
		"fields":  len(snapshot),
	})
	if d.notify != nil {
		d.notify(snapshot)
	}
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) takeLocked() models.Responses {
	snapshot := d.latest
	d.latest = nil
	d.pending = false
	d.timer = nil
	return snapshot
}
