package common

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watchdog closes its Done channel when no activity is recorded within the timeout.
type Watchdog struct {
	name    string
	timeout time.Duration
	timer   *time.Timer
	doneCh  chan struct{}
	once    sync.Once
	mu      sync.Mutex
	running bool
	fired   bool
	log     *zap.SugaredLogger
}

// NewWatchdog creates a new Watchdog for the named activity.
// If timeout is <= 0, the watchdog is inert and never times out.
func NewWatchdog(name string, timeout time.Duration, log *zap.SugaredLogger) *Watchdog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watchdog{
		name:    name,
		timeout: timeout,
		doneCh:  make(chan struct{}),
		log:     log,
	}
}

// Start begins the monitoring. It returns a channel that will be closed on timeout.
func (w *Watchdog) Start() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return w.doneCh
	}
	w.running = true

	if w.timeout <= 0 {
		return w.doneCh
	}

	w.timer = time.AfterFunc(w.timeout, w.close)
	return w.doneCh
}

// Kick resets the timeout.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running || w.timer == nil || w.fired {
		return
	}
	w.timer.Reset(w.timeout)
}

// Stop prevents the timeout from firing.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}

// Done returns the channel that is closed on timeout.
func (w *Watchdog) Done() <-chan struct{} {
	return w.doneCh
}

// Fired reports whether the timeout has triggered.
func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

func (w *Watchdog) close() {
	w.once.Do(func() {
		w.mu.Lock()
		w.fired = true
		w.mu.Unlock()
		w.log.Warnf("%s: no activity for %v, giving up", w.name, w.timeout)
		close(w.doneCh)
	})
}
