package progress

import (
	"math"
	"sync"
	"time"

	"scenarioctl/internal/api"
)

// DefaultInterval is the reporting period of a Reporter.
const DefaultInterval = 250 * time.Millisecond

// Notifier receives progress notifications. Done closes once the job finishes.
type Notifier interface {
	Notify(typ api.NotificationType, payload any)
	Done() <-chan struct{}
}

// Options configures a Reporter.
type Options struct {
	// Duration is the expected run time, progress by time is elapsed/Duration
	Duration time.Duration
	// Probe reports progress by work done, between 0 and 1
	Probe func() float64
	// Interval between periodic reports, DefaultInterval if zero
	Interval time.Duration
}

// Reporter periodically publishes the progress of one item.
type Reporter struct {
	notifier Notifier
	id       int
	opts     Options
	started  time.Time

	mu       sync.Mutex
	stopped  bool
	stopChan chan struct{}
}

// Start begins reporting progress for the item with the given id.
func Start(n Notifier, id int, opts Options) *Reporter {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	r := &Reporter{
		notifier: n,
		id:       id,
		opts:     opts,
		started:  time.Now(),
		stopChan: make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Reporter) loop() {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-r.notifier.Done():
			r.Stop()
			return
		case <-ticker.C:
			r.Update()
		}
	}
}

// Fraction returns the current progress estimate: the larger of the time based
// and the probe based estimates, clamped to [0, 1].
func (r *Reporter) Fraction() float64 {
	var byTime, byWork float64
	if r.opts.Duration > 0 {
		byTime = float64(time.Since(r.started)) / float64(r.opts.Duration)
	}
	if r.opts.Probe != nil {
		byWork = r.opts.Probe()
	}
	return clamp(max(byTime, byWork))
}

// Update publishes the current progress immediately.
func (r *Reporter) Update() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.notifier.Notify(api.NotifyProgress, api.Progress{ID: r.id, Progress: r.Fraction()})
}

// Stop ends reporting. Once it returns no further progress is published. It
// is safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.stopped = true
		close(r.stopChan)
	}
}

func clamp(f float64) float64 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	}
	return f
}
