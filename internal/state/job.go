package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"

	"scenarioctl/internal/api"
	"scenarioctl/internal/progress"
	"scenarioctl/pkg/logging"
)

type subscription struct {
	id  string
	typ api.NotificationType
	fn  api.Subscriber
}

// Job is one execution of a list of scenario items.
type Job struct {
	seq int

	mu            sync.Mutex
	meta          api.Meta
	items         []api.Item
	results       []api.Result
	progress      map[int]api.Progress
	progressOrder []int
	metrics       *progress.MetricSet
	subs          []*subscription
	cancelled     chan struct{}
	done          chan struct{}
}

func newJob(seq int, id string, created time.Time, items []api.Item) *Job {
	return &Job{
		seq:       seq,
		meta:      api.Meta{ID: id, Created: created, Started: created},
		items:     items,
		progress:  map[int]api.Progress{},
		metrics:   progress.NewMetricSet(),
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the job id.
func (j *Job) ID() string {
	return j.meta.ID
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancelled is closed once the job has received a CANCEL notification. It
// stays closed, so a runner that starts late still sees it.
func (j *Job) Cancelled() <-chan struct{} {
	return j.cancelled
}

// Finished reports whether the job has finished.
func (j *Job) Finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.meta.Done()
}

// Notify applies a notification to the job and passes the resulting record to
// the subscribers of its type.
func (j *Job) Notify(typ api.NotificationType, payload any) {
	j.mu.Lock()
	if j.meta.Done() {
		j.mu.Unlock()
		logging.Debug("State", "Finished job %s received %s notification, dropped", j.meta.ID, typ)
		return
	}

	record, ok := j.applyLocked(typ, payload)
	if !ok {
		j.mu.Unlock()
		return
	}

	var targets []*subscription
	for _, s := range j.subs {
		if s.typ == typ {
			targets = append(targets, s)
		}
	}
	finished := j.meta.Done()
	if finished {
		j.subs = nil
	}
	outcome := j.meta.Outcome
	j.mu.Unlock()

	for _, s := range targets {
		s.fn(record)
	}

	if finished {
		logging.Debug("State", "Job %s finished with outcome %s", j.meta.ID, outcome)
		close(j.done)
	}
}

func (j *Job) applyLocked(typ api.NotificationType, payload any) (any, bool) {
	switch typ {
	case api.NotifyCancel:
		select {
		case <-j.cancelled:
		default:
			close(j.cancelled)
		}
		return payload, true

	case api.NotifyResult:
		r, ok := payload.(api.Result)
		if !ok {
			return j.unexpected(typ, payload)
		}
		j.results = append(j.results, copyOf(r))
		j.clearProgressLocked(r.Subject.ID)
		return copyOf(r), true

	case api.NotifyProgress:
		p, ok := payload.(api.Progress)
		if !ok {
			return j.unexpected(typ, payload)
		}
		current, exists := j.progress[p.ID]
		if !exists {
			current = api.Progress{ID: p.ID, Started: time.Now()}
			j.progressOrder = append(j.progressOrder, p.ID)
		}
		if !p.Started.IsZero() {
			current.Started = p.Started
		}
		current.Progress = p.Progress
		j.progress[p.ID] = current
		return current, true

	case api.NotifyMetric:
		e, ok := payload.(api.MetricEntry)
		if !ok {
			return j.unexpected(typ, payload)
		}
		return j.metrics.Add(e), true

	case api.NotifyMeta:
		m, ok := payload.(api.Meta)
		if !ok {
			return j.unexpected(typ, payload)
		}
		if m.Outcome != "" {
			j.meta.Outcome = m.Outcome
		}
		if m.Finished != nil {
			finished := *m.Finished
			j.meta.Finished = &finished
		}
		return copyMeta(j.meta), true
	}

	logging.Debug("State", "Job %s received unknown notification type %q, dropped", j.meta.ID, typ)
	return nil, false
}

func (j *Job) unexpected(typ api.NotificationType, payload any) (any, bool) {
	logging.Debug("State", "Job %s received %s notification with unexpected payload %T, dropped", j.meta.ID, typ, payload)
	return nil, false
}

func (j *Job) clearProgressLocked(id int) {
	if _, ok := j.progress[id]; !ok {
		return
	}
	delete(j.progress, id)
	for i, pid := range j.progressOrder {
		if pid == id {
			j.progressOrder = append(j.progressOrder[:i], j.progressOrder[i+1:]...)
			break
		}
	}
}

// Subscribe registers fn for notifications of typ and returns a function that
// removes the subscription. Subscribing to a finished job has no effect.
func (j *Job) Subscribe(typ api.NotificationType, fn api.Subscriber) func() {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.subscribeLocked(typ, fn)
}

func (j *Job) subscribeLocked(typ api.NotificationType, fn api.Subscriber) func() {
	if j.meta.Done() {
		return func() {}
	}
	s := &subscription{id: uuid.NewString(), typ: typ, fn: fn}
	j.subs = append(j.subs, s)
	return func() { j.unsubscribe(s.id) }
}

func (j *Job) unsubscribe(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, s := range j.subs {
		if s.id == id {
			j.subs = append(j.subs[:i:i], j.subs[i+1:]...)
			return
		}
	}
}

// Cancel asks the runner to stop the job and waits until it has finished.
// It returns immediately for a finished job, and ctx.Err() if ctx ends first.
func (j *Job) Cancel(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	default:
	}

	j.Notify(api.NotifyCancel, nil)

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Meta returns a copy of the job meta.
func (j *Job) Meta() api.Meta {
	j.mu.Lock()
	defer j.mu.Unlock()
	return copyMeta(j.meta)
}

// Items returns a copy of the job items.
func (j *Job) Items() []api.Item {
	j.mu.Lock()
	defer j.mu.Unlock()
	return copyOf(j.items)
}

// Results returns a copy of the result log, in order of completion.
func (j *Job) Results() []api.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return copyOf(j.results)
}

// Progress returns a copy of the progress entries of running items.
func (j *Job) Progress() []api.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progressLocked()
}

func (j *Job) progressLocked() []api.Progress {
	out := make([]api.Progress, 0, len(j.progressOrder))
	for _, id := range j.progressOrder {
		out = append(out, j.progress[id])
	}
	return out
}

// Metrics returns a copy of the metric groups.
func (j *Job) Metrics() []api.MetricGroup {
	return j.metrics.Groups()
}

func copyMeta(m api.Meta) api.Meta {
	if m.Finished != nil {
		finished := *m.Finished
		m.Finished = &finished
	}
	return m
}

func copyOf[T any](v T) T {
	return deepcopy.Copy(v).(T)
}
