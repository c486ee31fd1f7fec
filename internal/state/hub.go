package state

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"scenarioctl/internal/api"
	"scenarioctl/pkg/logging"
)

// Hub creates jobs and keeps them for the lifetime of the process.
type Hub struct {
	concurrent bool
	now        func() time.Time

	mu   sync.Mutex
	seq  int
	jobs []*Job
	byID map[string]*Job
}

// Option configures a Hub.
type Option func(*Hub)

// WithConcurrency allows jobs to be created while others are still running.
func WithConcurrency(concurrent bool) Option {
	return func(h *Hub) {
		h.concurrent = concurrent
	}
}

// WithClock replaces the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub creates an empty hub. By default only one job may run at a time.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		now:  time.Now,
		byID: map[string]*Job{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Filter selects jobs. Zero fields match every job.
type Filter struct {
	ID      string
	Created time.Time
}

// CreateJob registers a new job for items. Unless the hub is concurrent it fails
// with api.ErrJobInProgress while another job has not finished.
func (h *Hub) CreateJob(items []api.Item) (*Job, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.concurrent {
		for _, j := range h.jobs {
			if !j.Finished() {
				meta := j.Meta()
				return nil, fmt.Errorf("%w: cannot start job until job %s (started %s) is done",
					api.ErrJobInProgress, meta.ID, meta.Started.Format(time.RFC3339))
			}
		}
	}

	h.seq++
	id := strconv.Itoa(h.seq)
	j := newJob(h.seq, id, h.now(), copyOf(items))
	h.jobs = append(h.jobs, j)
	h.byID[id] = j

	logging.Debug("State", "Created job %s with %d items", id, len(items))
	return j, nil
}

// JobByID returns the job with the given id.
func (h *Hub) JobByID(id string) (*Job, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	j, ok := h.byID[id]
	return j, ok
}

// CurrentJobs returns the jobs that have not finished, most recent first.
func (h *Hub) CurrentJobs() []*Job {
	return h.selectJobs(func(j *Job) bool { return !j.Finished() })
}

// MostRecentJobs returns up to limit jobs, most recent first.
func (h *Hub) MostRecentJobs(limit int) []*Job {
	jobs := h.selectJobs(nil)
	if limit >= 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

// MatchingJobs returns the jobs matching f, most recent first.
func (h *Hub) MatchingJobs(f Filter) []*Job {
	return h.selectJobs(func(j *Job) bool {
		if f.ID != "" && j.ID() != f.ID {
			return false
		}
		if !f.Created.IsZero() && !j.Meta().Created.Equal(f.Created) {
			return false
		}
		return true
	})
}

func (h *Hub) selectJobs(keep func(*Job) bool) []*Job {
	h.mu.Lock()
	var out []*Job
	for _, j := range h.jobs {
		if keep == nil || keep(j) {
			out = append(out, j)
		}
	}
	h.mu.Unlock()

	slices.SortFunc(out, func(a, b *Job) int {
		if c := b.meta.Created.Compare(a.meta.Created); c != 0 {
			return c
		}
		return b.seq - a.seq
	})
	return out
}
