package state

import (
	"context"
	"sync"

	"scenarioctl/internal/api"
)

// Stream delivers every record of the given type: first those already known,
// then live ones as they are notified. The channel is closed once the job has
// finished and every record was delivered, or when ctx ends.
//
// Records are RESULT: api.Result, PROGRESS: api.Progress, METRIC:
// api.MetricGroup and META: api.Meta.
func (j *Job) Stream(ctx context.Context, typ api.NotificationType) <-chan any {
	q := &queue{ready: make(chan struct{}, 1)}

	j.mu.Lock()
	q.push(j.snapshotLocked(typ)...)
	unsubscribe := j.subscribeLocked(typ, func(record any) { q.push(record) })
	j.mu.Unlock()

	out := make(chan any)
	go func() {
		defer close(out)
		defer unsubscribe()

		send := func() bool {
			for _, record := range q.take() {
				select {
				case out <- record:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		for {
			if !send() {
				return
			}
			select {
			case <-q.ready:
			case <-j.done:
				send()
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (j *Job) snapshotLocked(typ api.NotificationType) []any {
	var out []any
	switch typ {
	case api.NotifyResult:
		for _, r := range copyOf(j.results) {
			out = append(out, r)
		}
	case api.NotifyProgress:
		for _, p := range j.progressLocked() {
			out = append(out, p)
		}
	case api.NotifyMetric:
		for _, g := range j.metrics.Groups() {
			out = append(out, g)
		}
	case api.NotifyMeta:
		out = append(out, copyMeta(j.meta))
	}
	return out
}

// queue is an unbounded FIFO, so that slow readers never block Notify.
type queue struct {
	mu      sync.Mutex
	records []any
	ready   chan struct{}
}

func (q *queue) push(records ...any) {
	if len(records) == 0 {
		return
	}
	q.mu.Lock()
	q.records = append(q.records, records...)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue) take() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	records := q.records
	q.records = nil
	return records
}
