package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenarioctl/internal/api"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []api.Progress
	done    chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{})}
}

func (n *recordingNotifier) Notify(typ api.NotificationType, payload any) {
	if typ != api.NotifyProgress {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, payload.(api.Progress))
}

func (n *recordingNotifier) Done() <-chan struct{} { return n.done }

func (n *recordingNotifier) snapshot() []api.Progress {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]api.Progress(nil), n.updates...)
}

func TestReporter_TicksUntilStopped(t *testing.T) {
	n := newRecordingNotifier()
	r := Start(n, 4, Options{Duration: time.Second, Interval: 5 * time.Millisecond})

	require.Eventually(t, func() bool { return len(n.snapshot()) >= 3 }, time.Second, time.Millisecond)
	r.Stop()
	count := len(n.snapshot())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, len(n.snapshot()), "no reports after Stop")
	for _, u := range n.snapshot() {
		assert.Equal(t, 4, u.ID)
		assert.GreaterOrEqual(t, u.Progress, 0.0)
		assert.LessOrEqual(t, u.Progress, 1.0)
	}

	r.Update()
	assert.Equal(t, count, len(n.snapshot()), "Update after Stop is ignored")
	r.Stop()
}

func TestReporter_StopWaitsForUpdateInFlight(t *testing.T) {
	n := newRecordingNotifier()
	probing := make(chan struct{}, 1)
	r := Start(n, 2, Options{
		Interval: time.Millisecond,
		Probe: func() float64 {
			select {
			case probing <- struct{}{}:
			default:
			}
			time.Sleep(30 * time.Millisecond)
			return 0.5
		},
	})

	<-probing
	r.Stop()
	count := len(n.snapshot())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, count, len(n.snapshot()), "no reports once Stop returned")
}

func TestReporter_StopsWhenJobFinishes(t *testing.T) {
	n := newRecordingNotifier()
	_ = Start(n, 1, Options{Interval: 5 * time.Millisecond})

	require.Eventually(t, func() bool { return len(n.snapshot()) >= 1 }, time.Second, time.Millisecond)
	close(n.done)
	time.Sleep(20 * time.Millisecond)
	count := len(n.snapshot())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, len(n.snapshot()))
}

func TestReporter_FractionUsesLargerEstimate(t *testing.T) {
	n := newRecordingNotifier()
	probe := 0.75
	r := Start(n, 1, Options{Duration: time.Hour, Probe: func() float64 { return probe }, Interval: time.Hour})
	defer r.Stop()

	assert.InDelta(t, 0.75, r.Fraction(), 0.001)

	probe = 3
	assert.Equal(t, 1.0, r.Fraction())

	r.Update()
	updates := n.snapshot()
	require.Len(t, updates, 1)
	assert.Equal(t, 1.0, updates[0].Progress)
}

func TestReporter_TimeFraction(t *testing.T) {
	n := newRecordingNotifier()
	r := Start(n, 1, Options{Duration: 20 * time.Millisecond, Interval: time.Hour})
	defer r.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1.0, r.Fraction())
}
