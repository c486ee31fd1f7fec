package server

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scenarioctl/internal/api"
	"scenarioctl/internal/state"
	"scenarioctl/pkg/logging"
)

const eventWriteTimeout = 10 * time.Second

// eventTypes are the notifications forwarded over the events websocket.
var eventTypes = []api.NotificationType{api.NotifyMeta, api.NotifyResult, api.NotifyProgress, api.NotifyMetric}

// Event is a notification as sent over the events websocket.
type Event struct {
	Type    api.NotificationType `json:"type"`
	Payload any                  `json:"payload"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host requests, requests without an origin and the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.config.AllowedOrigins, "*") || slices.Contains(s.config.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// handleEvents streams every notification of a job over a websocket and
// closes it once the job has finished.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Server", "Websocket upgrade for job %s failed: %v", job.ID(), err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the client sends nothing, reading only notices when it goes away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range fanIn(ctx, job) {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			logging.Debug("Server", "Events of job %s ended: %v", job.ID(), err)
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
		time.Now().Add(time.Second))
}

// fanIn merges the streams of all event types. The META record of the
// finished job is held back until every other stream has drained, so it is
// always the last event. The channel closes once every stream has ended.
func fanIn(ctx context.Context, job *state.Job) <-chan Event {
	out := make(chan Event)
	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var others sync.WaitGroup
	for _, typ := range eventTypes {
		if typ == api.NotifyMeta {
			continue
		}
		records := job.Stream(ctx, typ)
		others.Add(1)
		go func() {
			defer others.Done()
			for record := range records {
				if !send(Event{Type: typ, Payload: record}) {
					return
				}
			}
		}()
	}

	metas := job.Stream(ctx, api.NotifyMeta)
	go func() {
		defer close(out)
		var final *Event
		for record := range metas {
			ev := Event{Type: api.NotifyMeta, Payload: record}
			if m, ok := record.(api.Meta); ok && m.Done() {
				final = &ev
				continue
			}
			if !send(ev) {
				break
			}
		}
		others.Wait()
		if final != nil {
			send(*final)
		}
	}()
	return out
}
