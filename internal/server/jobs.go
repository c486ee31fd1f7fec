package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"scenarioctl/internal/api"
	"scenarioctl/internal/report"
	"scenarioctl/internal/state"
	"scenarioctl/pkg/logging"
)

const maxJobBody = 10 << 20

func jobHref(job *state.Job) string {
	return rootHref + "/jobs/" + job.ID()
}

func jobRepresentation(job *state.Job) map[string]any {
	self := jobHref(job)
	repr, _ := withLinks(job.Meta(), map[string]any{
		"self":     link{Href: self},
		"progress": link{Href: self + "/progress"},
		"results":  link{Href: self + "/results"},
		"metrics":  link{Href: self + "/metrics"},
		"items":    link{Href: self + "/items"},
		"cancel":   link{Href: self + "/cancel"},
		"events":   link{Href: self + "/events"},
	})
	return repr
}

// job looks up the job named in the path, answering 404 if there is none.
func (s *Server) job(w http.ResponseWriter, r *http.Request) *state.Job {
	job, ok := s.hub.JobByID(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return nil
	}
	return job
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.hub.MostRecentJobs(10)
	links := make([]link, 0, len(jobs))
	embedded := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		links = append(links, link{Href: jobHref(job)})
		embedded = append(embedded, jobRepresentation(job))
	}
	writeResource(w, rootHref+"/jobs", map[string]any{
		"_links":    map[string]any{"job": links},
		"_embedded": map[string]any{"job": embedded},
	})
}

// handleCreateJob starts a job for a JSON array of items. Items that were
// preprocessed already (by a remote client) are used as they are, anything
// else is preprocessed with the server context.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBody)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("expected a JSON array of items: %w", err))
		return
	}

	items := make([]api.Item, 0, len(raw))
	for i, data := range raw {
		it, err := s.decodeItem(r, data)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("item %d: %w", i, err))
			return
		}
		items = append(items, it)
	}

	job, err := s.hub.CreateJob(items)
	if errors.Is(err, api.ErrJobInProgress) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.startJob(job)
	logging.Info("Server", "Started job %s with %d items", job.ID(), len(items))
	w.Header().Set("Location", jobHref(job))
	writeJSON(w, http.StatusCreated, jobRepresentation(job))
}

func (s *Server) decodeItem(r *http.Request, data json.RawMessage) (api.Item, error) {
	var def api.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return api.Item{}, err
	}
	if api.IsPreprocessed(def) {
		var it api.Item
		if err := json.Unmarshal(data, &it); err != nil {
			return api.Item{}, err
		}
		return it, nil
	}
	return s.loader.Pre(r.Context(), s.config.Context.Clone(), def)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	writeResource(w, jobHref(job), jobRepresentation(job))
}

func (s *Server) handleJobItems(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Items())
}

// handleCancel cancels a job and answers with its meta data once it has
// finished.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	if err := job.Cancel(r.Context()); err != nil {
		logging.Debug("Server", "Cancel of job %s abandoned: %v", job.ID(), err)
		return
	}
	writeJSON(w, http.StatusOK, job.Meta())
}

// handleStream sends the records of one notification type until the job has
// finished.
func (s *Server) handleStream(typ api.NotificationType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := s.job(w, r)
		if job == nil {
			return
		}

		writer := newRecordWriter(w, r)
		w.Header().Set("Cache-Control", "no-cache")
		sent := 0
		for record := range job.Stream(r.Context(), typ) {
			if err := writer.write(record); err != nil {
				logging.Debug("Server", "Stream of job %s ended: %v", job.ID(), err)
				return
			}
			sent++
		}
		writer.end()

		if typ == api.NotifyResult && job.Finished() {
			logRunSummary(job)
		}
		logging.Debug("Server", "Sent %d %s records of job %s", sent, strings.ToLower(string(typ)), job.ID())
	}
}

func logRunSummary(job *state.Job) {
	c := report.Count(job.Results())
	logging.Info("Server", "Run complete: %d/%d/%d/%d (success/skipped/failure/error)",
		c.Success, c.Skipped, c.Failure, c.Error)
}
