package server

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"scenarioctl/internal/api"
	"scenarioctl/internal/loader"
	"scenarioctl/pkg/logging"
)

type link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

func scenarioHref(it api.Item) string {
	return rootHref + "/scenarios/" + url.PathEscape(it.Name)
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	writeResource(w, rootHref, map[string]any{
		"_links": map[string]any{
			"version":                   link{Href: rootHref + "/version"},
			"system-under-test-version": link{Href: rootHref + "/system-under-test-version"},
			"context":                   link{Href: rootHref + "/context"},
			"scenarios":                 link{Href: rootHref + "/scenarios{?context}", Templated: true},
			"jobs":                      link{Href: rootHref + "/jobs"},
		},
		"description": "declarative integration and load tester",
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeResource(w, rootHref+"/version", map[string]any{"name": "scenarioctl", "version": s.config.Version})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	writeResource(w, rootHref+"/context", maps.Clone(s.config.Context))
}

func (s *Server) handleSystemUnderTestVersion(w http.ResponseWriter, r *http.Request) {
	self := rootHref + "/system-under-test-version"
	if s.config.SystemUnderTestVersionURL == "" {
		writeResource(w, self, map[string]any{"baseArtifactVersion": nil})
		return
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMax = time.Second
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(r.Context(), http.MethodGet, s.config.SystemUnderTestVersionURL, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	defer resp.Body.Close()

	var version map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("decoding version of system under test: %w", err))
		return
	}
	writeResource(w, self, version)
}

// scenarios loads the configured scenarios. The context query parameter, a
// JSON object, extends the base context.
func (s *Server) scenarios(r *http.Request) ([]api.Item, error) {
	c := s.config.Context.Clone()
	if raw := r.URL.Query().Get("context"); raw != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return nil, fmt.Errorf("invalid context parameter: %w", err)
		}
		maps.Copy(c, extra)
	}

	refs, err := loader.Discover(s.config.Scenarios)
	if err != nil {
		return nil, err
	}
	return s.loader.LoadScenarios(r.Context(), c, refs), nil
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	items, err := s.scenarios(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	links := make([]link, 0, len(items))
	embedded := make([]map[string]any, 0, len(items))
	for _, it := range items {
		links = append(links, link{Href: scenarioHref(it)})
		repr, err := withLinks(it, map[string]any{"self": link{Href: scenarioHref(it)}})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		embedded = append(embedded, repr)
	}

	writeResource(w, rootHref+"/scenarios", map[string]any{
		"_links":    map[string]any{"item": links},
		"_embedded": map[string]any{"item": embedded},
	})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	items, err := s.scenarios(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := r.PathValue("name")
	for _, it := range items {
		if it.Name != name {
			continue
		}
		repr, err := withLinks(it, nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeResource(w, scenarioHref(it), repr)
		return
	}
	writeNotFound(w)
}

// writeResource sends repr with a self link added to its _links.
func writeResource(w http.ResponseWriter, self string, repr map[string]any) {
	links := map[string]any{"self": link{Href: self}}
	if existing, ok := repr["_links"].(map[string]any); ok {
		maps.Copy(links, existing)
	}
	body := maps.Clone(repr)
	if body == nil {
		body = map[string]any{}
	}
	body["_links"] = links
	writeJSON(w, http.StatusOK, body)
}

// withLinks turns v into a JSON object carrying links.
func withLinks(v any, links map[string]any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var repr map[string]any
	if err := json.Unmarshal(data, &repr); err != nil {
		return nil, err
	}
	if links != nil {
		repr["_links"] = links
	}
	return repr, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Server", "Failed to write response: %v", err)
	}
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, "Not Found")
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
