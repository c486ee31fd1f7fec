package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenarioctl/internal/api"
	"scenarioctl/internal/loader"
	"scenarioctl/internal/metrics"
	"scenarioctl/internal/plugin"
	"scenarioctl/internal/plugins"
	"scenarioctl/internal/runner"
	"scenarioctl/internal/state"
)

func newTestServer(t *testing.T, config Config) (*Server, *httptest.Server) {
	t.Helper()
	registry := plugin.NewRegistry(plugins.Builtin())
	m := metrics.New()
	s := New(config, state.NewHub(), loader.New(registry), runner.New(registry, runner.WithObserver(m)), m)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.cancel()
		s.Wait()
		ts.Close()
	})
	return s, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func postJob(t *testing.T, ts *httptest.Server, items any) *http.Response {
	t.Helper()
	body, err := json.Marshal(items)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

var passingItems = []map[string]any{
	{"type": "assign", "name": "answer", "value": 42},
	{"type": "expect", "name": "check", ":value": "$results.answer.value", "expected": 42},
}

func TestEntry(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var entry map[string]any
	resp := getJSON(t, ts.URL+"/api", &entry)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	links := entry["_links"].(map[string]any)
	assert.Equal(t, "/api", links["self"].(map[string]any)["href"])
	assert.Equal(t, "/api/jobs", links["jobs"].(map[string]any)["href"])
	assert.Equal(t, true, links["scenarios"].(map[string]any)["templated"])
}

func TestVersionAndContext(t *testing.T) {
	_, ts := newTestServer(t, Config{Version: "1.2.3", Context: api.Context{"baseUrl": "http://sut"}})

	var version map[string]any
	getJSON(t, ts.URL+"/api/version", &version)
	assert.Equal(t, "1.2.3", version["version"])

	var c map[string]any
	getJSON(t, ts.URL+"/api/context", &c)
	assert.Equal(t, "http://sut", c["baseUrl"])
}

func TestSystemUnderTestVersion(t *testing.T) {
	sut := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"baseArtifactVersion":"4.5"}`))
	}))
	defer sut.Close()

	_, ts := newTestServer(t, Config{SystemUnderTestVersionURL: sut.URL})
	var version map[string]any
	getJSON(t, ts.URL+"/api/system-under-test-version", &version)
	assert.Equal(t, "4.5", version["baseArtifactVersion"])

	_, ts = newTestServer(t, Config{})
	version = nil
	getJSON(t, ts.URL+"/api/system-under-test-version", &version)
	assert.Contains(t, version, "baseArtifactVersion")
	assert.Nil(t, version["baseArtifactVersion"])
}

func TestCreateJobAndStreamResults(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	resp := postJob(t, ts, passingItems)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.Equal(t, "/api/jobs/1", location)
	s.Wait()

	var results []map[string]any
	resp = getJSON(t, ts.URL+location+"/results", &results)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Len(t, results, 2)
	assert.Equal(t, "answer", results[0]["subject"].(map[string]any)["name"])
	assert.Equal(t, "SUCCESS", results[1]["outcome"])

	var job map[string]any
	getJSON(t, ts.URL+location, &job)
	assert.Equal(t, "SUCCESS", job["outcome"])
	assert.NotNil(t, job["finished"])
	assert.Equal(t, location+"/results", job["_links"].(map[string]any)["results"].(map[string]any)["href"])

	var items []map[string]any
	getJSON(t, ts.URL+location+"/items", &items)
	require.Len(t, items, 2)
	assert.Equal(t, "assign", items[0]["type"])

	var jobs map[string]any
	getJSON(t, ts.URL+"/api/jobs", &jobs)
	assert.Len(t, jobs["_embedded"].(map[string]any)["job"], 1)
}

func TestStreamJSONSeq(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	postJob(t, ts, passingItems)
	s.Wait()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/jobs/1/results", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json-seq")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "application/json-seq", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	records := strings.Split(strings.Trim(string(body), "\x1E"), "\n\x1E")
	require.Len(t, records, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(records[0]), &first))
	assert.Equal(t, "SUCCESS", first["outcome"])
}

func TestEmptyStreamIsNoContent(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	postJob(t, ts, passingItems)
	s.Wait()

	resp := getJSON(t, ts.URL+"/api/jobs/1/metrics", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMetricsStream(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	postJob(t, ts, []map[string]any{
		{"type": "metric", "name": "m1", "category": "perf", "label": "p95", "metricData": map[string]any{"p95": 3}},
	})
	s.Wait()

	var groups []map[string]any
	getJSON(t, ts.URL+"/api/jobs/1/metrics", &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "perf", groups[0]["category"])
	assert.Len(t, groups[0]["metrics"], 1)
}

func TestUnknownJob(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	for _, path := range []string{"/api/jobs/9", "/api/jobs/9/items", "/api/jobs/9/results", "/api/jobs/9/progress"} {
		var body any
		resp := getJSON(t, ts.URL+path, &body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "Not Found", body)
	}

	resp, err := http.Post(ts.URL+"/api/jobs/9/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateJob_BadRequests(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", strings.NewReader(`{"not":"a list"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJob(t, ts, []map[string]any{{"type": "no-such-type"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJob_ConflictAndCancel(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	resp := postJob(t, ts, []map[string]any{{"type": "delay", "name": "long", "milliseconds": 60000}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJob(t, ts, passingItems)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	job, ok := s.hub.JobByID("1")
	require.True(t, ok)
	require.Eventually(t, func() bool { return len(job.Progress()) > 0 }, 5*time.Second, 10*time.Millisecond)

	cancelResp, err := http.Post(ts.URL+"/api/jobs/1/cancel", "application/json", nil)
	require.NoError(t, err)
	defer cancelResp.Body.Close()
	var meta map[string]any
	require.NoError(t, json.NewDecoder(cancelResp.Body).Decode(&meta))
	assert.Equal(t, http.StatusOK, cancelResp.StatusCode)
	assert.Equal(t, "SKIPPED", meta["outcome"])

	resp = postJob(t, ts, passingItems)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateJob_AcceptsPreprocessedItems(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	registry := plugin.NewRegistry(plugins.Builtin())
	it, err := loader.New(registry).Pre(context.Background(), api.Context{"greeting": "hi"}, api.Definition{
		"type": "expect", "name": "greets", ":value": "greeting", "expected": "hi",
	})
	require.NoError(t, err)

	resp := postJob(t, ts, []api.Item{it})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s.Wait()

	var results []map[string]any
	getJSON(t, ts.URL+"/api/jobs/1/results", &results)
	require.Len(t, results, 1)
	assert.Equal(t, "SUCCESS", results[0]["outcome"])
}

func TestScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("type: assign\nname: alpha\n\":value\": who\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("type: output\nname: beta\n"), 0644))

	_, ts := newTestServer(t, Config{Scenarios: []string{dir}, Context: api.Context{"who": "server"}})

	var list map[string]any
	getJSON(t, ts.URL+"/api/scenarios", &list)
	embedded := list["_embedded"].(map[string]any)["item"].([]any)
	require.Len(t, embedded, 2)
	alpha := embedded[0].(map[string]any)
	assert.Equal(t, "alpha", alpha["name"])
	assert.Equal(t, "/api/scenarios/alpha", alpha["_links"].(map[string]any)["self"].(map[string]any)["href"])
	assert.Equal(t, "server", alpha["context"].(map[string]any)["who"])

	var scenario map[string]any
	getJSON(t, ts.URL+"/api/scenarios/beta?context="+url.QueryEscape(`{"who":"client"}`), &scenario)
	assert.Equal(t, "output", scenario["type"])
	assert.Equal(t, "client", scenario["context"].(map[string]any)["who"])

	resp := getJSON(t, ts.URL+"/api/scenarios/gamma", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvents(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	postJob(t, ts, passingItems)
	s.Wait()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/jobs/1/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	types := map[api.NotificationType]int{}
	var last Event
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
			break
		}
		types[ev.Type]++
		last = ev
	}
	assert.Equal(t, 1, types[api.NotifyMeta])
	assert.Equal(t, 2, types[api.NotifyResult])

	require.Equal(t, api.NotifyMeta, last.Type, "finished meta comes last")
	meta, ok := last.Payload.(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, meta["finished"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	postJob(t, ts, passingItems)
	s.Wait()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "scenarioctl_jobs_created_total 1")
	assert.Contains(t, string(body), `scenarioctl_items_results_total{outcome="SUCCESS",type="assign"} 1`)
}

func TestAcceptsJSONSeq(t *testing.T) {
	assert.True(t, acceptsJSONSeq("application/json-seq"))
	assert.True(t, acceptsJSONSeq("application/json, application/json-seq;q=0.5"))
	assert.False(t, acceptsJSONSeq("application/json-seq;q=0"))
	assert.False(t, acceptsJSONSeq("*/*"))
	assert.False(t, acceptsJSONSeq(""))
}

func TestStartStop(t *testing.T) {
	registry := plugin.NewRegistry(plugins.Builtin())
	s := New(Config{Host: "127.0.0.1", Port: 0}, state.NewHub(), loader.New(registry), runner.New(registry), nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	var entry map[string]any
	resp := getJSON(t, "http://"+s.Addr()+"/api", &entry)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	assert.Error(t, s.Stop(context.Background()))
}
