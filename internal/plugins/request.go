package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
	"scenarioctl/pkg/logging"
)

const notParsed = "NOT PARSING: too long"

func requestPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			return eval.PropText(it.Props, "method", "GET") + " " + eval.PropText(it.Props, "url", "")
		},
		RunProps: map[string]any{
			"url":            eval.Required,
			"body":           "",
			"checkLength":    true,
			"cookies":        nil,
			"expectedStatus": "2xx,3xx",
			"expectedType":   "",
			"headers":        map[string]any{},
			"jsonBody":       nil,
			"limit":          1024 * 1024,
			"method":         http.MethodGet,
			"pollForMs":      0,
			"pollDelayMs":    100,
			"redirect":       "follow",
		},
		Run: runRequest,
	}
}

// request is a resolved request item.
type request struct {
	method         string
	url            string
	headers        map[string]string
	body           []byte
	jsonBody       any
	expectedStatus string
	expectedType   string
	checkLength    bool
	// limit is negative for no limit
	limit     int
	pollFor   time.Duration
	pollDelay time.Duration
	redirect  string
}

func runRequest(ctx context.Context, call plugin.Call) (api.Partial, error) {
	req, err := newRequest(call)
	if err != nil {
		return api.Partial{}, err
	}

	resp, err := req.do(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return api.Partial{Outcome: api.OutcomeSkipped}, nil
		}
		return api.Partial{
			Outcome:  api.OutcomeFailure,
			Failures: []string{fmt.Sprintf("%v (%s %s)", err, req.method, req.url)},
		}, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.Partial{
			Outcome:  api.OutcomeFailure,
			Failures: []string{fmt.Sprintf("reading response: %v (%s %s)", err, req.method, req.url)},
		}, nil
	}
	return req.process(resp, string(data))
}

func newRequest(call plugin.Call) (*request, error) {
	p := call.Props
	req := &request{
		method:         strings.ToUpper(p.String("method")),
		url:            p.String("url"),
		headers:        map[string]string{},
		expectedStatus: p.String("expectedStatus"),
		expectedType:   p.String("expectedType"),
		checkLength:    p.Bool("checkLength"),
		limit:          -1,
		pollFor:        p.Millis("pollForMs"),
		pollDelay:      p.Millis("pollDelayMs"),
		redirect:       p.String("redirect"),
		jsonBody:       p.Value("jsonBody"),
	}
	if p.Value("limit") != nil {
		req.limit = p.Int("limit")
	}
	for name, value := range p.Map("headers") {
		req.headers[name] = fmt.Sprint(value)
	}

	cookies := p.Map("cookies")
	if cookies == nil {
		ref, err := call.Runner.Interpret(call.Item.Context, call.Item.Context.String("cookiesRef"))
		if err != nil {
			return nil, fmt.Errorf("cookiesRef: %w", err)
		}
		cookies = api.AsMap(ref)
	}

	contentType := ""
	switch {
	case req.jsonBody != nil:
		data, err := json.Marshal(req.jsonBody)
		if err != nil {
			return nil, fmt.Errorf("jsonBody: %w", err)
		}
		req.body = data
		contentType = "application/json"
	case p.String("body") != "":
		req.body = []byte(p.String("body"))
	}

	if req.expectedType != "" && !hasHeader(req.headers, "Accept") {
		req.headers["Accept"] = req.expectedType
	}
	if contentType != "" && !hasHeader(req.headers, "Content-Type") {
		req.headers["Content-Type"] = contentType
	}
	if list := requestCookies(req.url, cookies); len(list) > 0 {
		req.headers["Cookie"] = strings.Join(list, "; ")
	}
	return req, nil
}

// do sends the request. Network errors are retried every pollDelay until
// pollFor has passed.
func (r *request) do(ctx context.Context) (*http.Response, error) {
	start := time.Now()

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{CheckRedirect: r.checkRedirect}
	client.Logger = requestLogger{}
	client.RetryMax = math.MaxInt32
	client.CheckRetry = func(ctx context.Context, _ *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil && time.Since(start) < r.pollFor, nil
	}
	client.Backoff = func(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
		return r.pollDelay
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	var body any
	if r.body != nil {
		body = r.body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, err
	}
	for name, value := range r.headers {
		req.Header.Set(name, value)
	}
	return client.Do(req)
}

func (r *request) checkRedirect(req *http.Request, via []*http.Request) error {
	switch r.redirect {
	case "manual":
		return http.ErrUseLastResponse
	case "error":
		return fmt.Errorf("redirect to %s not allowed", req.URL)
	}
	if len(via) >= 20 {
		return errors.New("stopped after 20 redirects")
	}
	return nil
}

func (r *request) process(resp *http.Response, text string) (api.Partial, error) {
	headers := responseHeaders(resp.Header)
	contentType := ""
	if v, ok := headers["content-type"].(string); ok {
		contentType, _, _ = strings.Cut(v, ";")
	}

	var parsed any
	if jsonType.MatchString(contentType) {
		if r.limit >= 0 && utf8.RuneCountInString(text) > r.limit {
			parsed = notParsed
		} else if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return api.Partial{}, fmt.Errorf("parsing JSON response from %s: %w", r.url, err)
		}
	}

	var failures []string
	for _, f := range r.validate(resp.StatusCode, contentType, headers, text) {
		failures = append(failures, fmt.Sprintf("%s (%s %s)", f, r.method, r.url))
	}

	response := map[string]any{
		"headers":    headers,
		"cookies":    responseCookies(resp.Header, time.Now()),
		"status":     resp.StatusCode,
		"statusText": strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		"length":     utf8.RuneCountInString(text),
		"text":       r.applyLimit(text),
		"json":       parsed,
	}
	details := map[string]any{
		"requestHeaders": r.headers,
	}
	if r.jsonBody != nil {
		details["requestBody"] = r.jsonBody
	} else {
		details["requestBody"] = r.applyLimit(string(r.body))
	}
	for k, v := range response {
		details[k] = v
	}

	outcome := api.OutcomeSuccess
	if len(failures) > 0 {
		outcome = api.OutcomeFailure
	}
	return api.Partial{
		Outcome:  outcome,
		Failures: failures,
		Message:  fmt.Sprintf("%d, received %d bytes from %s", resp.StatusCode, len(text), r.url),
		Fields: map[string]any{
			"response": response,
			"details":  details,
		},
	}, nil
}

func (r *request) validate(status int, contentType string, headers map[string]any, text string) []string {
	failures := eval.Expect("status", status).ToSatisfy(statusMatches(r.expectedStatus, status), r.expectedStatus)
	if r.expectedType != "" {
		failures = append(failures, eval.Expect("content-type", contentType).ToDeepEqual(r.expectedType)...)
	}
	if advertised, ok := headers["content-length"].(string); ok && r.checkLength {
		n, err := strconv.Atoi(strings.TrimSpace(advertised))
		failures = append(failures, eval.Expect("content-length", text).ToSatisfy(err == nil && n == len(text), advertised)...)
	}
	return failures
}

func (r *request) applyLimit(text string) string {
	if r.limit < 0 || utf8.RuneCountInString(text) <= r.limit {
		return text
	}
	return string([]rune(text)[:r.limit])
}

// requestLogger routes retry logging of the HTTP client to debug output.
type requestLogger struct{}

func (requestLogger) Error(msg string, keysAndValues ...interface{}) {
	logging.Debug("Request", "%s %v", msg, keysAndValues)
}

func (requestLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug("Request", "%s %v", msg, keysAndValues)
}

func (requestLogger) Debug(msg string, keysAndValues ...interface{}) {
	logging.Debug("Request", "%s %v", msg, keysAndValues)
}

func (requestLogger) Warn(msg string, keysAndValues ...interface{}) {
	logging.Debug("Request", "%s %v", msg, keysAndValues)
}
