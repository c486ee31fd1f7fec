package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"scenarioctl/internal/api"
	"scenarioctl/pkg/logging"
)

type links map[string]struct {
	Href string `json:"href"`
}

// remoteClient drives a job on a scenarioctl server by following the links of
// its API.
type remoteClient struct {
	base   *url.URL
	client *retryablehttp.Client
}

func newRemoteClient(remote string) (*remoteClient, error) {
	base, err := url.Parse(remote)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL %q: %w", remote, err)
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMax = 2 * time.Second
	client.Logger = remoteLogger{}
	return &remoteClient{base: base, client: client}, nil
}

// runRemotely submits items as a job to the server at remote and waits for
// its results. Cancelling ctx cancels the remote job.
func runRemotely(ctx context.Context, remote string, items []api.Item) (api.Meta, []api.Result, error) {
	c, err := newRemoteClient(remote)
	if err != nil {
		return api.Meta{}, nil, err
	}

	var entry struct {
		Links links `json:"_links"`
	}
	if err := c.get(ctx, c.base.String(), &entry); err != nil {
		return api.Meta{}, nil, err
	}

	jobHref, err := c.createJob(ctx, entry.Links["jobs"].Href, items)
	if err != nil {
		return api.Meta{}, nil, err
	}
	logging.Info("CLI", "Submitted job %s", jobHref)

	var job struct {
		Links links `json:"_links"`
	}
	if err := c.get(ctx, jobHref, &job); err != nil {
		return api.Meta{}, nil, err
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			cancelCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := c.post(cancelCtx, job.Links["cancel"].Href, nil, nil); err != nil {
				logging.Warn("CLI", "Cancelling remote job failed: %v", err)
			}
		case <-finished:
		}
	}()

	// the results stream ends once the job has finished
	var results []api.Result
	if err := c.get(context.WithoutCancel(ctx), job.Links["results"].Href, &results); err != nil {
		return api.Meta{}, nil, err
	}

	var meta api.Meta
	if err := c.get(context.WithoutCancel(ctx), jobHref, &meta); err != nil {
		return api.Meta{}, nil, err
	}
	return meta, results, nil
}

func (c *remoteClient) resolve(href string) (string, error) {
	if href == "" {
		return "", fmt.Errorf("server at %s did not provide a link", c.base)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *remoteClient) createJob(ctx context.Context, jobsHref string, items []api.Item) (string, error) {
	target, err := c.resolve(jobsHref)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting job: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("submitting job: %s", errorMessage(resp))
	}
	return resp.Header.Get("Location"), nil
}

func (c *remoteClient) get(ctx context.Context, href string, v any) error {
	return c.do(ctx, http.MethodGet, href, nil, v)
}

func (c *remoteClient) post(ctx context.Context, href string, body, v any) error {
	return c.do(ctx, http.MethodPost, href, body, v)
}

func (c *remoteClient) do(ctx context.Context, method, href string, body, v any) error {
	target, err := c.resolve(href)
	if err != nil {
		return err
	}
	var reqBody any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = data
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: %s", method, target, errorMessage(resp))
	case v == nil:
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response of %s: %w", target, err)
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Sprintf("%s (%s)", resp.Status, body.Error)
	}
	return resp.Status
}

// remoteLogger routes retry logging of the HTTP client to the CLI log.
type remoteLogger struct{}

func (remoteLogger) Error(msg string, keysAndValues ...interface{}) {
	logging.Warn("CLI", "%s %v", msg, keysAndValues)
}

func (remoteLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug("CLI", "%s %v", msg, keysAndValues)
}

func (remoteLogger) Debug(msg string, keysAndValues ...interface{}) {
	logging.Debug("CLI", "%s %v", msg, keysAndValues)
}

func (remoteLogger) Warn(msg string, keysAndValues ...interface{}) {
	logging.Warn("CLI", "%s %v", msg, keysAndValues)
}
