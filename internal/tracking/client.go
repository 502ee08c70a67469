package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Credentials carries what a remote tracking server needs to accept writes
// and reach its artifact bucket. Zero values mean "not configured" and are
// simply not sent.
type Credentials struct {
	S3Endpoint      string
	AccessKeyID     string
	SecretAccessKey string
}

// Client is an HTTP implementation of Tracker against a remote tracking
// server. Every request carries the caller's context and the configured
// credentials as headers.
type Client struct {
	baseURL string
	creds   Credentials
	httpc   *http.Client
}

// NewClient builds a Client for the server at baseURL.
func NewClient(baseURL string, creds Credentials) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("tracking URI: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("tracking URI %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		creds:   creds,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// serverError mirrors the server's error envelope.
type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.AccessKeyID != "" {
		req.Header.Set("X-Access-Key-Id", c.creds.AccessKeyID)
		req.Header.Set("X-Secret-Access-Key", c.creds.SecretAccessKey)
	}
	if c.creds.S3Endpoint != "" {
		req.Header.Set("X-S3-Endpoint", c.creds.S3Endpoint)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var se serverError
		if json.Unmarshal(data, &se) == nil && se.Message != "" {
			return fmt.Errorf("%s %s: server %d: %s", method, path, resp.StatusCode, se.Message)
		}
		return fmt.Errorf("%s %s: server returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// CreateRun opens a new run under the experiment on the remote server.
func (c *Client) CreateRun(ctx context.Context, experiment string) (string, error) {
	if strings.TrimSpace(experiment) == "" {
		return "", errors.New("experiment is required")
	}
	var resp struct {
		RunID string `json:"run_id"`
	}
	req := struct {
		Experiment string `json:"experiment"`
	}{Experiment: experiment}
	if err := c.do(ctx, http.MethodPost, "/api/2.0/runs/create", req, &resp); err != nil {
		return "", err
	}
	if resp.RunID == "" {
		return "", errors.New("server returned an empty run_id")
	}
	return resp.RunID, nil
}

// ResumeRun verifies the run exists on the remote server.
func (c *Client) ResumeRun(ctx context.Context, runID string) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("runID is required")
	}
	return c.do(ctx, http.MethodGet, "/api/2.0/runs/"+url.PathEscape(runID), nil, nil)
}

// LogParams attaches write-once parameters to the run.
func (c *Client) LogParams(ctx context.Context, runID string, params map[string]string) error {
	if len(params) > MaxParams {
		return fmt.Errorf("parameter set exceeds %d entries", MaxParams)
	}
	req := struct {
		Params map[string]string `json:"params"`
	}{Params: params}
	return c.do(ctx, http.MethodPost, "/api/2.0/runs/"+url.PathEscape(runID)+"/params", req, nil)
}

// LogMetrics attaches metric values to the run.
func (c *Client) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	req := struct {
		Metrics map[string]float64 `json:"metrics"`
	}{Metrics: metrics}
	return c.do(ctx, http.MethodPost, "/api/2.0/runs/"+url.PathEscape(runID)+"/metrics", req, nil)
}

// UploadArtifact attaches an opaque file to the run by name.
func (c *Client) UploadArtifact(ctx context.Context, runID, name string, content []byte) error {
	if err := validateArtifactName(name); err != nil {
		return err
	}
	path := "/api/2.0/runs/" + url.PathEscape(runID) + "/artifacts/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.creds.AccessKeyID != "" {
		req.Header.Set("X-Access-Key-Id", c.creds.AccessKeyID)
		req.Header.Set("X-Secret-Access-Key", c.creds.SecretAccessKey)
	}
	if c.creds.S3Endpoint != "" {
		req.Header.Set("X-S3-Endpoint", c.creds.S3Endpoint)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("PUT %s: server returned %d", path, resp.StatusCode)
	}
	return nil
}

// GetArtifact retrieves a previously uploaded artifact.
func (c *Client) GetArtifact(ctx context.Context, runID, name string) ([]byte, error) {
	if err := validateArtifactName(name); err != nil {
		return nil, err
	}
	path := "/api/2.0/runs/" + url.PathEscape(runID) + "/artifacts/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: server returned %d", path, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

// RegisterModel stores a model blob and returns its new version.
func (c *Client) RegisterModel(ctx context.Context, name, runID string, content []byte) (int, error) {
	if err := validateModelName(name); err != nil {
		return 0, err
	}
	var resp struct {
		Version int `json:"version"`
	}
	req := struct {
		RunID   string `json:"run_id"`
		Content []byte `json:"content"`
	}{RunID: runID, Content: content}
	path := "/api/2.0/models/" + url.PathEscape(name) + "/versions"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return 0, err
	}
	if resp.Version < 1 {
		return 0, fmt.Errorf("server returned version %d", resp.Version)
	}
	return resp.Version, nil
}

// SetStatus transitions the run's lifecycle state on the remote server.
func (c *Client) SetStatus(ctx context.Context, runID string, status Status) error {
	if !validStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	req := struct {
		Status Status `json:"status"`
	}{Status: status}
	return c.do(ctx, http.MethodPost, "/api/2.0/runs/"+url.PathEscape(runID)+"/status", req, nil)
}
