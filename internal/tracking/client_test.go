package tracking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

var _ Tracker = (*Client)(nil)

// fakeServer is a minimal in-memory tracking server for exercising Client.
type fakeServer struct {
	mu        sync.Mutex
	runs      map[string]Status
	params    map[string]map[string]string
	artifacts map[string][]byte
	versions  map[string]int
	headers   http.Header
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		runs:      map[string]Status{},
		params:    map[string]map[string]string{},
		artifacts: map[string][]byte{},
		versions:  map[string]int{},
	}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = r.Header.Clone()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/2.0/runs/create":
		f.runs["run-1"] = StatusRunning
		json.NewEncoder(w).Encode(map[string]string{"run_id": "run-1"})

	case r.Method == http.MethodGet && r.URL.Path == "/api/2.0/runs/run-1":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && r.URL.Path == "/api/2.0/runs/run-1/params":
		var req struct {
			Params map[string]string `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		existing := f.params["run-1"]
		if existing == nil {
			existing = map[string]string{}
			f.params["run-1"] = existing
		}
		for k, v := range req.Params {
			if prev, ok := existing[k]; ok && prev != v {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(serverError{Code: "PARAM_CONFLICT", Message: "parameter already logged"})
				return
			}
			existing[k] = v
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && r.URL.Path == "/api/2.0/runs/run-1/metrics":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPut && r.URL.Path == "/api/2.0/runs/run-1/artifacts/report.html":
		body, _ := io.ReadAll(r.Body)
		f.artifacts["report.html"] = body
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodGet && r.URL.Path == "/api/2.0/runs/run-1/artifacts/report.html":
		w.Write(f.artifacts["report.html"])

	case r.Method == http.MethodPost && r.URL.Path == "/api/2.0/models/demand-gbt/versions":
		f.versions["demand-gbt"]++
		json.NewEncoder(w).Encode(map[string]int{"version": f.versions["demand-gbt"]})

	case r.Method == http.MethodPost && r.URL.Path == "/api/2.0/runs/run-1/status":
		var req struct {
			Status Status `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.runs["run-1"] = req.Status
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(serverError{Code: "NOT_FOUND", Message: "no handler for " + r.URL.Path})
	}
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, Credentials{
		S3Endpoint:      "http://minio:9000",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_FullRunLifecycle(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f)
	ctx := context.Background()

	id, err := c.CreateRun(ctx, "bike-demand")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if id != "run-1" {
		t.Fatalf("run id = %q, want run-1", id)
	}

	if err := c.LogParams(ctx, id, map[string]string{"num_leaves": "31"}); err != nil {
		t.Fatalf("LogParams: %v", err)
	}
	if err := c.LogMetrics(ctx, id, map[string]float64{"mae": 11.0}); err != nil {
		t.Fatalf("LogMetrics: %v", err)
	}
	if err := c.UploadArtifact(ctx, id, "report.html", []byte("<html></html>")); err != nil {
		t.Fatalf("UploadArtifact: %v", err)
	}
	got, err := c.GetArtifact(ctx, id, "report.html")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if string(got) != "<html></html>" {
		t.Errorf("artifact = %q", got)
	}

	v, err := c.RegisterModel(ctx, "demand-gbt", id, []byte(`{"trees":[]}`))
	if err != nil {
		t.Fatalf("RegisterModel: %v", err)
	}
	if v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
	if err := c.SetStatus(ctx, id, StatusFinished); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if f.runs["run-1"] != StatusFinished {
		t.Errorf("server status = %s, want FINISHED", f.runs["run-1"])
	}
}

func TestClient_ForwardsCredentialHeaders(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f)

	if _, err := c.CreateRun(context.Background(), "exp"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if got := f.headers.Get("X-Access-Key-Id"); got != "test-key" {
		t.Errorf("X-Access-Key-Id = %q, want test-key", got)
	}
	if got := f.headers.Get("X-S3-Endpoint"); got != "http://minio:9000" {
		t.Errorf("X-S3-Endpoint = %q, want http://minio:9000", got)
	}
}

func TestClient_SurfacesServerErrorMessage(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f)
	ctx := context.Background()

	id, err := c.CreateRun(ctx, "exp")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := c.LogParams(ctx, id, map[string]string{"seed": "42"}); err != nil {
		t.Fatalf("LogParams: %v", err)
	}
	err = c.LogParams(ctx, id, map[string]string{"seed": "7"})
	if err == nil {
		t.Fatal("expected error for a parameter conflict, got nil")
	}
}

func TestClient_ResumeUnknownRunFails(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f)
	if err := c.ResumeRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for an unknown run, got nil")
	}
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	if _, err := NewClient("ftp://tracker.internal", Credentials{}); err == nil {
		t.Fatal("expected error for a non-HTTP scheme, got nil")
	}
}

func TestClient_RejectsOversizedParamSet(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f)
	big := make(map[string]string, MaxParams+1)
	for i := 0; i <= MaxParams; i++ {
		big[string(rune('a'+i/26))+string(rune('a'+i%26))] = "v"
	}
	if err := c.LogParams(context.Background(), "run-1", big); err == nil {
		t.Fatal("expected error for exceeding the parameter bound, got nil")
	}
}
