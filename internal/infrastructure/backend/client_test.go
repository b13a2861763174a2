package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(server.URL+"/", time.Second, nil)
	client.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return client
}

func TestListDocumentsTransformsRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"1","original_filename":"a.pdf","status":"completed","summary":"done","created_at":"2024-05-01T10:00:00"},
			{"id":"2"}
		]`))
	})

	docs, err := client.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Filename != "a.pdf" || docs[0].Status != domain.StatusCompleted {
		t.Fatalf("unexpected first doc %+v", docs[0])
	}
	if docs[1].Filename != domain.DefaultFilename || docs[1].UploadDate != "2025-01-01T00:00:00Z" {
		t.Fatalf("unexpected defaults %+v", docs[1])
	}
}

func TestGetDocumentMapsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Document not found"}`))
	})

	_, err := client.GetDocument(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetDocumentMapsServerErrorToUpstream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database offline", http.StatusInternalServerError)
	})

	_, err := client.GetDocument(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRegenerateSummarySendsCustomPrompt(t *testing.T) {
	var captured map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/doc-1/regenerate-summary" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"doc-1","summary":"fresh summary"}`))
	})

	summary, err := client.RegenerateSummary(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("RegenerateSummary() error = %v", err)
	}
	if summary != "fresh summary" {
		t.Fatalf("unexpected summary %q", summary)
	}
	if v, ok := captured["custom_prompt"]; !ok || v != "" {
		t.Fatalf("expected empty custom_prompt field, got %v", captured)
	}
}

func TestForwardReturnsBackendStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "limit=5" {
			t.Errorf("expected query forwarded, got %q", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"bad gateway"}`))
	})

	resp, err := client.Forward(context.Background(), domain.ForwardRequest{
		Method: http.MethodGet,
		Path:   "documents",
		Query:  "limit=5",
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway || string(resp.Body) != `{"error":"bad gateway"}` {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestForwardUnreachableBackend(t *testing.T) {
	client := New("http://127.0.0.1:1", 200*time.Millisecond, nil)

	_, err := client.Forward(context.Background(), domain.ForwardRequest{Method: http.MethodGet, Path: "documents"})
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestOpenBreakerFailsFast(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := resilience.NewBreaker(resilience.Config{Enabled: true, MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute})
	client := New(server.URL, time.Second, breaker)

	for i := 0; i < 2; i++ {
		if _, err := client.ListDocuments(context.Background()); !domain.IsKind(err, domain.ErrUpstream) {
			t.Fatalf("expected upstream error on call %d, got %v", i, err)
		}
	}
	_, err := client.ListDocuments(context.Background())
	if !domain.IsKind(err, domain.ErrUpstream) || !resilience.IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected backend called twice, got %d", calls)
	}
}

func TestForwardBypassesBreaker(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"warming up"}`))
	}))
	defer server.Close()

	breaker := resilience.NewBreaker(resilience.Config{Enabled: true, MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute})
	client := New(server.URL, time.Second, breaker)

	for i := 0; i < 5; i++ {
		resp, err := client.Forward(context.Background(), domain.ForwardRequest{Method: http.MethodGet, Path: "documents"})
		if err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable || string(resp.Body) != `{"detail":"warming up"}` {
			t.Fatalf("call %d: unexpected response %d %q", i, resp.StatusCode, resp.Body)
		}
	}
	if calls != 5 {
		t.Fatalf("expected every forward to reach the backend, got %d calls", calls)
	}
}
