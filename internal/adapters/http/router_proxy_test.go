package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-portal/internal/config"
	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/infrastructure/backend"
	"github.com/kirillkom/document-portal/internal/infrastructure/resilience"
)

func TestProxyGetForwardsPathAndQuery(t *testing.T) {
	forwarder := &forwarderFake{resp: &domain.ForwardResponse{StatusCode: http.StatusOK, Body: []byte(`[{"id":"1"}]`)}}
	handler := NewRouter(config.Config{}, &uploaderFake{}, forwarder, nil, nil).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/proxy/documents/1/chunks?limit=5", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if forwarder.got.Method != http.MethodGet || forwarder.got.Path != "documents/1/chunks" || forwarder.got.Query != "limit=5" {
		t.Fatalf("unexpected forward request %+v", forwarder.got)
	}
	if res.Body.String() != `[{"id":"1"}]` {
		t.Fatalf("expected verbatim body, got %q", res.Body.String())
	}
}

func TestProxyPostForwardsBodyVerbatim(t *testing.T) {
	forwarder := &forwarderFake{resp: &domain.ForwardResponse{StatusCode: http.StatusCreated, Body: []byte(`{"ok":true}`)}}
	handler := NewRouter(config.Config{}, &uploaderFake{}, forwarder, nil, nil).Handler()

	payload := `{"question": "what?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/proxy/query", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 by default, got %d", res.Code)
	}
	if string(forwarder.got.Body) != payload {
		t.Fatalf("body changed in transit: %q", forwarder.got.Body)
	}
}

func TestProxyMasksBackendStatusByDefault(t *testing.T) {
	forwarder := &forwarderFake{resp: &domain.ForwardResponse{StatusCode: http.StatusNotFound, Body: []byte(`{"detail":"Not found"}`)}}
	handler := NewRouter(config.Config{}, &uploaderFake{}, forwarder, nil, nil).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/proxy/documents/missing", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Body.String() != `{"detail":"Not found"}` {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestProxyForwardsStatusWhenEnabled(t *testing.T) {
	forwarder := &forwarderFake{resp: &domain.ForwardResponse{StatusCode: http.StatusNotFound, Body: []byte(`{"detail":"Not found"}`)}}
	handler := NewRouter(config.Config{ProxyForwardStatus: true}, &uploaderFake{}, forwarder, nil, nil).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/proxy/documents/missing", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestProxyFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		body    string
		resp    *domain.ForwardResponse
		err     error
		message string
	}{
		{
			name:    "get transport error",
			method:  http.MethodGet,
			err:     domain.WrapError(domain.ErrUpstream, "forward", errors.New("dial tcp: refused")),
			message: "Failed to fetch data from backend",
		},
		{
			name:    "get non json body",
			method:  http.MethodGet,
			resp:    &domain.ForwardResponse{StatusCode: http.StatusBadGateway, Body: []byte("<html>bad gateway</html>")},
			message: "Failed to fetch data from backend",
		},
		{
			name:    "post transport error",
			method:  http.MethodPost,
			body:    `{}`,
			err:     domain.WrapError(domain.ErrUpstream, "forward", errors.New("timeout")),
			message: "Failed to post data to backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forwarder := &forwarderFake{resp: tt.resp, err: tt.err}
			handler := NewRouter(config.Config{}, &uploaderFake{}, forwarder, nil, nil).Handler()

			req := httptest.NewRequest(tt.method, "/api/proxy/documents", strings.NewReader(tt.body))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", res.Code)
			}
			payload := decodeBody(t, res)
			if payload["error"] != tt.message {
				t.Fatalf("unexpected payload %+v", payload)
			}
			if strings.Contains(res.Body.String(), "dial tcp") || strings.Contains(res.Body.String(), "timeout") {
				t.Fatalf("raw error leaked: %s", res.Body.String())
			}
		})
	}
}

func TestProxyRejectsInvalidJSONBody(t *testing.T) {
	forwarder := &forwarderFake{}
	handler := NewRouter(config.Config{}, &uploaderFake{}, forwarder, nil, nil).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/proxy/query", strings.NewReader("{not json")))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if forwarder.calls != 0 {
		t.Fatalf("backend must not be contacted for invalid bodies")
	}
}

func TestProxyRejectsOtherMethods(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/api/proxy/documents/1", nil))

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestProxyKeepsRelayingBackendErrors(t *testing.T) {
	backendCalls := 0
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"warming up"}`))
	}))
	defer backendSrv.Close()

	client := backend.New(backendSrv.URL, time.Second, resilience.NewBreaker(resilience.DefaultConfig()))
	handler := NewRouter(config.Config{}, &uploaderFake{}, client, nil, nil).Handler()

	const attempts = 15
	for i := 0; i < attempts; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/proxy/documents", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, res.Code)
		}
		if res.Body.String() != `{"detail":"warming up"}` {
			t.Fatalf("call %d: unexpected body %q", i, res.Body.String())
		}
	}
	if backendCalls != attempts {
		t.Fatalf("expected %d backend calls, got %d", attempts, backendCalls)
	}
}
