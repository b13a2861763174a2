package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/kirillkom/document-portal/internal/config"
	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
	"github.com/kirillkom/document-portal/internal/observability/metrics"
)

const (
	multipartMemoryBytes = 8 << 20
	maxProxyBodyBytes    = 4 << 20
)

type Router struct {
	cfg       config.Config
	uploader  ports.DocumentUploader
	forwarder ports.BackendForwarder
	pages     http.Handler
	metrics   *metrics.HTTPServerMetrics
	limiter   *rate.Limiter
}

// NewRouter builds the JSON API surface. pages and m may be nil.
func NewRouter(
	cfg config.Config,
	uploader ports.DocumentUploader,
	forwarder ports.BackendForwarder,
	pages http.Handler,
	m *metrics.HTTPServerMetrics,
) *Router {
	rt := &Router{
		cfg:       cfg,
		uploader:  uploader,
		forwarder: forwarder,
		pages:     pages,
		metrics:   m,
	}
	if cfg.APIRateLimitRPS > 0 {
		burst := cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		rt.limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("POST /api/upload", rt.api(http.HandlerFunc(rt.uploadDocument)))
	mux.Handle("GET /api/proxy/{path...}", rt.api(http.HandlerFunc(rt.proxy)))
	mux.Handle("POST /api/proxy/{path...}", rt.api(http.HandlerFunc(rt.proxy)))
	mux.HandleFunc("/api/proxy/{path...}", methodNotAllowed)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.pages != nil {
		mux.Handle("/", rt.pages)
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// api applies traffic control to the /api/ routes only.
func (rt *Router) api(next http.Handler) http.Handler {
	handler := backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueWait)
	return rateLimitMiddleware(handler, rt.limiter)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.UploadMaxBytes > 0 {
		if r.ContentLength > rt.cfg.UploadMaxBytes {
			rt.writeUploadError(w, r, domain.ErrFileTooLarge)
			return
		}
		// Chunked bodies have no declared length and are capped while reading.
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes)
	}

	req := domain.UploadRequest{}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rt.writeUploadError(w, r, domain.ErrFileTooLarge)
			return
		}
		// Non-multipart or truncated bodies carry no usable file.
		rt.writeUploadError(w, r, domain.ErrMissingFile)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req.ProjectID = r.FormValue("projectId")
	req.IsTranscript = r.FormValue("isTranscript") == "true"

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.Filename = header.Filename
		req.ContentType = header.Header.Get("Content-Type")
		req.Size = header.Size
		req.Body = file
	}

	result, err := rt.uploader.Upload(r.Context(), req)
	if err != nil {
		rt.writeUploadError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(result.FileSize, result.ElapsedTime, result.UploadSpeed)
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	body, outcome := uploadErrorBody(err)
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("upload_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"outcome", outcome,
			"error", err,
		)
	}
	if rt.metrics != nil {
		rt.metrics.RecordUploadFailure(outcome)
	}
	writeJSON(w, status, body)
}

func (rt *Router) proxy(w http.ResponseWriter, r *http.Request) {
	failure := "Failed to fetch data from backend"
	req := domain.ForwardRequest{
		Method: r.Method,
		Path:   r.PathValue("path"),
		Query:  r.URL.RawQuery,
	}

	if r.Method == http.MethodPost {
		failure = "Failed to post data to backend"
		body, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBodyBytes))
		if err != nil {
			rt.proxyFailed(w, r, failure, err)
			return
		}
		if !json.Valid(body) {
			rt.recordProxy(r.Method, "invalid_body")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
			return
		}
		req.Body = body
	}

	resp, err := rt.forwarder.Forward(r.Context(), req)
	if err != nil {
		rt.proxyFailed(w, r, failure, err)
		return
	}
	if !json.Valid(resp.Body) {
		rt.proxyFailed(w, r, failure, errors.New("backend returned a non-JSON body"))
		return
	}

	status := http.StatusOK
	if rt.cfg.ProxyForwardStatus && resp.StatusCode > 0 {
		status = resp.StatusCode
	}
	rt.recordProxy(r.Method, "success")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}

func (rt *Router) proxyFailed(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.Error("proxy_failed",
		"request_id", requestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.PathValue("path"),
		"error", err,
	)
	rt.recordProxy(r.Method, "error")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": message})
}

func (rt *Router) recordProxy(method, outcome string) {
	if rt.metrics != nil {
		rt.metrics.RecordProxy(method, outcome)
	}
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "GET, POST")
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
