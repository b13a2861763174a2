package backend

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

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/infrastructure/resilience"
)

const maxResponseBytes = 16 << 20

// Client talks to the backend document service. It never retries; an open
// breaker fails calls fast while the backend is down.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	now        func() time.Time
}

func New(baseURL string, timeout time.Duration, breaker *resilience.Breaker) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		now:        time.Now,
	}
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	body, err := c.getJSON(ctx, "documents", "list documents")
	if err != nil {
		return nil, err
	}
	docs, err := domain.DocumentsFromBackend(body, c.now())
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "list documents", fmt.Errorf("decode response: %w", err))
	}
	return docs, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", fmt.Errorf("document id is required"))
	}
	body, err := c.getJSON(ctx, "documents/"+url.PathEscape(id), "get document")
	if err != nil {
		return nil, err
	}
	record, ok := domain.DecodeRawRecord(body)
	if !ok {
		return nil, domain.WrapError(domain.ErrUpstream, "get document", fmt.Errorf("response is not a json object"))
	}
	doc := domain.DocumentFromBackend(record, c.now())
	return &doc, nil
}

func (c *Client) RegenerateSummary(ctx context.Context, id, prompt string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "regenerate summary", fmt.Errorf("document id is required"))
	}
	payload, err := json.Marshal(map[string]string{"custom_prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("marshal regenerate summary request: %w", err)
	}

	resp, err := c.do(ctx, "regenerate summary", domain.ForwardRequest{
		Method: http.MethodPost,
		Path:   "documents/" + url.PathEscape(id) + "/regenerate-summary",
		Body:   payload,
	})
	if err != nil {
		return "", err
	}
	if err := statusError("regenerate summary", resp); err != nil {
		return "", err
	}

	var out struct {
		Summary *string `json:"summary"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", domain.WrapError(domain.ErrUpstream, "regenerate summary", fmt.Errorf("decode response: %w", err))
	}
	if out.Summary == nil {
		return "", nil
	}
	return *out.Summary, nil
}

// Forward relays a raw call under {base}/api/{path}. Any status is returned
// as-is; only transport failures produce an error. The breaker is skipped so
// backend error bodies always reach the caller.
func (c *Client) Forward(ctx context.Context, req domain.ForwardRequest) (*domain.ForwardResponse, error) {
	operation := "forward " + strings.ToLower(req.Method)
	out, err := c.send(ctx, operation, req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, operation, err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path, operation string) ([]byte, error) {
	resp, err := c.do(ctx, operation, domain.ForwardRequest{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	if err := statusError(operation, resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, operation string, req domain.ForwardRequest) (*domain.ForwardResponse, error) {
	var out *domain.ForwardResponse
	call := func(ctx context.Context) error {
		resp, err := c.send(ctx, operation, req)
		if err != nil {
			return err
		}
		out = resp
		if resp.StatusCode >= 500 {
			// Counted by the breaker, but the caller still gets the response.
			return &HTTPStatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(resp.Body)}
		}
		return nil
	}

	err := c.breaker.Execute(ctx, "backend."+operation, call, countsAsFailure)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && out != nil {
			return out, nil
		}
		return nil, domain.WrapError(domain.ErrUpstream, operation, err)
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, operation string, req domain.ForwardRequest) (*domain.ForwardResponse, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.endpoint(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	return &domain.ForwardResponse{StatusCode: resp.StatusCode, Body: raw}, nil
}

func (c *Client) endpoint(path, query string) string {
	target := c.baseURL + "/api/" + strings.TrimLeft(path, "/")
	if query != "" {
		target += "?" + query
	}
	return target
}

func statusError(operation string, resp *domain.ForwardResponse) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.WrapError(domain.ErrDocumentNotFound, operation, &HTTPStatusError{
			Operation: operation, StatusCode: resp.StatusCode, Body: string(resp.Body),
		})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.WrapError(domain.ErrUpstream, operation, &HTTPStatusError{
			Operation: operation, StatusCode: resp.StatusCode, Body: string(resp.Body),
		})
	default:
		return nil
	}
}
