package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	status := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	if body == "" {
		return fmt.Sprintf("backend %s status: %s", e.Operation, status)
	}
	return fmt.Sprintf("backend %s status: %s: %s", e.Operation, status, body)
}

// countsAsFailure keeps caller cancellations out of the breaker statistics.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
