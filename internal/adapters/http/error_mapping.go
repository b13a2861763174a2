package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-portal/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// uploadErrorBody picks the public error payload for a failed upload.
// Only storage failures carry details; everything else stays generic.
func uploadErrorBody(err error) (map[string]string, string) {
	switch {
	case domain.IsKind(err, domain.ErrFileTooLarge):
		return map[string]string{"error": "File too large"}, "too_large"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return map[string]string{"error": "No file provided"}, "missing_file"
	case domain.IsKind(err, domain.ErrConfiguration):
		return map[string]string{"error": "Storage configuration error"}, "configuration_error"
	default:
		return map[string]string{
			"error":   "Failed to upload file",
			"details": domain.Cause(err),
		}, "storage_error"
	}
}
