package ports

import (
	"context"

	"github.com/kirillkom/document-portal/internal/core/domain"
)

// DocumentUploader is the inbound contract for storing a new upload.
type DocumentUploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error)
}

// DocumentReader is the read model used by the presentation layer.
type DocumentReader interface {
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// SummaryRegenerator asks the backend for a new summary.
type SummaryRegenerator interface {
	RegenerateSummary(ctx context.Context, id, prompt string) (string, error)
}

// BackendForwarder relays raw calls to the backend API.
type BackendForwarder interface {
	Forward(ctx context.Context, req domain.ForwardRequest) (*domain.ForwardResponse, error)
}
