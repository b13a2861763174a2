package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-portal/internal/core/domain"
)

// ObjectStore keeps uploaded bytes in a container or bucket.
type ObjectStore interface {
	// EnsureContainer creates the destination when it does not exist yet.
	// A concurrent creator winning the race is not an error.
	EnsureContainer(ctx context.Context) error
	Put(ctx context.Context, obj PutObject) (domain.StoredObject, error)
}

type PutObject struct {
	Name        string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// UploadEventPublisher announces stored uploads.
type UploadEventPublisher interface {
	PublishUploaded(ctx context.Context, event domain.UploadedEvent) error
}
