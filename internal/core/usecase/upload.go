package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
)

type UploadDocumentUseCase struct {
	store     ports.ObjectStore
	events    ports.UploadEventPublisher
	configErr error

	now      func() time.Time
	randomID func() string
}

// NewUploadDocumentUseCase wires the object store. configErr carries a
// storage misconfiguration detected at startup; when set every upload fails
// with it before any network call. events may be nil.
func NewUploadDocumentUseCase(
	store ports.ObjectStore,
	events ports.UploadEventPublisher,
	configErr error,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		store:     store,
		events:    events,
		configErr: configErr,
		now:       time.Now,
		randomID:  shortRandomID,
	}
}

func (uc *UploadDocumentUseCase) Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	if req.Body == nil {
		return nil, domain.ErrMissingFile
	}
	if uc.configErr != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "upload", uc.configErr)
	}
	if uc.store == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "upload", fmt.Errorf("object store is not configured"))
	}

	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		projectID = domain.DefaultProjectID
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	if err := uc.store.EnsureContainer(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrUploadFailed, "ensure container", err)
	}

	blobName := domain.NewStorageKey(uc.now(), uc.randomID(), req.Filename)
	slog.Info("upload_started",
		"blob_name", blobName,
		"size_mb", sizeMB(req.Size),
		"project_id", projectID,
	)

	start := uc.now()
	stored, err := uc.store.Put(ctx, ports.PutObject{
		Name:        blobName,
		Body:        req.Body,
		Size:        req.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"projectId":    projectID,
			"isTranscript": strconv.FormatBool(req.IsTranscript),
		},
	})
	if err != nil {
		slog.Error("upload_failed", "blob_name", blobName, "error", err)
		return nil, domain.WrapError(domain.ErrUploadFailed, "upload", err)
	}
	elapsed := uc.now().Sub(start).Seconds()

	size := stored.Size
	if size <= 0 {
		size = req.Size
	}
	speed := throughputMBps(size, elapsed)
	slog.Info("upload_completed",
		"blob_name", blobName,
		"elapsed_seconds", elapsed,
		"speed_mb_s", speed,
	)

	etag := strings.ReplaceAll(stored.ETag, `"`, "")
	uploadedAt := uc.now().UTC()
	result := &domain.UploadResult{
		Success:       true,
		ID:            etag,
		DocumentID:    etag,
		Filename:      req.Filename,
		BlobURL:       stored.URL,
		BlobName:      blobName,
		FileSize:      size,
		ProjectID:     projectID,
		IsTranscript:  req.IsTranscript,
		UploadDate:    uploadedAt.Format(time.RFC3339Nano),
		Status:        domain.StatusProcessing,
		Summary:       nil,
		ExtractedText: nil,
		ElapsedTime:   elapsed,
		UploadSpeed:   speed,
	}

	uc.publish(ctx, domain.UploadedEvent{
		DocumentID:   etag,
		BlobName:     blobName,
		BlobURL:      stored.URL,
		Filename:     req.Filename,
		FileSize:     size,
		ContentType:  contentType,
		ProjectID:    projectID,
		IsTranscript: req.IsTranscript,
		UploadDate:   uploadedAt,
	})
	return result, nil
}

// publish is best-effort: the object is already stored and the upload counts
// as successful whether or not anyone hears about it.
func (uc *UploadDocumentUseCase) publish(ctx context.Context, event domain.UploadedEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishUploaded(ctx, event); err != nil {
		slog.Warn("upload_event_publish_failed", "blob_name", event.BlobName, "error", err)
	}
}

func shortRandomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func sizeMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}

func throughputMBps(size int64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return sizeMB(size) / elapsedSeconds
}
