package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
)

var ErrMissingProject = errors.New("gcp project id is required for the gcs storage provider")

type Options struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
}

type Storage struct {
	client    *storage.Client
	bucket    *storage.BucketHandle
	name      string
	projectID string
}

func New(ctx context.Context, opts Options) (*Storage, error) {
	if strings.TrimSpace(opts.ProjectID) == "" {
		return nil, ErrMissingProject
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &Storage{
		client:    client,
		bucket:    client.Bucket(opts.Bucket),
		name:      opts.Bucket,
		projectID: opts.ProjectID,
	}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

// EnsureContainer creates the bucket with public-read objects when missing.
func (s *Storage) EnsureContainer(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("check bucket %s: %w", s.name, err)
	}

	slog.Info("container_create", "provider", "gcs", "container", s.name)
	err = s.bucket.Create(ctx, s.projectID, &storage.BucketAttrs{
		PredefinedDefaultObjectACL: "publicRead",
	})
	if err != nil && !isConflict(err) {
		return fmt.Errorf("create bucket %s: %w", s.name, err)
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, obj ports.PutObject) (domain.StoredObject, error) {
	// Cancelling the writer's context is the only way to abort an upload;
	// Close would commit whatever was buffered.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(obj.Name).NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.Metadata = obj.Metadata

	written, err := io.Copy(w, obj.Body)
	if err != nil {
		cancel()
		return domain.StoredObject{}, fmt.Errorf("write gcs object %s: %w", obj.Name, err)
	}
	if err := w.Close(); err != nil {
		return domain.StoredObject{}, fmt.Errorf("finalize gcs object %s: %w", obj.Name, err)
	}

	etag := ""
	if attrs := w.Attrs(); attrs != nil {
		etag = attrs.Etag
	}
	return domain.StoredObject{
		Name: obj.Name,
		URL:  publicURL(s.name, obj.Name),
		ETag: etag,
		Size: written,
	}, nil
}

func publicURL(bucket, name string) string {
	return "https://storage.googleapis.com/" + bucket + "/" + url.PathEscape(name)
}

func isConflict(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
