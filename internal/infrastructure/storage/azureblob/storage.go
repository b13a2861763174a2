package azureblob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
)

var ErrMissingCredentials = errors.New("azure storage account name and key are required")

type Options struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	// Endpoint overrides https://{account}.blob.core.windows.net/, e.g. for Azurite.
	Endpoint  string
	Container string
}

type Storage struct {
	client    *azblob.Client
	container string
}

// New builds the client without touching the network, so missing or
// malformed credentials surface at startup.
func New(opts Options) (*Storage, error) {
	if strings.TrimSpace(opts.Container) == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	if opts.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("parse azure connection string: %w", err)
		}
		return &Storage{client: client, container: opts.Container}, nil
	}

	if opts.AccountName == "" || opts.AccountKey == "" {
		return nil, ErrMissingCredentials
	}
	cred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("azure shared key credential: %w", err)
	}
	client, err = azblob.NewClientWithSharedKeyCredential(serviceURL(opts), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return &Storage{client: client, container: opts.Container}, nil
}

func serviceURL(opts Options) string {
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/"
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", opts.AccountName)
}

// EnsureContainer creates the container with anonymous read access on blobs
// (not on listings) when it is missing.
func (s *Storage) EnsureContainer(ctx context.Context) error {
	cc := s.client.ServiceClient().NewContainerClient(s.container)
	_, err := cc.GetProperties(ctx, nil)
	if err == nil {
		return nil
	}
	if !bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return fmt.Errorf("check container %s: %w", s.container, err)
	}

	slog.Info("container_create", "provider", "azure", "container", s.container)
	_, err = cc.Create(ctx, &container.CreateOptions{
		Access: to.Ptr(container.PublicAccessTypeBlob),
	})
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, obj ports.PutObject) (domain.StoredObject, error) {
	contentType := obj.ContentType
	resp, err := s.client.UploadStream(ctx, s.container, obj.Name, obj.Body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    toBlobMetadata(obj.Metadata),
	})
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("upload blob %s: %w", obj.Name, err)
	}

	etag := ""
	if resp.ETag != nil {
		etag = string(*resp.ETag)
	}
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlockBlobClient(obj.Name)
	return domain.StoredObject{
		Name: obj.Name,
		URL:  blobClient.URL(),
		ETag: etag,
		Size: obj.Size,
	}, nil
}

func toBlobMetadata(in map[string]string) map[string]*string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[k] = to.Ptr(v)
	}
	return out
}
