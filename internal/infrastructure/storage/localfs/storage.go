package localfs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
)

const metadataDir = ".meta"

// Storage keeps objects as files under {basePath}/{container}. It stands in
// for the cloud providers during development; objects are served back at
// {publicPrefix}{name}.
type Storage struct {
	dir          string
	publicPrefix string
}

func New(basePath, container, publicPrefix string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/blobs"
	}
	if container == "" || strings.ContainsAny(container, `/\`) || container == ".." {
		return nil, fmt.Errorf("invalid container name %q", container)
	}
	return &Storage{
		dir:          filepath.Join(basePath, container),
		publicPrefix: publicPrefix,
	}, nil
}

func (s *Storage) EnsureContainer(_ context.Context) error {
	if err := os.MkdirAll(filepath.Join(s.dir, metadataDir), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	return nil
}

func (s *Storage) Put(_ context.Context, obj ports.PutObject) (domain.StoredObject, error) {
	path, err := s.objectPath(obj.Name)
	if err != nil {
		return domain.StoredObject{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hash := md5.New()
	written, err := io.Copy(io.MultiWriter(tmp, hash), obj.Body)
	if err != nil {
		_ = tmp.Close()
		return domain.StoredObject{}, fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.StoredObject{}, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return domain.StoredObject{}, fmt.Errorf("commit file: %w", err)
	}

	if err := s.writeMetadata(obj); err != nil {
		return domain.StoredObject{}, err
	}

	return domain.StoredObject{
		Name: obj.Name,
		URL:  s.publicPrefix + url.PathEscape(obj.Name),
		ETag: `"` + hex.EncodeToString(hash.Sum(nil)) + `"`,
		Size: written,
	}, nil
}

func (s *Storage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

type objectMetadata struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// Stat returns the content type and metadata recorded at upload time.
func (s *Storage) Stat(_ context.Context, name string) (string, map[string]string, error) {
	if _, err := s.objectPath(name); err != nil {
		return "", nil, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, metadataDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, domain.WrapError(domain.ErrDocumentNotFound, "stat object", err)
		}
		return "", nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta objectMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", nil, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.ContentType, meta.Metadata, nil
}

func (s *Storage) writeMetadata(obj ports.PutObject) error {
	raw, err := json.Marshal(objectMetadata{ContentType: obj.ContentType, Metadata: obj.Metadata})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, metadataDir, obj.Name+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// objectPath rejects names that would escape the container directory.
func (s *Storage) objectPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", domain.WrapError(domain.ErrInvalidInput, "object name", fmt.Errorf("invalid object name %q", name))
	}
	return filepath.Join(s.dir, name), nil
}
