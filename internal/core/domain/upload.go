package domain

import (
	"io"
	"time"
)

const (
	DefaultProjectID   = "default"
	DefaultContentType = "application/pdf"
)

type UploadRequest struct {
	Filename     string
	ContentType  string
	Size         int64
	Body         io.Reader
	ProjectID    string
	IsTranscript bool
}

// StoredObject is what the object store reports back after a write.
type StoredObject struct {
	Name string
	URL  string
	ETag string
	Size int64
}

// UploadResult is the Document-creation payload returned to the uploader.
// Summary and ExtractedText stay nil: processing has not happened yet.
type UploadResult struct {
	Success       bool           `json:"success"`
	ID            string         `json:"id"`
	DocumentID    string         `json:"documentId"`
	Filename      string         `json:"filename"`
	BlobURL       string         `json:"blobUrl"`
	BlobName      string         `json:"blobName"`
	FileSize      int64          `json:"fileSize"`
	ProjectID     string         `json:"projectId"`
	IsTranscript  bool           `json:"isTranscript"`
	UploadDate    string         `json:"uploadDate"`
	Status        DocumentStatus `json:"status"`
	Summary       *string        `json:"summary"`
	ExtractedText *string        `json:"extractedText"`
	ElapsedTime   float64        `json:"elapsedTime"`
	UploadSpeed   float64        `json:"uploadSpeed"`
}

// UploadedEvent announces a stored object to downstream consumers.
type UploadedEvent struct {
	DocumentID   string    `json:"documentId"`
	BlobName     string    `json:"blobName"`
	BlobURL      string    `json:"blobUrl"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"fileSize"`
	ContentType  string    `json:"contentType"`
	ProjectID    string    `json:"projectId"`
	IsTranscript bool      `json:"isTranscript"`
	UploadDate   time.Time `json:"uploadDate"`
}

// ForwardRequest is a pass-through call to the backend API.
type ForwardRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type ForwardResponse struct {
	StatusCode int
	Body       []byte
}
