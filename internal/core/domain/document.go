package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusError      DocumentStatus = "error"
	StatusUnknown    DocumentStatus = "unknown"
)

// Document is the read-only projection of a backend record. The backend owns
// status, summary and extracted text; nothing here writes them back.
type Document struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	UploadDate    string         `json:"uploadDate"`
	Status        DocumentStatus `json:"status"`
	Summary       *string        `json:"summary"`
	ExtractedText *string        `json:"extractedText"`
	BlobURL       string         `json:"blobUrl,omitempty"`
	BlobName      string         `json:"blobName,omitempty"`
	FileSize      *int64         `json:"fileSize,omitempty"`
}

// Known reports whether the status is one of the four lifecycle values.
func (s DocumentStatus) Known() bool {
	switch s.normalized() {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether the backend is done with the document.
func (s DocumentStatus) Terminal() bool {
	switch s.normalized() {
	case StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Color is the indicator color for the status. Unrecognized values are gray.
func (s DocumentStatus) Color() string {
	switch s.normalized() {
	case StatusCompleted:
		return "green"
	case StatusProcessing:
		return "yellow"
	case StatusPending:
		return "blue"
	case StatusError:
		return "red"
	default:
		return "gray"
	}
}

// Label upper-cases the first letter for display.
func (s DocumentStatus) Label() string {
	v := string(s)
	if v == "" {
		v = string(StatusUnknown)
	}
	first, size := utf8.DecodeRuneInString(v)
	return string(unicode.ToUpper(first)) + v[size:]
}

func (s DocumentStatus) normalized() DocumentStatus {
	return DocumentStatus(strings.ToLower(strings.TrimSpace(string(s))))
}
