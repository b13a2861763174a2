package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

const DefaultFilename = "Unnamed Document"

// RawRecord is a backend document record with its fields still encoded.
// Fields are decoded one at a time so a single bad value cannot fail the
// whole record.
type RawRecord map[string]json.RawMessage

// fieldNames lists the backend spelling first and the camelCase spelling
// second for every Document attribute.
type fieldNames struct {
	snake string
	camel string
}

var (
	fieldID            = fieldNames{"id", "id"}
	fieldFilename      = fieldNames{"original_filename", "filename"}
	fieldUploadDate    = fieldNames{"created_at", "uploadDate"}
	fieldStatus        = fieldNames{"status", "status"}
	fieldSummary       = fieldNames{"summary", "summary"}
	fieldExtractedText = fieldNames{"extracted_text", "extractedText"}
	fieldBlobURL       = fieldNames{"blob_url", "blobUrl"}
	fieldBlobName      = fieldNames{"blob_name", "blobName"}
	fieldFileSize      = fieldNames{"file_size", "fileSize"}
)

// DocumentFromBackend maps a raw backend record onto the canonical Document.
// It never fails: absent, empty or mistyped fields fall back to defaults.
func DocumentFromBackend(raw RawRecord, now time.Time) Document {
	doc := Document{
		ID:         raw.identifier(fieldID),
		Filename:   raw.stringOr(fieldFilename, DefaultFilename),
		UploadDate: raw.stringOr(fieldUploadDate, now.UTC().Format(time.RFC3339)),
		Status:     DocumentStatus(raw.stringOr(fieldStatus, string(StatusUnknown))),
		Summary:    raw.optionalString(fieldSummary),
		BlobURL:    raw.stringOr(fieldBlobURL, ""),
		BlobName:   raw.stringOr(fieldBlobName, ""),
		FileSize:   raw.optionalInt(fieldFileSize),
	}
	doc.ExtractedText = raw.optionalString(fieldExtractedText)
	return doc
}

// DocumentsFromBackend decodes a JSON array of records. Elements that are not
// objects are skipped; a body that is not an array yields an error.
func DocumentsFromBackend(body []byte, now time.Time) ([]Document, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		record, ok := DecodeRawRecord(item)
		if !ok {
			continue
		}
		docs = append(docs, DocumentFromBackend(record, now))
	}
	return docs, nil
}

// DecodeRawRecord returns false when the payload is not a JSON object.
func DecodeRawRecord(body []byte) (RawRecord, bool) {
	var record RawRecord
	if err := json.Unmarshal(body, &record); err != nil || record == nil {
		return nil, false
	}
	return record, true
}

func (r RawRecord) lookup(names fieldNames, decode func(json.RawMessage) bool) {
	for _, name := range []string{names.snake, names.camel} {
		value, ok := r[name]
		if !ok || isNull(value) {
			continue
		}
		if decode(value) {
			return
		}
	}
}

func (r RawRecord) optionalString(names fieldNames) *string {
	var out *string
	r.lookup(names, func(value json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(value, &s); err != nil || s == "" {
			return false
		}
		out = &s
		return true
	})
	return out
}

func (r RawRecord) stringOr(names fieldNames, fallback string) string {
	if s := r.optionalString(names); s != nil {
		return *s
	}
	return fallback
}

// identifier accepts string or numeric ids.
func (r RawRecord) identifier(names fieldNames) string {
	id := ""
	r.lookup(names, func(value json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			id = s
			return s != ""
		}
		var n json.Number
		if err := json.Unmarshal(value, &n); err == nil {
			id = n.String()
			return true
		}
		return false
	})
	return id
}

func (r RawRecord) optionalInt(names fieldNames) *int64 {
	var out *int64
	r.lookup(names, func(value json.RawMessage) bool {
		var n json.Number
		if err := json.Unmarshal(value, &n); err != nil {
			return false
		}
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			f, ferr := n.Float64()
			// float64(math.MaxInt64) rounds up to 2^63, which no int64 holds.
			if ferr != nil || math.IsNaN(f) || math.Abs(f) >= math.MaxInt64 {
				return false
			}
			v = int64(f)
		}
		if v == 0 {
			return false
		}
		out = &v
		return true
	})
	return out
}

func isNull(value json.RawMessage) bool {
	return len(bytes.TrimSpace(value)) == 0 || bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
