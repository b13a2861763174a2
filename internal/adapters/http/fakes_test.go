package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/kirillkom/document-portal/internal/config"
	"github.com/kirillkom/document-portal/internal/core/domain"
)

type uploaderFake struct {
	err      error
	got      domain.UploadRequest
	gotBytes []byte
	calls    int
}

func (f *uploaderFake) Upload(_ context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	f.calls++
	f.got = req
	if req.Body == nil {
		return nil, domain.ErrMissingFile
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.gotBytes = raw
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UploadResult{
		Success:      true,
		ID:           "0x8DC",
		DocumentID:   "0x8DC",
		Filename:     req.Filename,
		BlobName:     "20250102T030405_deadbeef_" + req.Filename,
		FileSize:     int64(len(raw)),
		ProjectID:    req.ProjectID,
		IsTranscript: req.IsTranscript,
		Status:       domain.StatusProcessing,
	}, nil
}

type forwarderFake struct {
	resp  *domain.ForwardResponse
	err   error
	got   domain.ForwardRequest
	calls int
}

func (f *forwarderFake) Forward(_ context.Context, req domain.ForwardRequest) (*domain.ForwardResponse, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(
		cfg,
		&uploaderFake{},
		&forwarderFake{resp: &domain.ForwardResponse{StatusCode: http.StatusOK, Body: []byte(`[]`)}},
		nil,
		nil,
	).Handler()
}
