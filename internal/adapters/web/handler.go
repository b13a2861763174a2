package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"

	"github.com/kirillkom/document-portal/internal/core/domain"
	"github.com/kirillkom/document-portal/internal/core/ports"
)

const (
	defaultMaxFileSize = 10 << 20
	// Multipart framing and the other form fields ride on top of the file.
	formOverheadBytes = 1 << 20
)

// BlobReader serves stored objects back to the browser. Only the local
// filesystem store implements it.
type BlobReader interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (string, map[string]string, error)
}

type Options struct {
	Documents   ports.DocumentReader
	Summaries   ports.SummaryRegenerator
	Uploader    ports.DocumentUploader
	Blobs       BlobReader
	MaxFileSize int64
}

type Handler struct {
	documents   ports.DocumentReader
	summaries   ports.SummaryRegenerator
	uploader    ports.DocumentUploader
	blobs       BlobReader
	maxFileSize int64

	templates *template.Template
	markdown  goldmark.Markdown
	now       func() time.Time
}

func New(opts Options) (*Handler, error) {
	h := &Handler{
		documents:   opts.Documents,
		summaries:   opts.Summaries,
		uploader:    opts.Uploader,
		blobs:       opts.Blobs,
		maxFileSize: opts.MaxFileSize,
		markdown:    newMarkdown(),
		now:         time.Now,
	}
	if h.maxFileSize <= 0 {
		h.maxFileSize = defaultMaxFileSize
	}
	tmpl, err := parseTemplates(func() time.Time { return h.now() })
	if err != nil {
		return nil, err
	}
	h.templates = tmpl
	return h, nil
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.listDocuments)
	mux.HandleFunc("GET /documents/{id}", h.documentDetail)
	mux.HandleFunc("POST /documents/{id}/regenerate-summary", h.regenerateSummary)
	mux.HandleFunc("GET /upload", h.uploadForm)
	mux.HandleFunc("POST /upload", h.submitUpload)
	if h.blobs != nil {
		mux.HandleFunc("GET /blobs/{name}", h.serveBlob)
	}
	mux.HandleFunc("/", h.notFound)
	return mux
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	page := listPage{Title: "Documents"}
	docs, err := h.documents.ListDocuments(r.Context())
	if err != nil {
		slog.Warn("documents_list_failed", "error", err)
		page.Error = "Failed to fetch documents"
	}
	page.Documents = docs
	h.render(w, http.StatusOK, "list.html", page)
}

func (h *Handler) documentDetail(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	h.renderDetail(w, http.StatusOK, doc, "")
}

func (h *Handler) regenerateSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Bad request", "The form could not be read.")
		return
	}

	if _, err := h.summaries.RegenerateSummary(r.Context(), id, r.PostFormValue("custom_prompt")); err != nil {
		slog.Warn("summary_regenerate_failed", "document_id", id, "error", err)
		doc, ok := h.loadDocument(w, r)
		if !ok {
			return
		}
		status := http.StatusBadGateway
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			status = http.StatusNotFound
		}
		h.renderDetail(w, status, doc, "Failed to regenerate summary")
		return
	}

	http.Redirect(w, r, "/documents/"+url.PathEscape(id), http.StatusSeeOther)
}

func (h *Handler) loadDocument(w http.ResponseWriter, r *http.Request) (*domain.Document, bool) {
	id := r.PathValue("id")
	doc, err := h.documents.GetDocument(r.Context(), id)
	if err == nil {
		return doc, true
	}
	if domain.IsKind(err, domain.ErrDocumentNotFound) {
		h.renderError(w, http.StatusNotFound, "Document not found", "The document you are looking for does not exist.")
		return nil, false
	}
	slog.Warn("document_fetch_failed", "document_id", id, "error", err)
	h.renderError(w, http.StatusBadGateway, "Failed to fetch document", "The document service is unavailable. Try again later.")
	return nil, false
}

func (h *Handler) renderDetail(w http.ResponseWriter, status int, doc *domain.Document, regenerateError string) {
	h.render(w, status, "detail.html", detailPage{
		Title:           doc.Filename,
		Document:        *doc,
		SummaryHTML:     h.renderSummary(doc.Summary),
		Completed:       doc.Status == domain.StatusCompleted,
		RegenerateError: regenerateError,
	})
}

func (h *Handler) uploadForm(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, "upload.html", uploadPage{Title: "Upload", ProjectID: domain.DefaultProjectID})
}

func (h *Handler) submitUpload(w http.ResponseWriter, r *http.Request) {
	page := uploadPage{Title: "Upload", ProjectID: domain.DefaultProjectID}
	tooLarge := fmt.Sprintf("File size should be less than %dMB", h.maxFileSize>>20)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+formOverheadBytes)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			page.Error = tooLarge
		} else {
			page.Error = "Please select a file to upload"
		}
		h.render(w, http.StatusBadRequest, "upload.html", page)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()
	if projectID := r.FormValue("projectId"); projectID != "" {
		page.ProjectID = projectID
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		page.Error = "Please select a file to upload"
		h.render(w, http.StatusBadRequest, "upload.html", page)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != domain.DefaultContentType {
		page.Error = "Please upload a PDF file"
		h.render(w, http.StatusBadRequest, "upload.html", page)
		return
	}
	if header.Size > h.maxFileSize {
		page.Error = tooLarge
		h.render(w, http.StatusBadRequest, "upload.html", page)
		return
	}

	if pages, ok := countPDFPages(file, header.Size); ok {
		slog.Info("upload_form_inspected", "filename", header.Filename, "pages", pages, "size_bytes", header.Size)
	}

	result, err := h.uploader.Upload(r.Context(), domain.UploadRequest{
		Filename:     header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		Body:         file,
		ProjectID:    page.ProjectID,
		IsTranscript: r.FormValue("isTranscript") == "true",
	})
	if err != nil {
		slog.Warn("upload_form_failed", "filename", header.Filename, "error", err)
		page.Error = "Failed to upload file"
		if domain.IsKind(err, domain.ErrConfiguration) {
			page.Error = "Storage configuration error"
		}
		h.render(w, http.StatusInternalServerError, "upload.html", page)
		return
	}

	page.DocumentID = result.ID
	h.render(w, http.StatusCreated, "upload.html", page)
}

// countPDFPages reports the page count when the file parses as a PDF. The
// reader is rewound before returning.
func countPDFPages(file multipart.File, size int64) (pages int, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, ok = 0, false
		}
		_, _ = file.Seek(0, io.SeekStart)
	}()

	reader, err := pdf.NewReader(file, size)
	if err != nil {
		return 0, false
	}
	return reader.NumPage(), true
}

func (h *Handler) serveBlob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	contentType, _, err := h.blobs.Stat(r.Context(), name)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) || domain.IsKind(err, domain.ErrInvalidInput) {
			http.NotFound(w, r)
			return
		}
		slog.Error("blob_stat_failed", "blob_name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body, err := h.blobs.Open(r.Context(), name)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("blob_open_failed", "blob_name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = domain.DefaultContentType
	}
	// Uploads declare their own type; anything but a PDF is downloaded
	// rather than rendered from this origin.
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != domain.DefaultContentType {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("blob_stream_failed", "blob_name", name, "error", err)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	h.renderError(w, http.StatusNotFound, "Page not found", "The page you are looking for does not exist.")
}
