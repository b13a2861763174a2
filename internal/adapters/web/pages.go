package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/kirillkom/document-portal/internal/core/domain"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Backend dates arrive either zoned or as naive ISO timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type listPage struct {
	Title     string
	Documents []domain.Document
	Error     string
}

type detailPage struct {
	Title           string
	Document        domain.Document
	SummaryHTML     template.HTML
	Completed       bool
	RegenerateError string
}

type uploadPage struct {
	Title      string
	ProjectID  string
	Error      string
	DocumentID string
}

type errorPage struct {
	Title   string
	Message string
}

func parseTemplates(now func() time.Time) (*template.Template, error) {
	funcs := template.FuncMap{
		"uploadedAgo": func(value string) string {
			t, ok := parseDate(value)
			if !ok {
				return "Upload date unknown"
			}
			return "Uploaded " + humanize.RelTime(t, now(), "ago", "from now")
		},
		"formatDate": func(value string) string {
			t, ok := parseDate(value)
			if !ok {
				return "Unknown date"
			}
			return t.Format("Jan 2, 2006, 3:04:05 PM MST")
		},
		"formatSize": func(size *int64) string {
			if size == nil || *size < 0 {
				return ""
			}
			return humanize.Bytes(uint64(*size))
		},
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return tmpl, nil
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func newMarkdown() goldmark.Markdown {
	// Raw HTML inside summaries is dropped by the default renderer.
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	)
}

func (h *Handler) renderSummary(summary *string) template.HTML {
	if summary == nil || *summary == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(*summary), &buf); err != nil {
		slog.Warn("summary_render_failed", "error", err)
		return template.HTML("<pre>" + template.HTMLEscapeString(*summary) + "</pre>")
	}
	return template.HTML(buf.String())
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("page_render_failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) renderError(w http.ResponseWriter, status int, title, message string) {
	h.render(w, status, "error.html", errorPage{Title: title, Message: message})
}
