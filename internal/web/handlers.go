package web

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/filtrador/internal/core"
	"github.com/JonMunkholm/filtrador/internal/logging"
	"github.com/JonMunkholm/filtrador/internal/web/templates"
)

// SelectionParam is the query parameter carrying the chosen establishment.
const SelectionParam = "establecimiento"

// ExportIDHeader carries the id logged for each download.
const ExportIDHeader = "X-Export-ID"

// selection reads the establishment from the query string. The value is
// matched exactly, so only surrounding whitespace decides emptiness.
func selection(r *http.Request) string {
	return r.URL.Query().Get(SelectionParam)
}

// handleIndex renders the selector and, when a selection is present, its preview.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	values, err := s.service.Values(ctx)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	data := templates.PageData{
		Source: s.service.Status().Source,
		Values: values,
	}

	if sel := selection(r); strings.TrimSpace(sel) != "" {
		preview, err := s.service.Preview(ctx, sel)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		data.Selected = sel
		data.Columns = preview.Table.Columns()
		data.Rows = preview.Table.Strings()
		data.Total = preview.Total
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render page", "error", err)
	}
}

// handleDownload streams the filtered workbook as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sel := selection(r)
	if strings.TrimSpace(sel) == "" {
		respondError(w, r, core.ErrNoSelection, http.StatusBadRequest)
		return
	}

	exp, err := s.service.Export(WithRequestMetadata(r.Context(), r), sel)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", exp.ContentType)
	h.Set("Content-Disposition", contentDisposition(exp.Filename))
	h.Set("Content-Length", strconv.Itoa(len(exp.Data)))
	h.Set("Cache-Control", "no-store")
	h.Set(ExportIDHeader, exp.ID.String())
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(exp.Data); err != nil {
		logging.FromContext(r.Context()).Warn("download interrupted",
			"export_id", exp.ID.String(),
			"error", err,
		)
	}
}

// contentDisposition builds an attachment header. Non-ASCII names get an
// RFC 2231 filename* parameter.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return `attachment; filename="export.xlsx"`
}

// handleHealthz reports liveness without touching the source.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// ValuesResponse is the body of GET /api/values.
type ValuesResponse struct {
	Values []string `json:"values"`
	Count  int      `json:"count"`
}

// handleAPIValues returns the selectable establishments.
func (s *Server) handleAPIValues(w http.ResponseWriter, r *http.Request) {
	values, err := s.service.Values(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if values == nil {
		values = []string{}
	}
	render.JSON(w, r, ValuesResponse{Values: values, Count: len(values)})
}

// RowsResponse is the body of GET /api/rows.
type RowsResponse struct {
	Selection string     `json:"establecimiento"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`
	Truncated bool       `json:"truncated"`
}

// handleAPIRows returns the preview rows for a selection.
func (s *Server) handleAPIRows(w http.ResponseWriter, r *http.Request) {
	sel := selection(r)
	if strings.TrimSpace(sel) == "" {
		respondError(w, r, core.ErrNoSelection, http.StatusBadRequest)
		return
	}

	preview, err := s.service.Preview(r.Context(), sel)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	rows := preview.Table.Strings()
	if rows == nil {
		rows = [][]string{}
	}
	render.JSON(w, r, RowsResponse{
		Selection: sel,
		Columns:   preview.Table.Columns(),
		Rows:      rows,
		Total:     preview.Total,
		Truncated: preview.Truncated(),
	})
}

// handleAPIStatus reports the loaded source without fetching it.
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.Status())
}
