package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request id (server-side)
//   - Mapped via core.MapError to a user message with an action and code
//   - Rendered as JSON for /api routes and JSON clients, HTML otherwise
//
// None of them stop the server: the page stays usable and a reload retries.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/filtrador/internal/core"
	"github.com/JonMunkholm/filtrador/internal/logging"
	"github.com/JonMunkholm/filtrador/internal/source"
	"github.com/JonMunkholm/filtrador/internal/table"
	"github.com/JonMunkholm/filtrador/internal/web/templates"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a pipeline error.
func statusFor(err error) int {
	var se *source.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case source.KindNotFound:
			return http.StatusServiceUnavailable
		case source.KindNetwork:
			if errors.Is(err, context.DeadlineExceeded) {
				return http.StatusGatewayTimeout
			}
			return http.StatusBadGateway
		default:
			return http.StatusBadGateway
		}
	}

	var pe *table.ParseError
	var sce *table.SchemaError
	switch {
	case errors.As(err, &pe), errors.As(err, &sce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoSelection):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyExports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	respondErrorMessage(w, r, err, core.MapError(err), statusCode)
}

func respondErrorMessage(w http.ResponseWriter, r *http.Request, err error, msg core.UserMessage, statusCode int) {
	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= 500 {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if wantsJSON(r) {
		respondErrorJSON(w, r, msg, statusCode)
	} else {
		respondErrorHTML(w, r, msg, statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML renders the error alert as a standalone page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	page := templates.Page(templates.PageData{Error: alertFor(msg)})
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error page", "error", err)
	}
}

func alertFor(msg core.UserMessage) *templates.Alert {
	return &templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
