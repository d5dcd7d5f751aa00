package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/filtrador/internal/source"
	"github.com/JonMunkholm/filtrador/internal/table"
)

func TestMapError(t *testing.T) {
	remote := source.Descriptor{Mode: source.ModeRemote, Identifier: "abc"}

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "missing file",
			err:      &source.Error{Kind: source.KindNotFound, Source: remote},
			wantCode: "SRC001",
		},
		{
			name:     "transport failure",
			err:      &source.Error{Kind: source.KindNetwork, Source: remote, Err: errors.New("dial tcp: no route to host")},
			wantCode: "SRC002",
		},
		{
			name:     "transport deadline maps to timeout",
			err:      &source.Error{Kind: source.KindNetwork, Source: remote, Err: context.DeadlineExceeded},
			wantCode: "REQ002",
		},
		{
			name:     "http 404",
			err:      &source.Error{Kind: source.KindStatus, Source: remote, StatusCode: 404},
			wantCode: "SRC003",
		},
		{
			name:     "html page instead of workbook",
			err:      &source.Error{Kind: source.KindStatus, Source: remote, Detail: "text/html"},
			wantCode: "SRC003",
		},
		{
			name:     "too large",
			err:      &source.Error{Kind: source.KindTooLarge, Source: remote},
			wantCode: "SRC004",
		},
		{
			name:     "wrapped source error",
			err:      fmt.Errorf("load: %w", &source.Error{Kind: source.KindNotFound, Source: remote}),
			wantCode: "SRC001",
		},
		{
			name:     "parse error",
			err:      &table.ParseError{Err: errors.New("zip: not a valid zip file")},
			wantCode: "PARSE001",
		},
		{
			name:     "schema error",
			err:      &table.SchemaError{Column: table.FilterKey, Columns: []string{"Ventas"}},
			wantCode: "SCHEMA001",
		},
		{
			name:     "export error",
			err:      &table.ExportError{Err: errors.New("boom")},
			wantCode: "EXPORT001",
		},
		{
			name:     "busy",
			err:      ErrTooManyExports,
			wantCode: "EXPORT002",
		},
		{
			name:     "no selection",
			err:      ErrNoSelection,
			wantCode: "REQ003",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("fetch: %w", context.Canceled),
			wantCode: "REQ001",
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: "REQ002",
		},
		{
			name:     "untyped text falls back to patterns",
			err:      errors.New("upstream: source returned status 403 Forbidden: remote:abc"),
			wantCode: "SRC003",
		},
		{
			name:     "rate limit pattern",
			err:      errors.New("rate limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("INVALID SPREADSHEET: bad"),
			wantCode: "PARSE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_StatusHintsAtSharing(t *testing.T) {
	msg := MapError(&source.Error{Kind: source.KindStatus, StatusCode: 403})
	if msg.Action != "Revisa los permisos de uso compartido del archivo" {
		t.Errorf("Action = %q, want sharing permissions hint", msg.Action)
	}
}

func TestFormatUserError(t *testing.T) {
	err := &table.SchemaError{Column: table.FilterKey}
	result := FormatUserError(err)

	expected := "La planilla no tiene la columna Nombre_Establecimiento (Código: SCHEMA001). Agrega la columna a la fila de encabezado de la primera hoja"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", &table.ParseError{Err: errors.New("x")}, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &source.Error{Kind: source.KindNotFound}
		userErr := NewUserError(techErr)

		if userErr.Error() != "No se encontró la planilla" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}

func TestMapError_KeepsUserErrorMessage(t *testing.T) {
	// Untyped errors lose their pattern once the user text replaces
	// Error(), so the wrapped message has to win.
	userErr := NewUserError(errors.New("rate limit exceeded"))
	wrapped := fmt.Errorf("values: %w", userErr)

	if got := MapError(wrapped).Code; got != "RATE001" {
		t.Errorf("MapError() code = %q, want RATE001", got)
	}
	if !IsUserFacing(userErr) {
		t.Error("IsUserFacing() = false, want true")
	}
}
