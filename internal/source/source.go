// Package source acquires the raw bytes of the establishment spreadsheet
// from a local file, a remote download link or a Postgres row, and
// memoizes them for a configurable time-to-live.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Mode names where the spreadsheet comes from.
type Mode string

const (
	ModeFile     Mode = "file"
	ModeRemote   Mode = "remote"
	ModePostgres Mode = "postgres"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFile, ModeRemote, ModePostgres:
		return m, nil
	}
	return "", fmt.Errorf("unknown source mode %q (want file, remote or postgres)", s)
}

// Descriptor identifies a source for caching and display.
type Descriptor struct {
	Mode       Mode
	Identifier string
}

func (d Descriptor) String() string {
	return string(d.Mode) + ":" + d.Identifier
}

// Source obtains the spreadsheet bytes. Each call performs one attempt.
type Source interface {
	Acquire(ctx context.Context) ([]byte, error)
	Describe() Descriptor
}

// Kind classifies acquisition failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindNetwork
	KindStatus
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Error is an acquisition failure. Kind drives the user-facing message;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind       Kind
	Source     Descriptor
	StatusCode int    // KindStatus only, 0 for a non-spreadsheet 2xx body
	Detail     string // extra context, e.g. the response content type
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("source not found: %s", e.Source)
	case KindNetwork:
		if e.Err != nil {
			return fmt.Sprintf("source unreachable: %s: %v", e.Source, e.Err)
		}
		return fmt.Sprintf("source unreachable: %s", e.Source)
	case KindStatus:
		if e.StatusCode == 0 {
			return fmt.Sprintf("source returned html instead of a spreadsheet: %s (%s)", e.Source, e.Detail)
		}
		return fmt.Sprintf("source returned status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Source)
	case KindTooLarge:
		return fmt.Sprintf("source too large: %s (%s)", e.Source, e.Detail)
	default:
		return fmt.Sprintf("source error: %s: %v", e.Source, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an acquisition Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
