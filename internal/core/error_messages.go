package core

// # Error Codes Reference
//
// Every failure shown to a user carries a code they can quote to support.
// Messages are in Spanish, like the rest of the interface.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source not found: The spreadsheet could not be located
//	         Action: Check SOURCE_PATH or the configured file identifier
//	SRC002 - Source unreachable: The download failed before a response arrived
//	         Action: Check the network connection and reload the page
//	SRC003 - Bad response: The host answered with an error or a web page
//	         Action: Check the sharing permissions of the file
//	SRC004 - Source too large: The spreadsheet exceeds SOURCE_MAX_BYTES
//	         Action: Raise the limit or trim the spreadsheet
//
// # Spreadsheet Errors (PARSE001, SCHEMA001, EXPORT001-EXPORT002)
//
//	PARSE001  - Unreadable spreadsheet: The bytes are not a valid xlsx workbook
//	SCHEMA001 - Missing column: Nombre_Establecimiento is absent from the header
//	EXPORT001 - Export failed: The filtered rows could not be encoded
//	EXPORT002 - Busy: Too many exports are being prepared
//
// # Request Errors (REQ001-REQ099, RATE001)
//
//	REQ001  - Request cancelled
//	REQ002  - Request timed out
//	REQ003  - No establishment selected
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// Typed errors are classified first with errors.As; the string patterns
// only catch errors that lost their type on the way (e.g. wrapped with %v).

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/filtrador/internal/source"
	"github.com/JonMunkholm/filtrador/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgNotFound = UserMessage{
		Message: "No se encontró la planilla",
		Action:  "Revisa la ruta o el identificador de archivo configurado",
		Code:    "SRC001",
	}
	msgNetwork = UserMessage{
		Message: "No se pudo descargar la planilla",
		Action:  "Revisa la conexión de red y recarga la página",
		Code:    "SRC002",
	}
	msgStatus = UserMessage{
		Message: "El servidor de archivos rechazó la descarga",
		Action:  "Revisa los permisos de uso compartido del archivo",
		Code:    "SRC003",
	}
	msgTooLarge = UserMessage{
		Message: "La planilla supera el tamaño máximo configurado",
		Action:  "Aumenta SOURCE_MAX_BYTES o reduce la planilla",
		Code:    "SRC004",
	}
	msgParse = UserMessage{
		Message: "El archivo no es una planilla legible",
		Action:  "Verifica que la fuente sea un libro .xlsx",
		Code:    "PARSE001",
	}
	msgSchema = UserMessage{
		Message: "La planilla no tiene la columna Nombre_Establecimiento",
		Action:  "Agrega la columna a la fila de encabezado de la primera hoja",
		Code:    "SCHEMA001",
	}
	msgExport = UserMessage{
		Message: "No se pudo generar la planilla filtrada",
		Action:  "Inténtalo de nuevo o contacta a soporte",
		Code:    "EXPORT001",
	}
	msgBusy = UserMessage{
		Message: "Hay demasiadas exportaciones en curso",
		Action:  "Espera un momento e inténtalo de nuevo",
		Code:    "EXPORT002",
	}
	msgCancelled = UserMessage{
		Message: "La solicitud fue cancelada",
		Action:  "Inténtalo de nuevo",
		Code:    "REQ001",
	}
	msgTimeout = UserMessage{
		Message: "La solicitud excedió el tiempo de espera",
		Action:  "Recarga la página para intentarlo de nuevo",
		Code:    "REQ002",
	}
	msgNoSelection = UserMessage{
		Message: "No se seleccionó ningún establecimiento",
		Action:  "Elige un establecimiento de la lista",
		Code:    "REQ003",
	}
	msgRateLimited = UserMessage{
		Message: "Demasiadas solicitudes",
		Action:  "Espera un momento antes de volver a intentarlo",
		Code:    "RATE001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages. The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "source not found", msg: msgNotFound},
	{pattern: "source unreachable", msg: msgNetwork},
	{pattern: "source returned", msg: msgStatus},
	{pattern: "source too large", msg: msgTooLarge},
	{pattern: "invalid spreadsheet", msg: msgParse},
	{pattern: "missing required column", msg: msgSchema},
	{pattern: "export spreadsheet", msg: msgExport},
	{pattern: "too many concurrent exports", msg: msgBusy},
	{pattern: "no establishment selected", msg: msgNoSelection},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado",
	Action:  "Inténtalo de nuevo o contacta a soporte",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(&source.Error{Kind: source.KindStatus, StatusCode: 404})
//	// msg.Code == "SRC003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var se *source.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case source.KindNotFound:
			return msgNotFound, true
		case source.KindNetwork:
			if errors.Is(err, context.DeadlineExceeded) {
				return msgTimeout, true
			}
			return msgNetwork, true
		case source.KindStatus:
			return msgStatus, true
		case source.KindTooLarge:
			return msgTooLarge, true
		}
	}

	var pe *table.ParseError
	var sce *table.SchemaError
	var ee *table.ExportError
	switch {
	case errors.As(err, &pe):
		return msgParse, true
	case errors.As(err, &sce):
		return msgSchema, true
	case errors.As(err, &ee):
		return msgExport, true
	case errors.Is(err, ErrTooManyExports):
		return msgBusy, true
	case errors.Is(err, ErrNoSelection):
		return msgNoSelection, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Código: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Código: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
