package table

import "fmt"

// ParseError reports bytes that are not a readable xlsx workbook.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid spreadsheet: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a workbook whose header row lacks a required column.
type SchemaError struct {
	Column  string
	Columns []string
}

func (e *SchemaError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("missing required column %q: sheet has no header row", e.Column)
	}
	return fmt.Sprintf("missing required column %q (found: %v)", e.Column, e.Columns)
}

// ExportError reports a failure while encoding a table as xlsx.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export spreadsheet: %v", e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
