package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/filtrador/internal/table"
)

// Options parameterizes the pipeline. The zero value is usable: values
// unsorted, default sheet name and filename prefix, preview uncapped.
type Options struct {
	SortValues     bool
	SheetName      string
	FilenamePrefix string
	PreviewMaxRows int // 0 shows every row
}

// DefaultFilenamePrefix prefixes exported file names.
const DefaultFilenamePrefix = "filtrado_"

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		SortValues:     true,
		SheetName:      table.DefaultSheetName,
		FilenamePrefix: DefaultFilenamePrefix,
		PreviewMaxRows: 500,
	}
}

// Export is one encoded download. Data is built fresh per request.
type Export struct {
	ID          uuid.UUID
	Selection   string
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// Preview is the filtered table trimmed to the preview cap.
type Preview struct {
	Selection string
	Table     *table.Table // at most PreviewMaxRows rows
	Total     int          // rows matching before the cap
}

// Truncated reports whether rows were cut by the preview cap.
func (p *Preview) Truncated() bool { return p.Table.Len() < p.Total }

// Status describes the loaded source for /api/status and the CLI.
type Status struct {
	Source    string              `json:"source"`
	Mode      string              `json:"mode"`
	CacheTTL  string              `json:"cache_ttl"`
	Loaded    bool                `json:"loaded"`
	FetchedAt *time.Time          `json:"fetched_at,omitempty"`
	Rows      int                 `json:"rows"`
	Columns   []string            `json:"columns,omitempty"`
	Exports   ExportLimiterStatus `json:"exports"`
}
