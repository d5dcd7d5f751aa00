package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/filtrador/internal/logging"
	"github.com/JonMunkholm/filtrador/internal/source"
	"github.com/JonMunkholm/filtrador/internal/table"
)

// ErrNoSelection is returned by Export when the selection is blank.
var ErrNoSelection = errors.New("no establishment selected")

// Recorder receives export outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Exported(rows int, err error)
}

// Service is the acquire, load, filter and export pipeline.
//
// The parsed table is shared read-only state. It is rebuilt only when
// the cache hands back a different entry, detected by FetchedAt.
type Service struct {
	src      source.Source
	cache    *source.Cache
	opts     Options
	recorder Recorder
	limiter  *ExportLimiter

	mu       sync.Mutex
	table    *table.Table
	parsedAt time.Time
}

// NewService wires a pipeline over src. cache may be nil to acquire on
// every call; recorder and limiter may be nil.
func NewService(src source.Source, cache *source.Cache, opts Options, recorder Recorder, limiter *ExportLimiter) *Service {
	if opts.SheetName == "" {
		opts.SheetName = table.DefaultSheetName
	}
	if opts.FilenamePrefix == "" {
		opts.FilenamePrefix = DefaultFilenamePrefix
	}
	return &Service{
		src:      src,
		cache:    cache,
		opts:     opts,
		recorder: recorder,
		limiter:  limiter,
	}
}

// Options returns the pipeline options.
func (s *Service) Options() Options { return s.opts }

// Limiter returns the export limiter, or nil.
func (s *Service) Limiter() *ExportLimiter { return s.limiter }

// Table acquires the source through the cache and returns the parsed
// table. No table is kept when acquisition or parsing fails.
func (s *Service) Table(ctx context.Context) (*table.Table, error) {
	entry, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil && s.parsedAt.Equal(entry.FetchedAt) {
		return s.table, nil
	}

	start := time.Now()
	t, err := table.Load(entry.Data)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("spreadsheet loaded",
		"source", s.src.Describe().String(),
		"rows", t.Len(),
		"columns", len(t.Columns()),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// A cacheless service parses on every call, so there is nothing to reuse.
	if s.cache != nil {
		s.table = t
		s.parsedAt = entry.FetchedAt
	}
	return t, nil
}

func (s *Service) fetch(ctx context.Context) (source.Entry, error) {
	if s.cache != nil {
		return s.cache.Fetch(ctx, s.src)
	}
	data, err := s.src.Acquire(ctx)
	if err != nil {
		return source.Entry{}, err
	}
	return source.Entry{Data: data, FetchedAt: time.Now()}, nil
}

// Values returns the selectable establishments.
func (s *Service) Values(ctx context.Context) ([]string, error) {
	t, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return table.Values(t, s.opts.SortValues), nil
}

// Filter returns the rows whose FilterKey equals selection exactly.
func (s *Service) Filter(ctx context.Context, selection string) (*table.Table, error) {
	t, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return table.Filter(t, selection), nil
}

// Preview returns the filtered rows capped at PreviewMaxRows.
func (s *Service) Preview(ctx context.Context, selection string) (*Preview, error) {
	filtered, err := s.Filter(ctx, selection)
	if err != nil {
		return nil, err
	}

	shown := filtered
	if n := s.opts.PreviewMaxRows; n > 0 && filtered.Len() > n {
		shown = filtered.Head(n)
	}
	return &Preview{Selection: selection, Table: shown, Total: filtered.Len()}, nil
}

// Export filters by selection and encodes the result as a workbook.
// A selection matching nothing still exports the header row.
func (s *Service) Export(ctx context.Context, selection string) (exp *Export, err error) {
	if strings.TrimSpace(selection) == "" {
		return nil, ErrNoSelection
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}

	filtered, err := s.Filter(ctx, selection)
	if err != nil {
		return nil, err
	}

	defer func() {
		if s.recorder != nil {
			s.recorder.Exported(filtered.Len(), err)
		}
	}()

	data, err := table.Export(filtered, s.opts.SheetName)
	if err != nil {
		return nil, err
	}

	exp = &Export{
		ID:          uuid.New(),
		Selection:   selection,
		Filename:    ExportFilename(s.opts.FilenamePrefix, selection),
		ContentType: table.ContentType,
		Data:        data,
		Rows:        filtered.Len(),
	}

	logging.FromContext(ctx).Info("export ready",
		"export_id", exp.ID.String(),
		"establecimiento", selection,
		"rows", exp.Rows,
		"bytes", len(data),
		"ip", ClientIPFromContext(ctx),
		"user_agent", UserAgentFromContext(ctx),
	)
	return exp, nil
}

// Status reports what is loaded without triggering a fetch.
func (s *Service) Status() Status {
	d := s.src.Describe()
	st := Status{
		Source: d.String(),
		Mode:   string(d.Mode),
	}
	if s.cache != nil {
		st.CacheTTL = s.cache.TTL().String()
	}
	if s.limiter != nil {
		st.Exports = s.limiter.Status()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != nil {
		fetched := s.parsedAt
		st.Loaded = true
		st.FetchedAt = &fetched
		st.Rows = s.table.Len()
		st.Columns = s.table.Columns()
	}
	return st
}
