package source

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// DefaultQuery selects the spreadsheet bytes by identifier.
const DefaultQuery = "SELECT content FROM source_files WHERE id = $1"

// RowQuerier is the subset of *pgxpool.Pool used by Postgres.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres reads the spreadsheet from a bytea column.
type Postgres struct {
	DB    RowQuerier
	Query string
	ID    string
}

// NewPostgres returns a Postgres source reading row id with query.
func NewPostgres(db RowQuerier, query, id string) *Postgres {
	if query == "" {
		query = DefaultQuery
	}
	return &Postgres{DB: db, Query: query, ID: id}
}

func (p *Postgres) Describe() Descriptor {
	return Descriptor{Mode: ModePostgres, Identifier: p.ID}
}

func (p *Postgres) Acquire(ctx context.Context) ([]byte, error) {
	var data []byte
	if err := p.DB.QueryRow(ctx, p.Query, p.ID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &Error{Kind: KindNotFound, Source: p.Describe(), Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Source: p.Describe(), Err: err}
	}
	if data == nil {
		return nil, &Error{Kind: KindNotFound, Source: p.Describe()}
	}
	return data, nil
}
