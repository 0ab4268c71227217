// Package source loads dataset tables from Postgres.
package source

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dataviz/internal/dataset"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PoolOptions tunes Connect. Zero fields keep the pgx defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DatabaseName returns the database part of a connection URL for logging,
// or "" when the URL cannot be parsed.
func DatabaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Query runs sql and returns the result as a table, one column per field.
func Query(ctx context.Context, q Querier, sql string, args ...any) (*dataset.Table, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	var cells [][]dataset.Cell
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(cells)+1, err)
		}
		row := make([]dataset.Cell, len(vals))
		for i, v := range vals {
			row[i] = CellFromValue(v)
		}
		cells = append(cells, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	t, err := dataset.NewTable(names, cells)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return t, nil
}

// QueryTable loads every row of table. The name is quoted as an identifier.
func QueryTable(ctx context.Context, q Querier, table string) (*dataset.Table, error) {
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return Query(ctx, q, "SELECT * FROM "+ident)
}

// CellFromValue converts a value decoded by pgx into a cell. Numbers become
// Number; strings go through the same parsing as CSV fields; times, uuids
// and everything else become Text; nil and invalid values become Null.
func CellFromValue(v any) dataset.Cell {
	switch val := v.(type) {
	case nil:
		return dataset.NullCell()
	case int:
		return dataset.NumberCell(float64(val))
	case int8:
		return dataset.NumberCell(float64(val))
	case int16:
		return dataset.NumberCell(float64(val))
	case int32:
		return dataset.NumberCell(float64(val))
	case int64:
		return dataset.NumberCell(float64(val))
	case uint32:
		return dataset.NumberCell(float64(val))
	case float32:
		return dataset.NumberCell(float64(val))
	case float64:
		return dataset.NumberCell(val)
	case *big.Int:
		f, _ := new(big.Float).SetInt(val).Float64()
		return dataset.NumberCell(f)
	case pgtype.Numeric:
		if !val.Valid || val.NaN {
			return dataset.NullCell()
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return dataset.NullCell()
		}
		return dataset.NumberCell(f.Float64)
	case pgtype.Text:
		if !val.Valid {
			return dataset.NullCell()
		}
		return dataset.ParseCell(val.String)
	case string:
		return dataset.ParseCell(val)
	case bool:
		if val {
			return dataset.TextCell("true")
		}
		return dataset.TextCell("false")
	case time.Time:
		if val.IsZero() {
			return dataset.NullCell()
		}
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return dataset.TextCell(val.Format("2006-01-02"))
		}
		return dataset.TextCell(val.Format(time.RFC3339))
	case [16]byte:
		return dataset.TextCell(pgtype.UUID{Bytes: val, Valid: true}.String())
	case pgtype.UUID:
		if !val.Valid {
			return dataset.NullCell()
		}
		return dataset.TextCell(val.String())
	case []byte:
		return dataset.ParseCell(string(val))
	case fmt.Stringer:
		return dataset.TextCell(val.String())
	}
	return dataset.TextCell(fmt.Sprint(v))
}
