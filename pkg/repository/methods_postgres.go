package repository

import (
	"apodgallery"
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const (
	tableCycles = "fetch_cycles"

	querySchema = `CREATE TABLE IF NOT EXISTS fetch_cycles (
				   id          UUID PRIMARY KEY,
				   started_at  TIMESTAMPTZ NOT NULL,
				   finished_at TIMESTAMPTZ NOT NULL,
				   state       TEXT NOT NULL,
				   records     INTEGER NOT NULL DEFAULT 0,
				   error       TEXT NOT NULL DEFAULT '')`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Actions struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Actions {
	return &Actions{db}
}

func (r *Actions) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, querySchema)
	return err
}

func (r *Actions) Record(ctx context.Context, c apodgallery.CycleRecord) error {

	query, args, err := insertCycle(c).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *Actions) Recent(ctx context.Context, since time.Time, limit int) ([]apodgallery.CycleRecord, error) {

	query, args, err := selectRecent(since, limit).ToSql()
	if err != nil {
		return nil, err
	}

	var cycles []apodgallery.CycleRecord
	if err := r.db.SelectContext(ctx, &cycles, query, args...); err != nil {
		return nil, err
	}

	return cycles, nil
}

func insertCycle(c apodgallery.CycleRecord) sq.InsertBuilder {
	return psql.Insert(tableCycles).
		Columns("id", "started_at", "finished_at", "state", "records", "error").
		Values(c.ID, c.StartedAt, c.FinishedAt, string(c.State), c.Records, c.Error)
}

// самые свежие сверху, нулевые since и limit означают "без ограничений"
func selectRecent(since time.Time, limit int) sq.SelectBuilder {

	b := psql.Select("id", "started_at", "finished_at", "state", "records", "error").
		From(tableCycles).
		OrderBy("started_at DESC")

	if !since.IsZero() {
		b = b.Where(sq.GtOrEq{"started_at": since})
	}

	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	return b
}
