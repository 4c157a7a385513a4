package repository

import (
	"apodgallery"
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Journal keeps finished fetch cycles for diagnostics.
type Journal interface {
	Record(ctx context.Context, c apodgallery.CycleRecord) error
	Recent(ctx context.Context, since time.Time, limit int) ([]apodgallery.CycleRecord, error)
}

type Repository struct {
	Journal
}

// NewRepository uses Postgres when db is given and memory otherwise.
func NewRepository(db *sqlx.DB) *Repository {

	if db == nil {
		return &Repository{Journal: NewMemory()}
	}

	return &Repository{
		Journal: NewPostgres(db),
	}
}
