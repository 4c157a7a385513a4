package service

import (
	"apodgallery"
	"apodgallery/pkg/repository"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Gallery interface {
	Load() (string, error)
	Page() (string, error)
	GalleryHTML() (string, error)
	Items() ([]apodgallery.Item, error)
	Fetch(ctx context.Context, wait bool) (apodgallery.CycleRecord, error)
	Click(selector string, index int) (int, error)
	State() (apodgallery.State, error)
}

type Journal interface {
	Recent(ctx context.Context, since time.Time, limit int) ([]apodgallery.CycleRecord, error)
}

type Service struct {
	Gallery
	Journal
}

func NewService(ctx context.Context, repos *repository.Repository, fetcher Fetcher, opts Options, log *logrus.Entry) *Service {
	return &Service{
		Gallery: NewGalleryService(ctx, fetcher, repos.Journal, opts, log),
		Journal: repos.Journal,
	}
}
