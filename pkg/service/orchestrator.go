package service

import (
	"apodgallery"
	"apodgallery/pkg/consts"
	"apodgallery/pkg/page"
	"apodgallery/pkg/render"
	"apodgallery/pkg/repository"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]apodgallery.Record, error)
}

// Cycle is one fetch started by one user action.
type Cycle struct {
	ID        uuid.UUID
	StartedAt time.Time

	mu         sync.Mutex
	state      apodgallery.State
	finishedAt time.Time
	records    int
	err        error
	done       chan struct{}
}

func newCycle() *Cycle {
	return &Cycle{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		state:     apodgallery.StateLoading,
		done:      make(chan struct{}),
	}
}

func (c *Cycle) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the cycle ends or ctx is done.
func (c *Cycle) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cycle) State() apodgallery.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Cycle) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Cycle) Snapshot() apodgallery.CycleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := apodgallery.CycleRecord{
		ID:         c.ID.String(),
		StartedAt:  c.StartedAt,
		FinishedAt: c.finishedAt,
		State:      c.state,
		Records:    c.records,
	}
	if c.err != nil {
		r.Error = c.err.Error()
	}

	return r
}

func (c *Cycle) finish(state apodgallery.State, records int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	c.records = records
	c.err = err
	c.finishedAt = time.Now().UTC()
}

// Orchestrator drives the loading/error/success cycle of the gallery container.
type Orchestrator struct {
	ctx     context.Context
	doc     *page.Document
	fetcher Fetcher
	journal repository.Journal
	log     *logrus.Entry

	// поля ниже меняются только внутри задач страницы
	generation uint64
	current    *Cycle
	cancel     context.CancelFunc
}

// NewOrchestrator binds a fetcher to one page. ctx is the page lifetime:
// when it ends, in-flight cycles end as canceled.
func NewOrchestrator(ctx context.Context, doc *page.Document, fetcher Fetcher, journal repository.Journal, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		ctx:     ctx,
		doc:     doc,
		fetcher: fetcher,
		journal: journal,
		log:     log.WithField("component", "orchestrator"),
	}
}

// Trigger starts a new cycle. It must run inside a task of the orchestrator's
// document: the loading placeholder is in place when it returns, the fetch
// itself goes on in the background.
func (o *Orchestrator) Trigger(p *page.Page) *Cycle {

	// предыдущий запрос больше никому не нужен, последним пишет последний нажатый
	if o.cancel != nil {
		o.cancel()
	}

	o.generation++
	ctx, cancel := context.WithCancel(o.ctx)
	o.cancel = cancel

	c := newCycle()
	o.current = c

	if err := o.show(p, render.Placeholder(apodgallery.PlaceholderLoading)); err != nil {
		o.log.Errorf("error while rendering loading placeholder: %q", err)
	}

	o.log.WithField("cycle_id", c.ID).Info("fetch started")

	go o.run(ctx, cancel, o.generation, c)
	return c
}

// State is the state of the latest cycle, idle if there was none.
// Must run inside a task of the orchestrator's document.
func (o *Orchestrator) State() apodgallery.State {

	if o.current == nil {
		return apodgallery.StateIdle
	}

	return o.current.State()
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, gen uint64, c *Cycle) {
	defer cancel()

	records, err := o.fetcher.Fetch(ctx)

	o.doc.Do(func(p *page.Page) {
		o.complete(p, gen, c, records, err)
	})

	log := o.log.WithFields(logrus.Fields{
		"cycle_id": c.ID,
		"state":    c.State(),
		"records":  len(records),
	})
	log.Info("fetch finished")

	jctx, jcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer jcancel()

	if err := o.journal.Record(jctx, c.Snapshot()); err != nil {
		log.Errorf("error while saving cycle to journal: %q", err)
	}

	close(c.done)
}

func (o *Orchestrator) complete(p *page.Page, gen uint64, c *Cycle, records []apodgallery.Record, err error) {

	// за это время мог начаться новый цикл или страницу перезагрузили
	if gen != o.generation || o.ctx.Err() != nil {
		if err == nil {
			err = context.Canceled
		}
		c.finish(apodgallery.StateCanceled, 0, err)
		return
	}

	o.cancel = nil

	if err == nil {
		if err = o.show(p, render.Gallery(records)); err == nil {
			c.finish(apodgallery.StateSuccess, len(records), nil)
			return
		}
	}

	o.log.WithField("cycle_id", c.ID).Errorf("Error fetching images: %q", err)

	if serr := o.show(p, render.Placeholder(apodgallery.PlaceholderError)); serr != nil {
		o.log.Errorf("error while rendering error placeholder: %q", serr)
	}

	c.finish(apodgallery.StateError, 0, err)
}

var errNoGallery = errors.New("gallery container not found")

// контейнер галереи всегда переписывается целиком
func (o *Orchestrator) show(p *page.Page, v apodgallery.View) error {

	gallery := p.Find(consts.SelectorGallery)
	if gallery.Length() == 0 {
		return errNoGallery
	}

	markup, err := render.ViewMarkup(v)
	if err != nil {
		return err
	}

	p.SetHTML(gallery, markup)
	return nil
}
