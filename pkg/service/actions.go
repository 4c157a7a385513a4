package service

import (
	"apodgallery"
	"apodgallery/pkg/consts"
	"apodgallery/pkg/facts"
	"apodgallery/pkg/modal"
	"apodgallery/pkg/page"
	"apodgallery/pkg/render"
	"apodgallery/pkg/repository"
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

type Options struct {
	AllowStacking bool
	Rand          *rand.Rand
}

// одна открытая страница со всей своей проводкой
type session struct {
	doc    *page.Document
	orch   *Orchestrator
	cancel context.CancelFunc
}

// GalleryService holds the single page the server shows.
type GalleryService struct {
	ctx     context.Context
	fetcher Fetcher
	journal repository.Journal
	opts    Options
	log     *logrus.Entry

	mu      sync.Mutex
	rnd     *rand.Rand
	session *session
}

func NewGalleryService(ctx context.Context, fetcher Fetcher, journal repository.Journal, opts Options, log *logrus.Entry) *GalleryService {

	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &GalleryService{
		ctx:     ctx,
		fetcher: fetcher,
		journal: journal,
		opts:    opts,
		log:     log,
		rnd:     rnd,
	}
}

// Load is a page load: a fresh document, a random fact and the listeners.
// The previous page is unloaded and its in-flight fetch is canceled.
func (s *GalleryService) Load() (string, error) {

	s.mu.Lock()
	sess, old, err := s.load()
	s.mu.Unlock()

	if err != nil {
		return "", err
	}

	if old != nil {
		old.cancel()
	}

	return sess.doc.HTML()
}

// load собирает новую страницу и ставит её текущей, s.mu должен быть взят
func (s *GalleryService) load() (*session, *session, error) {

	markup, err := render.PageMarkup(apodgallery.PlaceholderIdle)
	if err != nil {
		return nil, nil, err
	}

	doc, err := page.New(markup)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	orch := NewOrchestrator(ctx, doc, s.fetcher, s.journal, s.log)

	ctrl := modal.NewController(s.log)
	ctrl.AllowStacking = s.opts.AllowStacking

	doc.Do(func(p *page.Page) {
		facts.Display(p.Find(consts.SelectorFact), s.rnd)

		p.Listen(p.Find(consts.SelectorTrigger), func(e *page.Event) {
			orch.Trigger(e.Page)
		})

		ctrl.Attach(p)
	})

	old := s.session
	s.session = &session{doc: doc, orch: orch, cancel: cancel}

	return s.session, old, nil
}

// current отдаёт открытую страницу, первую загружает под тем же локом
func (s *GalleryService) current() (*session, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session, nil
	}

	sess, _, err := s.load()
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// Page renders the current document without reloading it.
func (s *GalleryService) Page() (string, error) {

	sess, err := s.current()
	if err != nil {
		return "", err
	}

	return sess.doc.HTML()
}

func (s *GalleryService) GalleryHTML() (string, error) {

	sess, err := s.current()
	if err != nil {
		return "", err
	}

	var (
		out  string
		herr error
	)
	sess.doc.Do(func(p *page.Page) {
		out, herr = p.Find(consts.SelectorGallery).Html()
	})

	return out, herr
}

// Items reads the rendered cards back from the page.
func (s *GalleryService) Items() ([]apodgallery.Item, error) {

	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	items := make([]apodgallery.Item, 0)
	sess.doc.Do(func(p *page.Page) {
		p.Find(consts.SelectorGallery + " ." + consts.ClassGalleryItem).Each(func(_ int, card *goquery.Selection) {
			item := modal.ItemFromDataset(card)
			item.Preview = previewFromCard(card)
			items = append(items, item)
		})
	})

	return items, nil
}

func previewFromCard(card *goquery.Selection) apodgallery.Preview {

	img := card.ChildrenFiltered("img").First()
	if img.Length() == 0 {
		return apodgallery.Preview{Kind: apodgallery.PreviewNone}
	}

	return apodgallery.Preview{
		Kind: apodgallery.PreviewImage,
		Src:  img.AttrOr("src", ""),
		Alt:  img.AttrOr("alt", ""),
	}
}

// Fetch does what a click on the trigger does. With wait it also blocks
// until the cycle is over or ctx is done.
func (s *GalleryService) Fetch(ctx context.Context, wait bool) (apodgallery.CycleRecord, error) {

	sess, err := s.current()
	if err != nil {
		return apodgallery.CycleRecord{}, err
	}

	var c *Cycle
	sess.doc.Do(func(p *page.Page) {
		c = sess.orch.Trigger(p)
	})

	if wait {
		if err := c.Wait(ctx); err != nil {
			return c.Snapshot(), err
		}
	}

	return c.Snapshot(), nil
}

// Click dispatches a click on the page and returns how many modals are open after it.
func (s *GalleryService) Click(selector string, index int) (int, error) {

	sess, err := s.current()
	if err != nil {
		return 0, err
	}

	if err := sess.doc.Click(selector, index); err != nil {
		return 0, err
	}

	var n int
	sess.doc.Do(func(p *page.Page) {
		n = modal.Count(p)
	})

	return n, nil
}

func (s *GalleryService) State() (apodgallery.State, error) {

	sess, err := s.current()
	if err != nil {
		return "", err
	}

	var st apodgallery.State
	sess.doc.Do(func(p *page.Page) {
		st = sess.orch.State()
	})

	return st, nil
}
