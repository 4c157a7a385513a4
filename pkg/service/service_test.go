package service

import (
	"apodgallery"
	"apodgallery/pkg/facts"
	"apodgallery/pkg/feed"
	"apodgallery/pkg/page"
	"apodgallery/pkg/render"
	"apodgallery/pkg/repository"
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type result struct {
	records []apodgallery.Record
	err     error
}

// отдаёт ответы только когда тест их пришлёт
type gatedFetcher struct {
	started chan struct{}
	results chan result
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		started: make(chan struct{}, 16),
		results: make(chan result, 16),
	}
}

func (f *gatedFetcher) Fetch(ctx context.Context) ([]apodgallery.Record, error) {

	f.started <- struct{}{}

	select {
	case r := <-f.results:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var sample = []apodgallery.Record{
	{
		Title:       "The Full Moon of 2021",
		Date:        "2022-01-01",
		Explanation: "full moon stripes",
		MediaType:   apodgallery.MediaImage,
		URL:         "https://apod.nasa.gov/apod/image/2201/MoonstripsAnnotatedIG_crop1024.jpg",
		HDURL:       "https://apod.nasa.gov/apod/image/2201/MoonstripsAnnotatedIG.jpg",
	}, {
		Title:       "Dueling Bands",
		Date:        "2022-03-01",
		Explanation: "a video",
		MediaType:   apodgallery.MediaVideo,
		URL:         "https://www.youtube.com/embed/c4Xky6tlFyY",
		ThumbURL:    "https://img.youtube.com/vi/c4Xky6tlFyY/0.jpg",
	}, {
		Title:     "Comet",
		Date:      "2022-02-01",
		MediaType: apodgallery.MediaImage,
		URL:       "https://apod.nasa.gov/apod/image/2202/comet.jpg",
	},
}

func newLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newDoc(t *testing.T) *page.Document {

	markup, err := render.PageMarkup(apodgallery.PlaceholderIdle)
	require.NoError(t, err)

	doc, err := page.New(markup)
	require.NoError(t, err)

	return doc
}

func galleryDoc(t *testing.T, doc *page.Document) *goquery.Document {

	var markup string
	doc.Do(func(p *page.Page) {
		var err error
		markup, err = p.Find("#gallery").Html()
		require.NoError(t, err)
	})

	g, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)

	return g
}

func trigger(doc *page.Document, o *Orchestrator) *Cycle {
	var c *Cycle
	doc.Do(func(p *page.Page) {
		c = o.Trigger(p)
	})
	return c
}

func wait(t *testing.T, c *Cycle) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Wait(ctx))
}

func TestTriggerShowsLoadingFirst(t *testing.T) {

	doc := newDoc(t)
	f := newGatedFetcher()
	o := NewOrchestrator(context.Background(), doc, f, repository.NewMemory(), newLogger())

	var before apodgallery.State
	doc.Do(func(p *page.Page) { before = o.State() })
	require.Equal(t, apodgallery.StateIdle, before)

	c := trigger(doc, o)

	// ответа ещё нет, а заглушка загрузки уже на месте
	g := galleryDoc(t, doc)
	require.Equal(t, apodgallery.PlaceholderLoading.Message, g.Find(".placeholder p").Text())
	require.Equal(t, apodgallery.StateLoading, c.State())

	f.results <- result{records: sample}
	wait(t, c)

	require.Equal(t, apodgallery.StateSuccess, c.State())
}

func TestTriggerOutcomes(t *testing.T) {

	tests := []struct {
		name        string
		result      result
		state       apodgallery.State
		items       int
		placeholder string
	}{
		{
			name:   "records in order",
			result: result{records: sample},
			state:  apodgallery.StateSuccess,
			items:  len(sample),
		}, {
			name:        "empty list",
			result:      result{records: []apodgallery.Record{}},
			state:       apodgallery.StateSuccess,
			placeholder: apodgallery.PlaceholderEmpty.Message,
		}, {
			name:        "null list",
			result:      result{},
			state:       apodgallery.StateSuccess,
			placeholder: apodgallery.PlaceholderEmpty.Message,
		}, {
			name:        "network error",
			result:      result{err: errors.New("connection refused")},
			state:       apodgallery.StateError,
			placeholder: apodgallery.PlaceholderError.Message,
		}, {
			name:        "status error",
			result:      result{err: &feed.StatusError{Code: http.StatusNotFound}},
			state:       apodgallery.StateError,
			placeholder: apodgallery.PlaceholderError.Message,
		}, {
			name:        "body is not records",
			result:      result{err: feed.ErrParse},
			state:       apodgallery.StateError,
			placeholder: apodgallery.PlaceholderError.Message,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			doc := newDoc(t)
			f := newGatedFetcher()
			journal := repository.NewMemory()
			o := NewOrchestrator(context.Background(), doc, f, journal, newLogger())

			c := trigger(doc, o)
			f.results <- tt.result
			wait(t, c)

			require.Equal(t, tt.state, c.State())

			g := galleryDoc(t, doc)
			items := g.Find(".gallery-item")
			require.Equal(t, tt.items, items.Length())

			if tt.items > 0 {
				items.Each(func(i int, s *goquery.Selection) {
					require.Equal(t, sample[i].Title, s.AttrOr("data-title", ""))
				})
				require.Equal(t, 0, g.Find(".placeholder").Length())
			} else {
				require.Equal(t, tt.placeholder, g.Find(".placeholder p").Text())
			}

			cycles, err := journal.Recent(context.Background(), time.Time{}, 0)
			require.NoError(t, err)
			require.Len(t, cycles, 1)
			require.Equal(t, c.ID.String(), cycles[0].ID)
			require.Equal(t, tt.state, cycles[0].State)
			require.Equal(t, tt.items, cycles[0].Records)

			if tt.result.err != nil {
				require.Equal(t, tt.result.err.Error(), cycles[0].Error)
			}
		})
	}
}

func TestRetryAfterError(t *testing.T) {

	doc := newDoc(t)
	f := newGatedFetcher()
	o := NewOrchestrator(context.Background(), doc, f, repository.NewMemory(), newLogger())

	first := trigger(doc, o)
	f.results <- result{err: errors.New("boom")}
	wait(t, first)
	require.Equal(t, apodgallery.StateError, first.State())

	second := trigger(doc, o)
	require.Equal(t, apodgallery.PlaceholderLoading.Message, galleryDoc(t, doc).Find(".placeholder p").Text())

	f.results <- result{records: sample[:1]}
	wait(t, second)

	require.Equal(t, apodgallery.StateSuccess, second.State())
	require.Equal(t, 1, galleryDoc(t, doc).Find(".gallery-item").Length())
}

func TestNewTriggerCancelsPrevious(t *testing.T) {

	doc := newDoc(t)
	f := newGatedFetcher()
	journal := repository.NewMemory()
	o := NewOrchestrator(context.Background(), doc, f, journal, newLogger())

	first := trigger(doc, o)
	<-f.started

	second := trigger(doc, o)
	<-f.started

	// первый запрос отменён и ничего не пишет в контейнер
	wait(t, first)
	require.Equal(t, apodgallery.StateCanceled, first.State())
	require.True(t, errors.Is(first.Err(), context.Canceled))
	require.Equal(t, apodgallery.PlaceholderLoading.Message, galleryDoc(t, doc).Find(".placeholder p").Text())

	f.results <- result{records: sample[2:]}
	wait(t, second)

	require.Equal(t, apodgallery.StateSuccess, second.State())
	g := galleryDoc(t, doc)
	require.Equal(t, 1, g.Find(".gallery-item").Length())
	require.Equal(t, "Comet", g.Find(".gallery-item").AttrOr("data-title", ""))

	cycles, err := journal.Recent(context.Background(), time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
}

// фетчер, который не слушает отмену и отвечает когда захочет
type stubbornFetcher struct {
	results chan result
}

func (f *stubbornFetcher) Fetch(_ context.Context) ([]apodgallery.Record, error) {
	r := <-f.results
	return r.records, r.err
}

func TestStaleCompletionIsDropped(t *testing.T) {

	doc := newDoc(t)
	f := &stubbornFetcher{results: make(chan result)}
	o := NewOrchestrator(context.Background(), doc, f, repository.NewMemory(), newLogger())

	first := trigger(doc, o)
	second := trigger(doc, o)

	f.results <- result{records: sample[:1]}
	f.results <- result{records: sample}

	wait(t, first)
	wait(t, second)

	// кто бы ни ответил первым, в контейнере результат последнего нажатия
	canceled := 0
	for _, c := range []*Cycle{first, second} {
		if c.State() == apodgallery.StateCanceled {
			canceled++
		}
	}
	require.Equal(t, 1, canceled)
	require.Equal(t, apodgallery.StateSuccess, second.State())
	require.Equal(t, second.Snapshot().Records, galleryDoc(t, doc).Find(".gallery-item").Length())
}

func TestNoGalleryContainer(t *testing.T) {

	doc, err := page.New(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)

	f := newGatedFetcher()
	o := NewOrchestrator(context.Background(), doc, f, repository.NewMemory(), newLogger())

	c := trigger(doc, o)
	f.results <- result{records: sample}
	wait(t, c)

	require.Equal(t, apodgallery.StateError, c.State())
}

func newFeedServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

const feedBody = `[
 {"date":"2022-01-01","title":"The Full Moon of 2021","explanation":"moon","media_type":"image",
  "url":"https://apod.nasa.gov/apod/image/2201/small.jpg","hdurl":"https://apod.nasa.gov/apod/image/2201/big.jpg"},
 {"date":"2022-02-01","title":"Dueling Bands","explanation":"video","media_type":"video",
  "url":"https://www.youtube.com/embed/c4Xky6tlFyY","thumbnail_url":"https://img.youtube.com/vi/c4Xky6tlFyY/0.jpg"}
]`

func newTestService(t *testing.T, feedURL string) (*GalleryService, *repository.Memory) {

	journal := repository.NewMemory()
	client := feed.NewClient(feedURL, feed.FormatAuto, nil, newLogger())

	return NewGalleryService(context.Background(), client, journal, Options{Rand: rand.New(rand.NewSource(7))}, newLogger()), journal
}

func TestGalleryServiceFlow(t *testing.T) {

	srv := newFeedServer(http.StatusOK, feedBody)
	defer srv.Close()

	s, _ := newTestService(t, srv.URL)

	markup, err := s.Load()
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	require.Contains(t, facts.Facts, doc.Find("#random-fact-text").Text())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cycle, err := s.Fetch(ctx, true)
	require.NoError(t, err)
	require.Equal(t, apodgallery.StateSuccess, cycle.State)
	require.Equal(t, 2, cycle.Records)

	items, err := s.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "https://apod.nasa.gov/apod/image/2201/big.jpg", items[0].DisplayURL)
	require.Equal(t, "https://apod.nasa.gov/apod/image/2201/small.jpg", items[0].Preview.Src)
	require.Equal(t, "https://www.youtube.com/embed/c4Xky6tlFyY", items[1].DisplayURL)
	require.Equal(t, "https://img.youtube.com/vi/c4Xky6tlFyY/0.jpg", items[1].Preview.Src)

	n, err := s.Click("#gallery .gallery-item", 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pageHTML, err := s.Page()
	require.NoError(t, err)

	doc, err = goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	require.NoError(t, err)
	require.Equal(t, "https://www.youtube.com/embed/c4Xky6tlFyY", doc.Find("body > .modal-overlay iframe").AttrOr("src", ""))

	n, err = s.Click(".modal-content", 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.Click(".modal-overlay", 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	st, err := s.State()
	require.NoError(t, err)
	require.Equal(t, apodgallery.StateSuccess, st)
}

func TestGalleryServiceErrorStatus(t *testing.T) {

	srv := newFeedServer(http.StatusInternalServerError, feedBody)
	defer srv.Close()

	s, journal := newTestService(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cycle, err := s.Fetch(ctx, true)
	require.NoError(t, err)
	require.Equal(t, apodgallery.StateError, cycle.State)
	require.Equal(t, "HTTP error! Status: 500", cycle.Error)

	items, err := s.Items()
	require.NoError(t, err)
	require.Empty(t, items)

	markup, err := s.GalleryHTML()
	require.NoError(t, err)
	require.Contains(t, markup, apodgallery.PlaceholderError.Message)

	cycles, err := journal.Recent(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	require.Equal(t, apodgallery.StateError, cycles[0].State)
}

func TestGalleryServiceNotRecords(t *testing.T) {

	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "api error", body: `{"error":{"code":"OVER_RATE_LIMIT","message":"You have exceeded your rate limit."}}`},
		{name: "null element", body: `[null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			srv := newFeedServer(http.StatusOK, tt.body)
			defer srv.Close()

			s, _ := newTestService(t, srv.URL)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cycle, err := s.Fetch(ctx, true)
			require.NoError(t, err)
			require.Equal(t, apodgallery.StateError, cycle.State)
			require.Equal(t, 0, cycle.Records)

			items, err := s.Items()
			require.NoError(t, err)
			require.Empty(t, items)

			markup, err := s.GalleryHTML()
			require.NoError(t, err)
			require.Contains(t, markup, apodgallery.PlaceholderError.Message)
		})
	}
}

func TestTriggerButton(t *testing.T) {

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		io.WriteString(w, feedBody)
	}))
	defer srv.Close()

	s, _ := newTestService(t, srv.URL)

	n, err := s.Click("#getImageBtn", 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	st, err := s.State()
	require.NoError(t, err)
	require.Equal(t, apodgallery.StateLoading, st)

	markup, err := s.GalleryHTML()
	require.NoError(t, err)
	require.Contains(t, markup, apodgallery.PlaceholderLoading.Message)

	close(release)

	require.Eventually(t, func() bool {
		st, err := s.State()
		return err == nil && st == apodgallery.StateSuccess
	}, 5*time.Second, 10*time.Millisecond)

	items, err := s.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestReloadCancelsInFlight(t *testing.T) {

	f := newGatedFetcher()
	journal := repository.NewMemory()
	s := NewGalleryService(context.Background(), f, journal, Options{}, newLogger())

	_, err := s.Load()
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), false)
	require.NoError(t, err)
	<-f.started

	_, err = s.Load()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		cycles, err := journal.Recent(context.Background(), time.Time{}, 0)
		return err == nil && len(cycles) == 1 && cycles[0].State == apodgallery.StateCanceled
	}, 5*time.Second, 10*time.Millisecond)

	// новая страница ничего не знает про старый цикл
	st, err := s.State()
	require.NoError(t, err)
	require.Equal(t, apodgallery.StateIdle, st)

	markup, err := s.GalleryHTML()
	require.NoError(t, err)
	require.Contains(t, markup, apodgallery.PlaceholderIdle.Message)
}

func TestClickUnknownTarget(t *testing.T) {

	s := NewGalleryService(context.Background(), newGatedFetcher(), repository.NewMemory(), Options{}, newLogger())

	_, err := s.Click(".gallery-item", 0)
	require.True(t, errors.Is(err, page.ErrNoTarget))
}

func TestFirstLoadConcurrent(t *testing.T) {

	s := NewGalleryService(context.Background(), newGatedFetcher(), repository.NewMemory(), Options{}, newLogger())

	const n = 16
	sessions := make([]*session, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], errs[i] = s.current()
		}(i)
	}
	wg.Wait()

	for i, sess := range sessions {
		require.NoError(t, errs[i])
		require.Same(t, sessions[0], sess)
	}
	require.Same(t, s.session, sessions[0])
}
