package feed

import (
	"apodgallery"
	"apodgallery/pkg/consts"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

var (
	ErrStatus = errors.New("unexpected response status")
	ErrParse  = errors.New("malformed feed body")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! Status: %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatRSS  Format = "rss"
)

// Client reads the whole feed in one GET. No timeout of its own, only ctx.
type Client struct {
	url    string
	format Format
	http   *http.Client
	parser *gofeed.Parser
	log    *logrus.Entry
}

func NewClient(feedURL string, format Format, hc *http.Client, log *logrus.Entry) *Client {

	if hc == nil {
		hc = http.DefaultClient
	}

	if format == "" {
		format = FormatAuto
	}

	return &Client{
		url:    feedURL,
		format: format,
		http:   hc,
		parser: gofeed.NewParser(),
		log:    log.WithField("component", "feed"),
	}
}

func (c *Client) Fetch(ctx context.Context) ([]apodgallery.Record, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}

	c.log.Debugf("request info: %s", c.url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	records, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	c.log.Debugf("feed info: %d records", len(records))
	return records, nil
}

// формат тела определяется по первому символу, если в конфиге не задан явно
func (c *Client) decode(body []byte) ([]apodgallery.Record, error) {

	switch c.format {
	case FormatJSON:
		return decodeJSON(body)
	case FormatRSS:
		return c.decodeFeed(body)
	}

	trimmed := trim(body)
	if !json.Valid(trimmed) || isJSONFeed(trimmed) {
		return c.decodeFeed(body)
	}

	return decodeJSON(body)
}

// массив записей или одна запись, как отдаёт api.nasa.gov на запрос по дате
func decodeJSON(body []byte) ([]apodgallery.Record, error) {

	trimmed := trim(body)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var r apodgallery.Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		// объект с ошибкой от api (rate limit и т.п.) записью не считается
		if r.URL == "" && r.MediaType == "" {
			return nil, fmt.Errorf("%w: object is not a record", ErrParse)
		}

		return []apodgallery.Record{r}, nil
	}

	var raw []*apodgallery.Record
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if raw == nil {
		return nil, nil
	}

	records := make([]apodgallery.Record, 0, len(raw))
	for i, r := range raw {
		if r == nil || *r == (apodgallery.Record{}) {
			return nil, fmt.Errorf("%w: element %d is empty", ErrParse, i)
		}
		records = append(records, *r)
	}

	return records, nil
}

func (c *Client) decodeFeed(body []byte) ([]apodgallery.Record, error) {

	f, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	records := make([]apodgallery.Record, 0, len(f.Items))
	for _, it := range f.Items {
		records = append(records, recordFromItem(it))
	}

	return records, nil
}

// в rss у apod картинка лежит внутри description, её оттуда и достаём
func recordFromItem(it *gofeed.Item) apodgallery.Record {

	r := apodgallery.Record{
		Title:     strings.TrimSpace(it.Title),
		Date:      it.Published,
		MediaType: apodgallery.MediaOther,
		URL:       it.Link,
	}

	if it.PublishedParsed != nil {
		r.Date = it.PublishedParsed.Format(consts.TimeFormat)
	}

	description := it.Description
	if description == "" {
		description = it.Content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err == nil {
		r.Explanation = strings.Join(strings.Fields(doc.Text()), " ")

		if src, ok := doc.Find("img[src]").First().Attr("src"); ok {
			r.MediaType = apodgallery.MediaImage
			r.URL = resolve(it.Link, src)
			return r
		}
	}

	if it.Image != nil && it.Image.URL != "" {
		r.MediaType = apodgallery.MediaImage
		r.URL = it.Image.URL
		return r
	}

	for _, enc := range it.Enclosures {
		switch {
		case strings.HasPrefix(enc.Type, "image/"):
			r.MediaType = apodgallery.MediaImage
			r.URL = enc.URL
			return r
		case strings.HasPrefix(enc.Type, "video/"):
			r.MediaType = apodgallery.MediaVideo
			r.URL = enc.URL
			return r
		}
	}

	return r
}

func resolve(base, ref string) string {

	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return b.ResolveReference(u).String()
}

func isJSONFeed(body []byte) bool {

	if len(body) == 0 || body[0] != '{' {
		return false
	}

	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}

	return strings.HasPrefix(probe.Version, "https://jsonfeed.org/")
}

func trim(body []byte) []byte {
	return bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
}
