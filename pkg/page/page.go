package page

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var ErrNoTarget = errors.New("no click target")

// Event is a click travelling up from Target. CurrentTarget is the node
// whose listener is running right now.
type Event struct {
	Target        *html.Node
	CurrentTarget *html.Node
	Page          *Page
}

type Listener func(e *Event)

// Page is a live DOM. Its methods are not locked: they are meant to be used
// from inside Document.Do or from a listener.
type Page struct {
	doc       *goquery.Document
	listeners map[*html.Node][]Listener
}

func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

func (p *Page) Body() *goquery.Selection {
	return p.doc.Find("body")
}

// Selection wraps nodes of this page into a selection.
func (p *Page) Selection(nodes ...*html.Node) *goquery.Selection {
	return p.doc.FindNodes(nodes...)
}

// SetHTML replaces the content of sel, old children go away with their listeners.
func (p *Page) SetHTML(sel *goquery.Selection, markup string) {

	sel.Children().Each(func(_ int, c *goquery.Selection) {
		p.forget(c)
	})

	sel.SetHtml(markup)
}

// AppendToBody parses markup as the last children of body and returns the new elements.
func (p *Page) AppendToBody(markup string) *goquery.Selection {

	body := p.Body()
	before := body.Children().Length()

	body.AppendHtml(markup)

	return body.Children().Slice(before, goquery.ToEnd)
}

// Remove detaches nodes from the page.
func (p *Page) Remove(sel *goquery.Selection) {
	p.forget(sel)
	sel.Remove()
}

func (p *Page) Listen(sel *goquery.Selection, l Listener) {
	for _, n := range sel.Nodes {
		p.listeners[n] = append(p.listeners[n], l)
	}
}

// Dispatch delivers a click on target to every listener on the way up to the
// root and returns how many of them ran. The path is fixed before the first
// listener runs, so removing nodes on the way does not change it.
func (p *Page) Dispatch(target *html.Node) int {

	var path []*html.Node
	for n := target; n != nil; n = n.Parent {
		path = append(path, n)
	}

	var called int
	for _, n := range path {

		ls := append([]Listener(nil), p.listeners[n]...)
		for _, l := range ls {
			l(&Event{Target: target, CurrentTarget: n, Page: p})
			called++
		}
	}

	return called
}

func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}

// забываем слушателей у всего поддерева, иначе мапа будет держать удалённые ноды
func (p *Page) forget(sel *goquery.Selection) {
	for _, root := range sel.Nodes {
		walk(root, func(n *html.Node) {
			delete(p.listeners, n)
		})
	}
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// Document holds one page and runs tasks on it one at a time.
type Document struct {
	mu   sync.Mutex
	page *Page
}

func New(markup string) (*Document, error) {

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	return &Document{page: &Page{doc: doc, listeners: make(map[*html.Node][]Listener)}}, nil
}

// Do runs fn to completion before any other task on this document starts.
func (d *Document) Do(fn func(p *Page)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fn(d.page)
}

// Click finds the index-th match of selector and dispatches a click on it.
func (d *Document) Click(selector string, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.page.Find(selector)
	if index < 0 || index >= sel.Length() {
		return fmt.Errorf("%w: %q[%d]", ErrNoTarget, selector, index)
	}

	d.page.Dispatch(sel.Get(index))
	return nil
}

func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.page.HTML()
}
