package modal

import (
	"apodgallery"
	"apodgallery/pkg/consts"
	"apodgallery/pkg/page"
	"apodgallery/pkg/render"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Controller opens a detail overlay for clicked gallery cards.
type Controller struct {
	// по умолчанию новый оверлей не открывается, пока висит старый
	AllowStacking bool

	log *logrus.Entry
}

func NewController(log *logrus.Entry) *Controller {
	return &Controller{log: log.WithField("component", "modal")}
}

// Attach puts one delegated click listener on the gallery container.
func (c *Controller) Attach(p *page.Page) {

	gallery := p.Find(consts.SelectorGallery)
	if gallery.Length() == 0 {
		c.log.Warn("gallery container not found, modal is not attached")
		return
	}

	p.Listen(gallery, c.handleGalleryClick)
}

func (c *Controller) handleGalleryClick(e *page.Event) {

	item := e.Page.Selection(e.Target).Closest("." + consts.ClassGalleryItem)
	if item.Length() == 0 {
		return
	}

	if !c.AllowStacking && Count(e.Page) > 0 {
		c.log.Debug("modal already open, click ignored")
		return
	}

	if err := Open(e.Page, ItemFromDataset(item)); err != nil {
		c.log.Errorf("error while opening modal: %q", err)
	}
}

// ItemFromDataset reads back what the renderer stored on the card.
func ItemFromDataset(sel *goquery.Selection) apodgallery.Item {
	return apodgallery.Item{
		Title:       sel.AttrOr(consts.AttrTitle, ""),
		Date:        sel.AttrOr(consts.AttrDate, ""),
		Explanation: sel.AttrOr(consts.AttrExplanation, ""),
		MediaType:   apodgallery.MediaType(sel.AttrOr(consts.AttrMediaType, "")),
		HDURL:       sel.AttrOr(consts.AttrHDURL, ""),
		DisplayURL:  sel.AttrOr(consts.AttrDisplayURL, ""),
	}
}

// Open appends the overlay as the last child of body and wires its close handlers.
func Open(p *page.Page, item apodgallery.Item) error {

	markup, err := render.ModalMarkup(item)
	if err != nil {
		return err
	}

	overlay := p.AppendToBody(markup).First()
	node := overlay.Get(0)

	p.Listen(overlay.Find("."+consts.ClassModalClose), func(e *page.Event) {
		e.Page.Remove(overlay)
	})

	// закрываем только при клике по самому фону, клик внутри контента сюда тоже всплывает
	p.Listen(overlay, func(e *page.Event) {
		if e.Target == node {
			e.Page.Remove(overlay)
		}
	})

	return nil
}

// Count returns how many overlays are open.
func Count(p *page.Page) int {
	return p.Find("body > ." + consts.ClassModalOverlay).Length()
}
