package render

import (
	"apodgallery"
	"bytes"
	"embed"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

var tmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"mediaURL": mediaURL,
}).ParseFS(templatesFS, "templates/*.html"))

// mediaURL пропускает http(s), относительные и data:image адреса как есть,
// остальное остаётся строкой и шаблон заменит его на #ZgotmplZ.
// Пробелы и не-ascii шаблон всё равно экранирует через %XX.
func mediaURL(s string) interface{} {

	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return s
	}

	switch u.Scheme {
	case "", "http", "https":
		return template.URL(s)
	case "data":
		if strings.HasPrefix(u.Opaque, "image/") {
			return template.URL(s)
		}
	}

	return s
}

// Gallery maps records to the view of one render pass. Feed order is kept.
func Gallery(records []apodgallery.Record) apodgallery.View {

	if len(records) == 0 {
		p := apodgallery.PlaceholderEmpty
		return apodgallery.View{Placeholder: &p}
	}

	items := make([]apodgallery.Item, 0, len(records))
	for _, r := range records {
		items = append(items, ResolveItem(r))
	}

	return apodgallery.View{Items: items}
}

// Placeholder wraps a placeholder into a view.
func Placeholder(p apodgallery.Placeholder) apodgallery.View {
	return apodgallery.View{Placeholder: &p}
}

func ResolveItem(r apodgallery.Record) apodgallery.Item {
	return apodgallery.Item{
		Title:       r.Title,
		Date:        r.Date,
		Explanation: r.Explanation,
		MediaType:   r.MediaType,
		HDURL:       stillURL(r),
		DisplayURL:  DisplayURL(r),
		Preview:     PreviewOf(r),
	}
}

// DisplayURL is the url the modal shows: playable url for video,
// the best still image for everything else.
func DisplayURL(r apodgallery.Record) string {

	if r.MediaType == apodgallery.MediaVideo {
		return r.URL
	}

	return stillURL(r)
}

// hd в приоритете, у старых записей его нет
func stillURL(r apodgallery.Record) string {

	if r.HDURL != "" {
		return r.HDURL
	}

	return r.URL
}

// PreviewOf picks what the compact gallery card shows.
// тут намеренно url, а не hdurl: карточка маленькая
func PreviewOf(r apodgallery.Record) apodgallery.Preview {

	switch {
	case r.MediaType == apodgallery.MediaImage:
		return apodgallery.Preview{Kind: apodgallery.PreviewImage, Src: r.URL, Alt: r.Title}
	case r.MediaType == apodgallery.MediaVideo && r.ThumbURL != "":
		return apodgallery.Preview{Kind: apodgallery.PreviewImage, Src: r.ThumbURL, Alt: "Video: " + r.Title}
	default:
		return apodgallery.Preview{Kind: apodgallery.PreviewNone}
	}
}

// ViewMarkup renders the contents of the gallery container.
func ViewMarkup(v apodgallery.View) (string, error) {
	return execute("gallery", v)
}

func PlaceholderMarkup(p apodgallery.Placeholder) (string, error) {
	return execute("placeholder", p)
}

// ModalMarkup renders the overlay with its content pane for one item.
func ModalMarkup(item apodgallery.Item) (string, error) {
	return execute("modal", item)
}

// PageMarkup renders the page shell with the given gallery placeholder.
func PageMarkup(p apodgallery.Placeholder) (string, error) {
	return execute("page", p)
}

func execute(name string, data interface{}) (string, error) {

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
