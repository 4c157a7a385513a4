package apodgallery

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// одна запись из фида, только на чтение
type Record struct {
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	HDURL       string    `json:"hdurl,omitempty"`
	ThumbURL    string    `json:"thumbnail_url,omitempty"`
	MediaType   MediaType `json:"media_type"`
	Copyright   string    `json:"copyright,omitempty"`
	Explanation string    `json:"explanation"`
}

type PreviewKind string

const (
	PreviewImage PreviewKind = "image"
	PreviewNone  PreviewKind = "none"
)

// то что показывается в карточке галереи
type Preview struct {
	Kind PreviewKind `json:"kind"`
	Src  string      `json:"src,omitempty"`
	Alt  string      `json:"alt,omitempty"`
}

// Item is a rendered gallery card. It keeps its own copy of everything the
// modal needs, so clicks never go back to the feed.
type Item struct {
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Explanation string    `json:"explanation"`
	MediaType   MediaType `json:"media_type"`
	HDURL       string    `json:"hdurl"`
	DisplayURL  string    `json:"display_url"`
	Preview     Preview   `json:"preview"`
}

type Placeholder struct {
	Icon    string `json:"icon"`
	Message string `json:"message"`
}

var (
	PlaceholderIdle    = Placeholder{Icon: "🔭", Message: "Press the button to load space photos."}
	PlaceholderLoading = Placeholder{Icon: "🔄", Message: "Loading space photos..."}
	PlaceholderError   = Placeholder{Icon: "🚫", Message: "Error fetching images. Please try again later."}
	PlaceholderEmpty   = Placeholder{Icon: "🤷", Message: "No images found."}
)

// результат одного прохода рендера: либо заглушка, либо карточки
type View struct {
	Placeholder *Placeholder `json:"placeholder,omitempty"`
	Items       []Item       `json:"items,omitempty"`
}

type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateSuccess  State = "success"
	StateError    State = "error"
	StateCanceled State = "canceled"
)

// Terminal reports whether a cycle in this state is finished.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError || s == StateCanceled
}

// запись журнала о завершённом цикле загрузки
type CycleRecord struct {
	ID         string    `json:"id" db:"id"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
	State      State     `json:"state" db:"state"`
	Records    int       `json:"records" db:"records"`
	Error      string    `json:"error,omitempty" db:"error"`
}
