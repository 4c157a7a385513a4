package consts

const (
	ParamSince    = "since"
	ParamLimit    = "limit"
	ParamSelector = "selector"
	ParamIndex    = "index"
	ParamWait     = "wait"

	TimeFormat = "2006-01-02"

	// переменные окружения
	ConfigPath = "APOD_GALLERY_CONFIG"
	AppPort    = "APP_PORT"
	FeedURL    = "FEED_URL"
	FeedFormat = "FEED_FORMAT"
	LogLevel   = "LOG_LEVEL"
	DBHost     = "DB_HOST"
	DBPort     = "DB_PORT"
	DBUsername = "DB_USERNAME"
	DBName     = "DB_NAME"
	DBSSLMode  = "DB_SSLMODE"
	DBPassword = "DB_PASSWORD"

	DefaultFeedURL = "https://cdn.jsdelivr.net/gh/GCA-Classroom/apod/data.json"

	// адресуемые области страницы
	SelectorFact    = "#random-fact-text"
	SelectorTrigger = "#getImageBtn"
	SelectorGallery = "#gallery"

	ClassGalleryItem  = "gallery-item"
	ClassModalOverlay = "modal-overlay"
	ClassModalClose   = "modal-close-btn"

	AttrTitle       = "data-title"
	AttrDate        = "data-date"
	AttrExplanation = "data-explanation"
	AttrMediaType   = "data-media-type"
	AttrHDURL       = "data-hdurl"
	AttrDisplayURL  = "data-display-url"

	True = "true"
)
