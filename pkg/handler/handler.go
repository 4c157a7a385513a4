package handler

import (
	"apodgallery/pkg/consts"
	"apodgallery/pkg/page"
	srvc "apodgallery/pkg/service"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const defaultCyclesLimit = 50

type Handler struct {
	services *srvc.Service
}

func NewHandler(services *srvc.Service) *Handler {
	return &Handler{services}
}

func (h *Handler) InitRoutes() *mux.Router {

	router := mux.NewRouter()

	// "/" это загрузка страницы, всё остальное работает с уже открытой
	router.HandleFunc("/", h.LoadPage).Methods(http.MethodGet)
	router.HandleFunc("/v1/page", h.CurrentPage).Methods(http.MethodGet)
	router.HandleFunc("/v1/gallery", h.Gallery).Methods(http.MethodGet)
	router.HandleFunc("/v1/items", h.Items).Methods(http.MethodGet)
	router.HandleFunc("/v1/state", h.State).Methods(http.MethodGet)
	router.HandleFunc("/v1/fetch", h.Fetch).Methods(http.MethodPost)
	router.HandleFunc("/v1/click", h.Click).Methods(http.MethodPost)
	router.HandleFunc("/v1/cycles", h.Cycles).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	return router
}

func (h *Handler) LoadPage(w http.ResponseWriter, r *http.Request) {

	markup, err := h.services.Load()
	if err != nil {
		logrus.Errorf("Error while loading page: %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendHTML(w, http.StatusOK, markup)
}

func (h *Handler) CurrentPage(w http.ResponseWriter, r *http.Request) {

	markup, err := h.services.Page()
	if err != nil {
		logrus.Errorf("Error while rendering page: %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendHTML(w, http.StatusOK, markup)
}

func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {

	markup, err := h.services.GalleryHTML()
	if err != nil {
		logrus.Errorf("Error while rendering gallery: %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendHTML(w, http.StatusOK, markup)
}

func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {

	items, err := h.services.Items()
	if err != nil {
		logrus.Errorf("Error while reading items: %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendResponse(w, http.StatusOK, "ok", items)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {

	st, err := h.services.State()
	if err != nil {
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendResponse(w, http.StatusOK, string(st), nil)
}

// то же самое, что нажать кнопку на странице
// с wait=true ответ приходит после окончания цикла
func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {

	wait := getStringParam(r, consts.ParamWait) == consts.True

	cycle, err := h.services.Fetch(r.Context(), wait)
	switch {
	case err == nil && wait:
		sendResponse(w, http.StatusOK, string(cycle.State), cycle)
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		sendResponse(w, http.StatusAccepted, string(cycle.State), cycle)
	default:
		logrus.Errorf("Error while starting fetch: %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

type clickResult struct {
	Modals int `json:"modals"`
}

func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {

	selector := getStringParam(r, consts.ParamSelector)
	if selector == "" {
		sendResponse(w, http.StatusBadRequest, "no selector", nil)
		return
	}

	n, err := h.services.Click(selector, getIntParam(r, consts.ParamIndex, 0))
	if errors.Is(err, page.ErrNoTarget) {
		sendResponse(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		logrus.Errorf("Error while dispatching click: %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendResponse(w, http.StatusOK, "ok", clickResult{Modals: n})
}

func (h *Handler) Cycles(w http.ResponseWriter, r *http.Request) {

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	since := getTimeParam(r, consts.ParamSince)
	limit := getIntParam(r, consts.ParamLimit, defaultCyclesLimit)

	cycles, err := h.services.Recent(ctx, since, limit)
	if err != nil {
		logrus.Errorf("db err %q", err)
		sendResponse(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	sendResponse(w, http.StatusOK, "ok", cycles)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, http.StatusOK, "ok", nil)
}
