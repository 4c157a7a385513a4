package handler

import (
	"apodgallery/pkg/consts"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// вытягивает время из запроса
func getTimeParam(r *http.Request, name string) time.Time {

	if r == nil {
		return time.Time{}
	}

	t, err := time.Parse(consts.TimeFormat, r.URL.Query().Get(name))
	if err != nil {
		return time.Time{}
	}

	return t
}

// вытягивает строку из запроса, для POST смотрит и в тело формы
func getStringParam(r *http.Request, name string) string {

	if r == nil {
		return ""
	}

	return r.FormValue(name)
}

// число из запроса, при мусоре или отрицательном значении возвращает def
func getIntParam(r *http.Request, name string, def int) int {

	v := getStringParam(r, name)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}

	return n
}

// описание ответа сервера
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func sendResponse(w http.ResponseWriter, status int, msg string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Response{Message: msg, Data: data}); err != nil {
		logrus.Errorf("error while sending response %q", err)
	}
}

func sendHTML(w http.ResponseWriter, status int, markup string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if _, err := io.WriteString(w, markup); err != nil {
		logrus.Errorf("error while sending page %q", err)
	}
}
