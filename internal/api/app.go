package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/plorberg/Choreo/internal/clip"
	"github.com/plorberg/Choreo/internal/export"
	"github.com/plorberg/Choreo/internal/project"
	"github.com/plorberg/Choreo/internal/storage"
	"github.com/plorberg/Choreo/internal/transport"
)

type App struct {
	Project       *project.Service
	Transport     *transport.Transport
	Binder        *clip.Binder
	Storage       storage.Storage
	MaxUploadSize int64
	StreamTick    time.Duration
	Logger        *slog.Logger

	upgrader websocket.Upgrader
}

func (app *App) logger() *slog.Logger {
	if app.Logger != nil {
		return app.Logger
	}
	return slog.Default()
}

func (app *App) streamTick() time.Duration {
	if app.StreamTick > 0 {
		return app.StreamTick
	}
	return 33 * time.Millisecond
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type advisoryResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// renderOpError maps the error taxonomy onto HTTP. Validation errors are 400
// with the state untouched; unmet playback preconditions are advisories, not
// failures, so the editor session keeps going.
func (app *App) renderOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, export.ErrInvalidFormat),
		errors.Is(err, project.ErrInvalidClipRange):
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: err.Error()})
	case errors.Is(err, project.ErrSequenceNotFound),
		errors.Is(err, project.ErrPictureNotFound),
		errors.Is(err, project.ErrVersionNotFound):
		writeJSON(w, http.StatusNotFound, advisoryResponse{OK: false, Message: err.Error()})
	case errors.Is(err, project.ErrNoActiveSequence),
		errors.Is(err, clip.ErrTooFewPictures),
		errors.Is(err, clip.ErrZeroDuration),
		errors.Is(err, clip.ErrAudioNotLoaded):
		writeJSON(w, http.StatusOK, advisoryResponse{OK: false, Message: err.Error()})
	default:
		app.logger().Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, advisoryResponse{OK: false, Message: "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func storageInfo(filename, contentType string, size int64) storage.FileInfo {
	return storage.FileInfo{Filename: filename, ContentType: contentType, Size: size}
}

func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
