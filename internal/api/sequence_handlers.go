package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/plorberg/Choreo/internal/models"
)

type sequenceListResponse struct {
	Sequences        []models.Sequence `json:"sequences"`
	ActiveSequenceID string            `json:"activeSequenceId"`
}

func (app *App) ListSequencesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sequenceListResponse{
		Sequences:        app.Project.Sequences(),
		ActiveSequenceID: app.Project.ActiveSequenceID(),
	})
}

func (app *App) CreateSequenceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	decodeBody(r, &req)

	seq := app.Project.CreateSequence(r.Context(), req.Name)
	writeJSON(w, http.StatusCreated, seq)
}

func (app *App) GetSequenceHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, seq := range app.Project.Sequences() {
		if seq.ID == id {
			writeJSON(w, http.StatusOK, seq)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, advisoryResponse{OK: false, Message: "sequence not found"})
}

func (app *App) RenameSequenceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid request body"})
		return
	}

	if err := app.Project.RenameSequence(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) DeleteSequenceHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Project.DeleteSequence(r.Context(), chi.URLParam(r, "id")); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) ActivateSequenceHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Project.SetActiveSequence(r.Context(), chi.URLParam(r, "id")); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) SetClipHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartSec float64 `json:"startSec"`
		EndSec   float64 `json:"endSec"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid request body"})
		return
	}

	id := chi.URLParam(r, "id")
	if err := app.Project.SetMusicClip(r.Context(), id, req.StartSec, req.EndSec); err != nil {
		app.renderOpError(w, err)
		return
	}

	// Binding the active sequence snaps the transport's loop region.
	if id == app.Project.ActiveSequenceID() {
		app.Binder.ActivateSequence(app.Project.ActiveSequence())
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) ClearClipHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := app.Project.ClearMusicClip(r.Context(), id); err != nil {
		app.renderOpError(w, err)
		return
	}
	app.Binder.ClipCleared(app.Project.ActiveSequence(), id == app.Project.ActiveSequenceID())
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}
