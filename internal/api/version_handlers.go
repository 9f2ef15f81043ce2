package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/plorberg/Choreo/internal/export"
	"github.com/plorberg/Choreo/internal/models"
)

func (app *App) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Versions []models.Version `json:"versions"`
	}{Versions: app.Project.Versions()})
}

func (app *App) SaveVersionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	decodeBody(r, &req)

	v := app.Project.SaveVersion(r.Context(), req.Name)
	writeJSON(w, http.StatusCreated, v)
}

func (app *App) RestoreVersionHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Project.RestoreVersion(r.Context(), chi.URLParam(r, "id")); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) DeleteVersionHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Project.DeleteVersion(r.Context(), chi.URLParam(r, "id")); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) ClearVersionsHandler(w http.ResponseWriter, r *http.Request) {
	app.Project.ClearVersions(r.Context())
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) ExportHandler(w http.ResponseWriter, r *http.Request) {
	includeVersions := r.URL.Query().Get("versions") == "true"
	env := app.Project.BuildExport(includeVersions)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="choreo-%s.json"`, time.Now().Format("2006-01-02")))
	json.NewEncoder(w).Encode(env)
}

func (app *App) ImportHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, app.MaxUploadSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "failed to read payload"})
		return
	}

	env, err := export.Parse(data)
	if err != nil {
		app.renderOpError(w, err)
		return
	}
	if err := app.Project.Import(r.Context(), env); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}
