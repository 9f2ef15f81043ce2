package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/plorberg/Choreo/internal/models"
	"github.com/plorberg/Choreo/internal/route"
	"github.com/plorberg/Choreo/internal/timeline"
)

type addPictureRequest struct {
	Positions map[string]models.Vec2 `json:"positions"`
	Name      string                 `json:"name"`
	Kind      models.PictureKind     `json:"kind"`
	AtSec     *float64               `json:"atSec"`
}

func (app *App) AddPictureHandler(w http.ResponseWriter, r *http.Request) {
	var req addPictureRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid request body"})
		return
	}

	var (
		pic models.Picture
		err error
	)
	if req.AtSec != nil {
		pic, err = app.Project.AddPictureAtTime(r.Context(), req.Positions, *req.AtSec, req.Name, req.Kind)
	} else {
		pic, err = app.Project.AddPicture(r.Context(), req.Positions, req.Name, req.Kind)
	}
	if err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pic)
}

type updatePictureRequest struct {
	Name    *string             `json:"name"`
	HoldSec *float64            `json:"holdSec"`
	MoveSec *float64            `json:"moveSec"`
	Kind    *models.PictureKind `json:"kind"`
}

func (app *App) UpdatePictureHandler(w http.ResponseWriter, r *http.Request) {
	var req updatePictureRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid request body"})
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if req.Name != nil {
		if err := app.Project.RenamePicture(ctx, id, *req.Name); err != nil {
			app.renderOpError(w, err)
			return
		}
	}
	if req.HoldSec != nil {
		if err := app.Project.SetHoldDuration(ctx, id, *req.HoldSec); err != nil {
			app.renderOpError(w, err)
			return
		}
	}
	if req.MoveSec != nil {
		if err := app.Project.SetMoveDuration(ctx, id, *req.MoveSec); err != nil {
			app.renderOpError(w, err)
			return
		}
	}
	if req.Kind != nil {
		if err := app.Project.SetPictureKind(ctx, id, *req.Kind); err != nil {
			app.renderOpError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) DeletePictureHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Project.DeletePicture(r.Context(), chi.URLParam(r, "id")); err != nil {
		app.renderOpError(w, err)
		return
	}
	// Removing the active sequence's final picture rewinds playback.
	if seq := app.Project.ActiveSequence(); seq != nil && len(seq.Pictures) == 0 {
		app.Binder.ResetPlayback(seq)
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

type poseResponse struct {
	T    float64                `json:"t"`
	Pose map[string]models.Vec2 `json:"pose"`
}

// PoseHandler resolves the active sequence's pose. With ?t= it answers for an
// explicit sequence-relative time, otherwise for the playhead's current one.
func (app *App) PoseHandler(w http.ResponseWriter, r *http.Request) {
	seq := app.Project.ActiveSequence()
	if seq == nil {
		writeJSON(w, http.StatusOK, advisoryResponse{OK: false, Message: "no active sequence"})
		return
	}

	t := app.Binder.RelativeTime(seq)
	if raw := r.URL.Query().Get("t"); raw != "" {
		parsed, ok := parseFloat(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid t parameter"})
			return
		}
		t = parsed
	}

	writeJSON(w, http.StatusOK, poseResponse{T: t, Pose: timeline.PoseAtTime(seq, t)})
}

type routesResponse struct {
	Arrows []route.Arrow `json:"arrows"`
}

func (app *App) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	seq := app.Project.ActiveSequence()
	if seq == nil {
		writeJSON(w, http.StatusOK, routesResponse{Arrows: []route.Arrow{}})
		return
	}

	t := app.Binder.RelativeTime(seq)
	if raw := r.URL.Query().Get("t"); raw != "" {
		if parsed, ok := parseFloat(raw); ok {
			t = parsed
		}
	}
	selected := r.URL.Query().Get("selected")

	arrows := route.Compute(seq.Pictures, selected, t, timeline.StartTimes(seq.Pictures))
	if arrows == nil {
		arrows = []route.Arrow{}
	}
	writeJSON(w, http.StatusOK, routesResponse{Arrows: arrows})
}
