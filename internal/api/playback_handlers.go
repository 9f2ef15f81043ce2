package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/plorberg/Choreo/internal/models"
	"github.com/plorberg/Choreo/internal/timeline"
)

func (app *App) PlayHandler(w http.ResponseWriter, r *http.Request) {
	seq := app.Project.ActiveSequence()
	if err := app.Binder.Play(seq); err != nil {
		app.renderOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) PauseHandler(w http.ResponseWriter, r *http.Request) {
	app.Binder.Pause(app.Project.ActiveSequence())
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		T float64 `json:"t"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid request body"})
		return
	}
	app.Binder.Seek(app.Project.ActiveSequence(), req.T)
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

type loopInfo struct {
	Enabled  bool     `json:"enabled"`
	StartSec *float64 `json:"startSec"`
	EndSec   *float64 `json:"endSec"`
}

type statusResponse struct {
	Playing              bool     `json:"playing"`
	RelativeSec          float64  `json:"relativeSec"`
	AbsoluteSec          float64  `json:"absoluteSec"`
	EffectiveDurationSec float64  `json:"effectiveDurationSec"`
	AudioDurationSec     float64  `json:"audioDurationSec"`
	Loop                 loopInfo `json:"loop"`
	ActiveSequenceID     string   `json:"activeSequenceId"`
	LoadToken            int      `json:"loadToken"`
}

func (app *App) StatusHandler(w http.ResponseWriter, r *http.Request) {
	seq := app.Project.ActiveSequence()
	if app.Binder.AtEnd(seq) {
		app.Binder.Pause(seq)
	}

	resp := statusResponse{
		Playing:              app.Binder.IsPlaying(seq),
		RelativeSec:          app.Binder.RelativeTime(seq),
		AbsoluteSec:          app.Transport.CurrentTimeSec(),
		EffectiveDurationSec: app.Binder.EffectiveDuration(seq),
		AudioDurationSec:     app.Transport.DurationSec(),
		ActiveSequenceID:     app.Project.ActiveSequenceID(),
		LoadToken:            app.Project.LoadToken(),
	}
	resp.Loop.Enabled = app.Transport.LoopEnabled()
	if start, end, ok := app.Transport.LoopRegion(); ok {
		resp.Loop.StartSec = &start
		resp.Loop.EndSec = &end
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) SetLoopHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartSec *float64 `json:"startSec"`
		EndSec   *float64 `json:"endSec"`
		Toggle   bool     `json:"toggle"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "invalid request body"})
		return
	}
	if req.StartSec != nil && req.EndSec != nil && *req.EndSec <= *req.StartSec {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "loop end must be after loop start"})
		return
	}

	if req.StartSec != nil {
		app.Transport.SetLoopStart(*req.StartSec)
	}
	if req.EndSec != nil {
		app.Transport.SetLoopEnd(*req.EndSec)
	}
	if req.Toggle {
		app.Transport.ToggleLoop()
	}
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

func (app *App) ClearLoopHandler(w http.ResponseWriter, r *http.Request) {
	app.Transport.ClearLoop()
	writeJSON(w, http.StatusOK, advisoryResponse{OK: true})
}

type streamFrame struct {
	T       float64                `json:"t"`
	Playing bool                   `json:"playing"`
	Pose    map[string]models.Vec2 `json:"pose"`
}

// StreamHandler pushes the interpolated pose over a websocket at the stream
// tick. The clock is sampled exactly once per frame and that value feeds both
// the pose resolution and the frame payload, so every consumer of one frame
// sees the same instant.
func (app *App) StreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.logger().Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain incoming control frames so pings and close are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(app.streamTick())
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			seq := app.Project.ActiveSequence()
			frame := streamFrame{Pose: map[string]models.Vec2{}}
			if seq != nil {
				if app.Binder.AtEnd(seq) {
					app.Binder.Pause(seq)
				}
				t := app.Binder.RelativeTime(seq)
				frame.T = t
				frame.Playing = app.Binder.IsPlaying(seq)
				if pose := timeline.PoseAtTime(seq, t); pose != nil {
					frame.Pose = pose
				}
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

// UploadAudioHandler accepts a WAV clip, stores it, and hands the bytes to
// the transport. Once the load completes the active sequence's clip bounds
// are pushed into the loop region: this is the duration 0 -> >0 transition.
func (app *App) UploadAudioHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "file too large"})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "failed to get file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") && contentType != "application/octet-stream" {
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".wav") {
			writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: "only WAV audio files are allowed"})
			return
		}
	}

	filename, err := app.Storage.SaveFile(file, storageInfo(header.Filename, contentType, header.Size))
	if err != nil {
		app.renderOpError(w, err)
		return
	}

	data, err := app.Storage.ReadFile(filename)
	if err != nil {
		app.Storage.DeleteFile(filename)
		app.renderOpError(w, err)
		return
	}

	if err := app.Transport.LoadAudio(data); err != nil {
		app.Storage.DeleteFile(filename)
		writeJSON(w, http.StatusBadRequest, advisoryResponse{OK: false, Message: err.Error()})
		return
	}

	app.Binder.ActivateSequence(app.Project.ActiveSequence())

	writeJSON(w, http.StatusOK, struct {
		Filename    string  `json:"filename"`
		DurationSec float64 `json:"durationSec"`
		PeakCount   int     `json:"peakCount"`
	}{
		Filename:    filename,
		DurationSec: app.Transport.DurationSec(),
		PeakCount:   len(app.Transport.Peaks()),
	})
}

func (app *App) WaveformHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		DurationSec float64   `json:"durationSec"`
		Peaks       []float64 `json:"peaks"`
	}{
		DurationSec: app.Transport.DurationSec(),
		Peaks:       app.Transport.Peaks(),
	})
}
