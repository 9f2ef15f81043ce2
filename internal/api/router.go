package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", app.ListSequencesHandler)
			r.Post("/", app.CreateSequenceHandler)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSequenceHandler)
				r.Patch("/", app.RenameSequenceHandler)
				r.Delete("/", app.DeleteSequenceHandler)
				r.Post("/activate", app.ActivateSequenceHandler)
				r.Put("/clip", app.SetClipHandler)
				r.Delete("/clip", app.ClearClipHandler)
			})
		})

		r.Route("/pictures", func(r chi.Router) {
			r.Post("/", app.AddPictureHandler)
			r.Patch("/{id}", app.UpdatePictureHandler)
			r.Delete("/{id}", app.DeletePictureHandler)
		})

		r.Get("/pose", app.PoseHandler)
		r.Get("/routes", app.RoutesHandler)

		r.Route("/playback", func(r chi.Router) {
			r.Post("/play", app.PlayHandler)
			r.Post("/pause", app.PauseHandler)
			r.Post("/seek", app.SeekHandler)
			r.Get("/status", app.StatusHandler)
			r.Put("/loop", app.SetLoopHandler)
			r.Delete("/loop", app.ClearLoopHandler)
			r.Get("/stream", app.StreamHandler)
		})

		r.Route("/audio", func(r chi.Router) {
			r.Post("/", app.UploadAudioHandler)
			r.Get("/waveform", app.WaveformHandler)
		})

		r.Route("/versions", func(r chi.Router) {
			r.Get("/", app.ListVersionsHandler)
			r.Post("/", app.SaveVersionHandler)
			r.Delete("/", app.ClearVersionsHandler)
			r.Post("/{id}/restore", app.RestoreVersionHandler)
			r.Delete("/{id}", app.DeleteVersionHandler)
		})

		r.Get("/export", app.ExportHandler)
		r.Post("/import", app.ImportHandler)
	})

	return r
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
