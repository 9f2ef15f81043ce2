package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plorberg/Choreo/internal/api"
	"github.com/plorberg/Choreo/internal/clip"
	"github.com/plorberg/Choreo/internal/config"
	"github.com/plorberg/Choreo/internal/database"
	"github.com/plorberg/Choreo/internal/project"
	"github.com/plorberg/Choreo/internal/storage"
	"github.com/plorberg/Choreo/internal/transport"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(database.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	localStorage, err := storage.NewLocalStorage(cfg.AudioDir)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	repo := database.NewProjectRepository(db)

	svc := project.NewService(repo, logger)
	if err := svc.Load(ctx); err != nil {
		logger.Error("failed to load persisted project", "error", err)
		os.Exit(1)
	}

	tr := transport.New(logger)
	tr.SetPeakCount(cfg.PeakCount)
	binder := clip.NewBinder(tr)

	// Switching sequences snaps the audio context; a restored or imported
	// project additionally rewinds playback to the clip start.
	svc.Subscribe(func(ev project.Event) {
		seq := svc.ActiveSequence()
		switch ev {
		case project.EventActiveSequenceChanged:
			binder.ActivateSequence(seq)
		case project.EventProjectReplaced:
			binder.ActivateSequence(seq)
			binder.ResetPlayback(seq)
		}
	})
	binder.ActivateSequence(svc.ActiveSequence())

	app := &api.App{
		Project:       svc,
		Transport:     tr,
		Binder:        binder,
		Storage:       localStorage,
		MaxUploadSize: cfg.MaxUploadSize,
		StreamTick:    time.Duration(cfg.StreamTickMsec) * time.Millisecond,
		Logger:        logger,
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(app),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			"port", cfg.Port,
			"db_path", cfg.DBPath,
			"audio_dir", cfg.AudioDir,
			"max_upload_size", cfg.MaxUploadSize)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		interval := time.Duration(cfg.AutosaveSec) * time.Second
		if interval <= 0 {
			<-gctx.Done()
			return nil
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				svc.Persist(context.Background())
				return nil
			case <-ticker.C:
				svc.Persist(gctx)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
