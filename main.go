package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaison-mx/cartelera/config"
	"github.com/jaison-mx/cartelera/control"
	"github.com/jaison-mx/cartelera/db"
	"github.com/jaison-mx/cartelera/display"
	"github.com/jaison-mx/cartelera/events"
	"github.com/jaison-mx/cartelera/library"
	"github.com/jaison-mx/cartelera/migrations"
	"github.com/jaison-mx/cartelera/player"
	"github.com/jaison-mx/cartelera/playlist"
	"github.com/jaison-mx/cartelera/remote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	zone, err := playlist.Zone(cfg.Playlist.Timezone)
	if err != nil {
		slog.Error("Unknown timezone", slog.String("timezone", cfg.Playlist.Timezone))
		os.Exit(1)
	}

	lib := library.New(cfg.Cartelera.CacheDir)
	if err := lib.EnsureDirs(); err != nil {
		slog.Error("Failed to create cache directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := db.NewSqliteStore(cfg.Cartelera.DbPath)
	if err != nil {
		slog.Error("Failed to open play log store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		slog.Error("Failed to migrate play log store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Per the error model, not being able to put pixels anywhere is the
	// one unrecoverable start-up failure.
	var surface display.Surface
	if cfg.Display.Backend == "headless" {
		surface = display.NewHeadless(1280, 720)
	} else {
		fb, err := display.OpenFramebuffer(cfg.Display.Framebuffer)
		if err != nil {
			slog.Error("Failed to acquire display surface", slog.String("error", err.Error()))
			os.Exit(1)
		}
		surface = fb
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events.Init()

	mailbox := control.NewMailbox()
	listener, err := control.NewListener(cfg.Cartelera.ControlPort, mailbox)
	if err != nil {
		slog.Error("Failed to bind control port", slog.Int("port", cfg.Cartelera.ControlPort), slog.String("error", err.Error()))
		os.Exit(1)
	}
	go listener.Run(ctx)

	syncer := remote.NewSynchronizer(cfg, lib)
	updater := remote.NewAttributeUpdater(cfg, lib)

	// Come up on cached content straight away; the first sync cycle will
	// replace it if the remote playlist has moved on.
	syncer.LoadLocal()

	if cfg.JobsEnabled() {
		scheduler, err := SetupInBackground(syncer, updater)
		if err != nil {
			slog.Error("Failed to schedule background jobs", slog.String("error", err.Error()))
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Shutdown()
		slog.Info("Background jobs have started up in the background.")
	} else {
		slog.Info("Background jobs are disabled.")
	}

	writer := db.NewAsyncWriter(store)
	go writer.Run(ctx)

	p := player.New(lib, mailbox, surface, writer, zone, cfg.Display.TargetFPS)

	router := RegisterRoutes(http.NewServeMux(), p, lib, store)
	go func() {
		if err := http.ListenAndServe(statusAddr(cfg.Cartelera.StatusPort), router); err != nil {
			slog.Error("Status API stopped", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Cartelera is running",
		slog.Int("control_port", cfg.Cartelera.ControlPort),
		slog.Int("status_port", cfg.Cartelera.StatusPort))

	p.Run(ctx)

	stop()
	lib.Close()
	surface.Close()
	store.Close()
	slog.Info("Cartelera has shut down.")
}
