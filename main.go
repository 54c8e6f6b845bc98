package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docrlabs/docr-go/internal/api"
	"github.com/docrlabs/docr-go/internal/core"
	"github.com/docrlabs/docr-go/internal/dispatch"
	"github.com/docrlabs/docr-go/internal/extract"
	"github.com/docrlabs/docr-go/internal/ingest"
	"github.com/docrlabs/docr-go/internal/jobs"
	"github.com/docrlabs/docr-go/internal/maint"
	"github.com/docrlabs/docr-go/internal/ocr"
	"github.com/docrlabs/docr-go/internal/ocr/paddle"
	"github.com/docrlabs/docr-go/internal/render"
	"github.com/docrlabs/docr-go/internal/store"
)

const version = "0.1.0"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()
	cfg := app.Config()

	// Build the extraction pipeline and the single-worker dispatcher. The
	// recognition engine is constructed lazily on the worker goroutine, so a
	// slow sidecar startup does not delay the HTTP server.
	pipeline := extract.NewPipeline(cfg, store.New(app.DB()), app.WsHub(), render.NewFitzRenderer())
	dispatcher := dispatch.New(cfg.QueueCapacity, func() (ocr.Engine, error) {
		return paddle.New(cfg.OCR.Endpoint, cfg.OCR.Language, time.Duration(cfg.OCR.Timeout)*time.Second)
	}, pipeline)
	dispatcher.Start()
	app.SetDispatcher(dispatcher)

	// Register the maintenance jobs so they can be run from the admin API
	// and by the scheduler.
	app.JobManager().Register("output-cleanup", "Clean Up Old Outputs", maint.CleanupOutputs)
	app.JobManager().Register("inbox-sweep", "Sweep Inbox Directory", ingest.SweepInbox)
	scheduler := jobs.StartJobs(app)

	// Watch the inbox directory for dropped documents, if configured.
	var watcher *ingest.WatcherService
	if cfg.Storage.InboxDir != "" {
		if err := os.MkdirAll(cfg.Storage.InboxDir, 0755); err != nil {
			log.Fatalf("Could not create inbox directory: %v", err)
		}
		watcher = ingest.NewWatcherService(app)
		if err := watcher.Start(); err != nil {
			log.Fatalf("Could not start inbox watcher: %v", err)
		}
		// Pick up anything dropped while the service was down.
		go app.JobManager().RunJob("inbox-sweep", app)
	}

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop accepting new submissions first, then let the worker finish the
	// job it is on. Queued entries are dropped; their records stay queued
	// until a resubmission or the retention sweep.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}
	if watcher != nil {
		watcher.Stop()
	}
	scheduler.Stop()
	if err := dispatcher.Stop(ctx); err != nil {
		log.Printf("Worker did not finish in time: %v", err)
	}

	log.Println("Server exiting.")
}
