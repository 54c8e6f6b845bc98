// A one-shot extraction tool: process a single PDF from the command line
// using the same pipeline as the server, without starting the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docrlabs/docr-go/internal/assets"
	"github.com/docrlabs/docr-go/internal/config"
	"github.com/docrlabs/docr-go/internal/db"
	"github.com/docrlabs/docr-go/internal/extract"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/ocr/paddle"
	"github.com/docrlabs/docr-go/internal/render"
	"github.com/docrlabs/docr-go/internal/store"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <document.pdf>\n", os.Args[0])
		os.Exit(1)
	}
	documentPath := flag.Arg(0)

	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	engine, err := paddle.New(cfg.OCR.Endpoint, cfg.OCR.Language, time.Duration(cfg.OCR.Timeout)*time.Second)
	if err != nil {
		log.Fatalf("Recognition sidecar is not reachable: %v", err)
	}
	defer engine.Close()

	st := store.New(database)
	job, err := st.CreateJob(uuid.New().String(), filepath.Base(documentPath))
	if err != nil {
		log.Fatalf("Failed to create job record: %v", err)
	}

	log.Printf("Starting extraction of %s as job %s", documentPath, job.ID)

	// No websocket hub here; progress lands in the job record only.
	pipeline := extract.NewPipeline(cfg, st, nil, render.NewFitzRenderer())
	err = pipeline.Process(context.Background(), models.QueueEntry{
		DocumentPath: documentPath,
		JobID:        job.ID,
		Filename:     filepath.Base(documentPath),
	}, engine)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	archive := filepath.Join(cfg.Storage.OutputDir, job.ID+".zip")
	log.Println("Extraction complete.")
	fmt.Printf("Results: %s\n", filepath.Join(cfg.Storage.OutputDir, job.ID))
	fmt.Printf("Archive: %s\n", archive)
}
