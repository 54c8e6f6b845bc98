// This file implements the retention sweep over job records and their output
// artifacts. Failed jobs leave partial files on disk by design; this job is
// what eventually reclaims them.

package maint

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docrlabs/docr-go/internal/jobs"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/store"
)

// CleanupOutputs removes records, output directories, archives and staged
// uploads of terminal jobs older than the configured retention, plus output
// directories that no longer have a record at all.
func CleanupOutputs(ctx jobs.JobContext) {
	jobId := "output-cleanup"
	retention := ctx.Config().RetentionHours
	if retention <= 0 {
		log.Println("Retention is disabled, skipping output cleanup.")
		return
	}

	sendProgress(ctx, jobId, "Scanning for expired jobs...", 0, false)
	st := store.New(ctx.DB())
	cutoff := time.Now().Add(-time.Duration(retention) * time.Hour)

	expired, err := st.ListTerminalJobsBefore(cutoff)
	if err != nil {
		log.Printf("Error listing expired jobs: %v", err)
		sendProgress(ctx, jobId, "Error listing expired jobs", 0, true)
		return
	}

	removed := 0
	for _, job := range expired {
		if err := removeJobArtifacts(ctx, job.ID); err != nil {
			log.Printf("Error removing artifacts for job %s: %v", job.ID, err)
			continue
		}
		if err := st.DeleteJob(job.ID); err != nil {
			log.Printf("Error deleting record for job %s: %v", job.ID, err)
			continue
		}
		removed++
	}

	sendProgress(ctx, jobId, fmt.Sprintf("Removed %d expired jobs, sweeping orphans...", removed), 50, false)

	orphans := removeOrphanedOutputs(ctx, st, cutoff)

	msg := fmt.Sprintf("Cleanup complete: %d expired jobs, %d orphaned outputs removed.", removed, orphans)
	log.Println(msg)
	sendProgress(ctx, jobId, msg, 100, true)
}

// removeJobArtifacts deletes everything on disk belonging to one job: the
// output directory, the packaged archive and the staged upload.
func removeJobArtifacts(ctx jobs.JobContext, jobID string) error {
	outputDir := ctx.Config().Storage.OutputDir
	if err := os.RemoveAll(filepath.Join(outputDir, jobID)); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(outputDir, jobID+".zip")); err != nil && !os.IsNotExist(err) {
		return err
	}

	// Staged uploads are named <job_id>.<ext>.
	matches, err := filepath.Glob(filepath.Join(ctx.Config().Storage.UploadDir, jobID+".*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// removeOrphanedOutputs deletes output directories and archives older than
// the cutoff whose job record no longer exists, e.g. leftovers of a database
// reset or of a record deleted out of band.
func removeOrphanedOutputs(ctx jobs.JobContext, st *store.Store, cutoff time.Time) int {
	outputDir := ctx.Config().Storage.OutputDir
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error reading output directory: %v", err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		jobID := strings.TrimSuffix(entry.Name(), ".zip")

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if _, err := st.GetJob(jobID); err != store.ErrNotFound {
			continue
		}

		path := filepath.Join(outputDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Error removing orphaned output %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}

// sendProgress sends a maintenance progress update via WebSocket.
func sendProgress(ctx jobs.JobContext, jobId string, message string, progress float64, done bool) {
	hub := ctx.WsHub()
	if hub == nil {
		return
	}
	hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    jobId,
		Message:  message,
		Progress: progress,
		Done:     done,
	})
}
