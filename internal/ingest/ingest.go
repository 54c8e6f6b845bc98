// Hot-folder ingestion: documents dropped into the inbox directory are staged
// and submitted exactly as if they had been uploaded over the API.

package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/docrlabs/docr-go/internal/dispatch"
	"github.com/docrlabs/docr-go/internal/jobs"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/store"
)

// IsSupportedDocument checks if a filename has a supported document extension.
func IsSupportedDocument(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".pdf"
}

// SubmitFile stages one inbox file into the upload directory, creates its job
// record and enqueues it. The inbox file is consumed on success; on a full
// queue it stays in place for the next sweep.
func SubmitFile(ctx jobs.JobContext, path string) error {
	filename := filepath.Base(path)
	jobID := uuid.New().String()
	staged := filepath.Join(ctx.Config().Storage.UploadDir, jobID+filepath.Ext(filename))

	if err := moveFile(path, staged); err != nil {
		return fmt.Errorf("stage %s: %w", filename, err)
	}

	st := store.New(ctx.DB())
	if _, err := st.CreateJob(jobID, filename); err != nil {
		// Put the document back so it is not silently lost.
		moveFile(staged, path)
		return fmt.Errorf("create job record for %s: %w", filename, err)
	}

	err := ctx.Dispatcher().Submit(models.QueueEntry{
		DocumentPath: staged,
		JobID:        jobID,
		Filename:     filename,
	})
	if err != nil {
		st.DeleteJob(jobID)
		moveFile(staged, path)
		if err == dispatch.ErrQueueFull {
			return fmt.Errorf("queue full, %s left in inbox", filename)
		}
		return err
	}

	log.Printf("Ingested %s from inbox as job %s", filename, jobID)
	return nil
}

// SweepInbox submits any document still sitting in the inbox, e.g. files
// dropped while the queue was full or while the service was down.
func SweepInbox(ctx jobs.JobContext) {
	inbox := ctx.Config().Storage.InboxDir
	if inbox == "" {
		return
	}

	entries, err := os.ReadDir(inbox)
	if err != nil {
		log.Printf("Error reading inbox directory: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedDocument(entry.Name()) {
			continue
		}
		if err := SubmitFile(ctx, filepath.Join(inbox, entry.Name())); err != nil {
			log.Printf("Inbox sweep: %v", err)
		}
	}
}

// moveFile renames when possible and falls back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}
	return os.Remove(src)
}
