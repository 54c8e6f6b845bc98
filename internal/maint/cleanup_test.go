package maint_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docrlabs/docr-go/internal/core"
	"github.com/docrlabs/docr-go/internal/maint"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/store"
	"github.com/docrlabs/docr-go/internal/testutil"
)

// seedJob creates a job record with on-disk artifacts and backdates its last
// update so the retention sweep can see it as expired.
func seedJob(t *testing.T, app *core.App, st *store.Store, id, status string, age time.Duration) {
	t.Helper()
	if _, err := st.CreateJob(id, id+".pdf"); err != nil {
		t.Fatalf("Failed to create job %s: %v", id, err)
	}
	switch status {
	case models.StatusDone:
		if err := st.MarkDone(id); err != nil {
			t.Fatalf("Failed to mark job %s done: %v", id, err)
		}
	case models.StatusFailed:
		if err := st.MarkFailed(id, "boom"); err != nil {
			t.Fatalf("Failed to mark job %s failed: %v", id, err)
		}
	case models.StatusRunning:
		if err := st.MarkRunning(id); err != nil {
			t.Fatalf("Failed to mark job %s running: %v", id, err)
		}
	}
	if _, err := app.DB().Exec("UPDATE jobs SET updated_at = ? WHERE id = ?", time.Now().Add(-age), id); err != nil {
		t.Fatalf("Failed to backdate job %s: %v", id, err)
	}

	outputDir := filepath.Join(app.Config().Storage.OutputDir, id)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}
	for _, p := range []string{
		filepath.Join(outputDir, id+".md"),
		filepath.Join(app.Config().Storage.OutputDir, id+".zip"),
		filepath.Join(app.Config().Storage.UploadDir, id+".pdf"),
	} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create artifact %s: %v", p, err)
		}
	}
}

func TestCleanupOutputs(t *testing.T) {
	app := testutil.SetupTestApp(t)
	app.Config().RetentionHours = 24
	st := store.New(app.DB())

	seedJob(t, app, st, "expired-done", models.StatusDone, 48*time.Hour)
	seedJob(t, app, st, "expired-failed", models.StatusFailed, 48*time.Hour)
	seedJob(t, app, st, "fresh-done", models.StatusDone, 1*time.Hour)
	seedJob(t, app, st, "old-running", models.StatusRunning, 48*time.Hour)

	maint.CleanupOutputs(app)

	for _, id := range []string{"expired-done", "expired-failed"} {
		if _, err := st.GetJob(id); err != store.ErrNotFound {
			t.Errorf("Expected job %s to be deleted, got err %v", id, err)
		}
		if _, err := os.Stat(filepath.Join(app.Config().Storage.OutputDir, id)); !os.IsNotExist(err) {
			t.Errorf("Expected output dir of %s to be removed", id)
		}
		if _, err := os.Stat(filepath.Join(app.Config().Storage.OutputDir, id+".zip")); !os.IsNotExist(err) {
			t.Errorf("Expected archive of %s to be removed", id)
		}
		if _, err := os.Stat(filepath.Join(app.Config().Storage.UploadDir, id+".pdf")); !os.IsNotExist(err) {
			t.Errorf("Expected staged upload of %s to be removed", id)
		}
	}

	// A recent terminal job and a long-running job survive the sweep.
	for _, id := range []string{"fresh-done", "old-running"} {
		if _, err := st.GetJob(id); err != nil {
			t.Errorf("Expected job %s to survive, got err %v", id, err)
		}
		if _, err := os.Stat(filepath.Join(app.Config().Storage.OutputDir, id+".zip")); err != nil {
			t.Errorf("Expected archive of %s to survive: %v", id, err)
		}
	}
}

func TestCleanupOutputsRemovesOrphans(t *testing.T) {
	app := testutil.SetupTestApp(t)
	app.Config().RetentionHours = 24

	outputDir := app.Config().Storage.OutputDir
	old := time.Now().Add(-48 * time.Hour)

	orphanDir := filepath.Join(outputDir, "orphan-job")
	if err := os.MkdirAll(orphanDir, 0755); err != nil {
		t.Fatalf("Failed to create orphan dir: %v", err)
	}
	orphanZip := filepath.Join(outputDir, "orphan-job.zip")
	if err := os.WriteFile(orphanZip, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create orphan archive: %v", err)
	}
	for _, p := range []string{orphanDir, orphanZip} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("Failed to backdate %s: %v", p, err)
		}
	}

	// A fresh orphan is left alone until it ages past the cutoff.
	freshDir := filepath.Join(outputDir, "fresh-orphan")
	if err := os.MkdirAll(freshDir, 0755); err != nil {
		t.Fatalf("Failed to create fresh orphan dir: %v", err)
	}

	maint.CleanupOutputs(app)

	if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
		t.Error("Expected old orphaned output dir to be removed")
	}
	if _, err := os.Stat(orphanZip); !os.IsNotExist(err) {
		t.Error("Expected old orphaned archive to be removed")
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Errorf("Expected fresh orphan dir to survive: %v", err)
	}
}

func TestCleanupOutputsRetentionDisabled(t *testing.T) {
	app := testutil.SetupTestApp(t)
	app.Config().RetentionHours = 0
	st := store.New(app.DB())

	seedJob(t, app, st, "ancient", models.StatusDone, 1000*time.Hour)

	maint.CleanupOutputs(app)

	if _, err := st.GetJob("ancient"); err != nil {
		t.Errorf("Expected job to survive with retention disabled, got err %v", err)
	}
}
