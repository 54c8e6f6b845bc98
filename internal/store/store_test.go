// This test file covers the data access layer for job records.
// It uses an in-memory SQLite database to ensure tests are fast and isolated.

package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/store"
	"github.com/docrlabs/docr-go/internal/testutil"
)

func TestCreateAndGetJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	created, err := s.CreateJob("job-1", "report.pdf")
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if created.Status != models.StatusQueued {
		t.Errorf("Expected status 'queued', got '%s'", created.Status)
	}
	if created.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", created.Progress)
	}

	job, err := s.GetJob("job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Filename != "report.pdf" {
		t.Errorf("Expected filename 'report.pdf', got '%s'", job.Filename)
	}
	if job.Error != nil {
		t.Errorf("Expected no error on a fresh job, got '%s'", *job.Error)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	_, err := s.GetJob("missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestJobLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	if _, err := s.CreateJob("job-1", "report.pdf"); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if err := s.MarkRunning("job-1"); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := s.UpdateProgress("job-1", 47); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	job, _ := s.GetJob("job-1")
	if job.Status != models.StatusRunning || job.Progress != 47 {
		t.Errorf("Expected running/47, got %s/%d", job.Status, job.Progress)
	}

	if err := s.MarkDone("job-1"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	job, _ = s.GetJob("job-1")
	if job.Status != models.StatusDone || job.Progress != 100 {
		t.Errorf("Expected done/100, got %s/%d", job.Status, job.Progress)
	}
	if !job.Terminal() {
		t.Error("Expected done job to be terminal")
	}
}

func TestMarkFailed_ResetsProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	s.CreateJob("job-1", "report.pdf")
	s.MarkRunning("job-1")
	s.UpdateProgress("job-1", 94)

	if err := s.MarkFailed("job-1", "render page 5: broken stream"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	job, _ := s.GetJob("job-1")
	if job.Status != models.StatusFailed {
		t.Errorf("Expected status 'failed', got '%s'", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("Expected progress reset to 0, got %d", job.Progress)
	}
	if job.Error == nil || *job.Error == "" {
		t.Error("Expected a non-empty error message")
	}
}

func TestUpdate_UnknownJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	if err := s.UpdateProgress("missing", 50); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown job, got %v", err)
	}
	if err := s.MarkDone("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown job, got %v", err)
	}
}

func TestListJobs_Order(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	// Insert with explicit timestamps so the ordering is deterministic.
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		_, err := db.Exec(
			"INSERT INTO jobs (id, filename, status, progress, created_at, updated_at) VALUES (?, ?, 'queued', 0, ?, ?)",
			id, id+".pdf", ts, ts)
		if err != nil {
			t.Fatalf("Failed to seed job %s: %v", id, err)
		}
	}

	jobs, err := s.ListJobs()
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "new" || jobs[2].ID != "old" {
		t.Errorf("Expected newest first, got %s..%s", jobs[0].ID, jobs[2].ID)
	}
}

func TestListTerminalJobsBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	seed := func(id, status string, ts time.Time) {
		_, err := db.Exec(
			"INSERT INTO jobs (id, filename, status, progress, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)",
			id, id+".pdf", status, ts, ts)
		if err != nil {
			t.Fatalf("Failed to seed job %s: %v", id, err)
		}
	}
	seed("old-done", models.StatusDone, old)
	seed("old-failed", models.StatusFailed, old)
	seed("old-running", models.StatusRunning, old)
	seed("new-done", models.StatusDone, recent)

	jobs, err := s.ListTerminalJobsBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("ListTerminalJobsBefore failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 expired terminal jobs, got %d", len(jobs))
	}
	for _, j := range jobs {
		if j.ID == "old-running" || j.ID == "new-done" {
			t.Errorf("Job %s should not be eligible for cleanup", j.ID)
		}
	}
}
