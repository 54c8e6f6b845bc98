// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/docrlabs/docr-go/internal/models"
)

// ErrNotFound is returned when no record exists for the requested job id.
var ErrNotFound = errors.New("job not found")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateJob writes the initial record for a newly submitted document.
func (s *Store) CreateJob(id, filename string) (*models.Job, error) {
	now := time.Now()
	_, err := s.db.Exec(
		"INSERT INTO jobs (id, filename, status, progress, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)",
		id, filename, models.StatusQueued, now, now)
	if err != nil {
		return nil, err
	}
	return &models.Job{
		ID:        id,
		Filename:  filename,
		Status:    models.StatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetJob returns the current record for a job, or ErrNotFound.
func (s *Store) GetJob(id string) (*models.Job, error) {
	row := s.db.QueryRow(
		"SELECT id, filename, status, progress, error, thumbnail, created_at, updated_at FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

// MarkRunning transitions a job into the running state. Progress starts at 0
// and any previous error is cleared.
func (s *Store) MarkRunning(id string) error {
	return s.exec(
		"UPDATE jobs SET status = ?, progress = 0, error = NULL, updated_at = ? WHERE id = ?",
		models.StatusRunning, time.Now(), id)
}

// UpdateProgress records per-batch progress for a running job.
func (s *Store) UpdateProgress(id string, progress int) error {
	return s.exec(
		"UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?",
		progress, time.Now(), id)
}

// MarkDone finalizes a job. Setting progress to 100 happens only here, in the
// same write that sets the done status.
func (s *Store) MarkDone(id string) error {
	return s.exec(
		"UPDATE jobs SET status = ?, progress = 100, error = NULL, updated_at = ? WHERE id = ?",
		models.StatusDone, time.Now(), id)
}

// MarkFailed records a terminal failure. Progress resets to 0 so clients do
// not mistake a partially processed job for a retrievable one.
func (s *Store) MarkFailed(id string, message string) error {
	return s.exec(
		"UPDATE jobs SET status = ?, progress = 0, error = ?, updated_at = ? WHERE id = ?",
		models.StatusFailed, message, time.Now(), id)
}

// UpdateThumbnail stores the first page preview for a job.
func (s *Store) UpdateThumbnail(id, dataURI string) error {
	return s.exec(
		"UPDATE jobs SET thumbnail = ?, updated_at = ? WHERE id = ?",
		dataURI, time.Now(), id)
}

// DeleteJob removes a job record entirely.
func (s *Store) DeleteJob(id string) error {
	_, err := s.db.Exec("DELETE FROM jobs WHERE id = ?", id)
	return err
}

// ListJobs returns all job records, newest first.
func (s *Store) ListJobs() ([]*models.Job, error) {
	rows, err := s.db.Query(
		"SELECT id, filename, status, progress, error, thumbnail, created_at, updated_at FROM jobs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListTerminalJobsBefore returns done and failed jobs that were last updated
// before the cutoff. Used by the retention sweep.
func (s *Store) ListTerminalJobsBefore(cutoff time.Time) ([]*models.Job, error) {
	rows, err := s.db.Query(
		"SELECT id, filename, status, progress, error, thumbnail, created_at, updated_at FROM jobs WHERE status IN (?, ?) AND updated_at < ?",
		models.StatusDone, models.StatusFailed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) exec(query string, args ...interface{}) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	err := row.Scan(&job.ID, &job.Filename, &job.Status, &job.Progress,
		&job.Error, &job.Thumbnail, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
