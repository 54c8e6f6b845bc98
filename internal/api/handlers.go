// Handlers for document submission, job status and result download.

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docrlabs/docr-go/internal/dispatch"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/store"
)

const maxUploadSize = 256 << 20 // 256 MB

func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Missing or unreadable 'file' field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		RespondWithError(w, http.StatusBadRequest, "Only PDF documents are supported")
		return
	}

	// Stage the upload to durable temporary storage before queueing.
	jobID := uuid.New().String()
	stagedPath := filepath.Join(s.app.Config().Storage.UploadDir, jobID+ext)
	staged, err := os.Create(stagedPath)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to stage uploaded document")
		return
	}
	if _, err := io.Copy(staged, file); err != nil {
		staged.Close()
		os.Remove(stagedPath)
		RespondWithError(w, http.StatusBadRequest, "Failed to read uploaded document")
		return
	}
	staged.Close()

	if _, err := s.store.CreateJob(jobID, header.Filename); err != nil {
		os.Remove(stagedPath)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create job record")
		return
	}

	err = s.app.Dispatcher().Submit(models.QueueEntry{
		DocumentPath: stagedPath,
		JobID:        jobID,
		Filename:     header.Filename,
	})
	if err != nil {
		// An overloaded queue must not leave a job behind.
		s.store.DeleteJob(jobID)
		os.Remove(stagedPath)
		if errors.Is(err, dispatch.ErrQueueFull) {
			RespondWithError(w, http.StatusServiceUnavailable, "Server is busy, try again later")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to queue job")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       jobID,
		"status_url":   fmt.Sprintf("/api/jobs/%s", jobID),
		"download_url": fmt.Sprintf("/api/jobs/%s/download", jobID),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.store.GetJob(jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Unknown job")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to read job record")
		return
	}
	RespondWithJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	RespondWithJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.store.GetJob(jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Unknown job")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to read job record")
		return
	}
	if job.Status != models.StatusDone {
		RespondWithError(w, http.StatusConflict, "Job result is not ready")
		return
	}

	archivePath := filepath.Join(s.app.Config().Storage.OutputDir, jobID+".zip")
	if _, err := os.Stat(archivePath); err != nil {
		RespondWithError(w, http.StatusNotFound, "Archive not found")
		return
	}

	stem := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))
	if stem == "" {
		stem = jobID
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stem+".zip"))
	http.ServeFile(w, r, archivePath)
}
