// The extraction pipeline. One invocation takes a staged document from the
// queue all the way to a terminal job record: render pages, recognize them in
// batches, aggregate the results, write the output set and package it into a
// single archive.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/docrlabs/docr-go/internal/config"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/ocr"
	"github.com/docrlabs/docr-go/internal/render"
	"github.com/docrlabs/docr-go/internal/store"
	"github.com/docrlabs/docr-go/internal/websocket"
)

type Pipeline struct {
	cfg      *config.Config
	st       *store.Store
	hub      *websocket.Hub // may be nil, e.g. in the CLI
	renderer render.Renderer
}

func NewPipeline(cfg *config.Config, st *store.Store, hub *websocket.Hub, renderer render.Renderer) *Pipeline {
	return &Pipeline{cfg: cfg, st: st, hub: hub, renderer: renderer}
}

// Process runs one job to completion and always leaves a terminal record:
// done on success, failed with a descriptive message on any error. Partial
// output files are left on disk for the retention sweep to reclaim. The
// returned error reports why the job failed, or a record-write failure.
func (p *Pipeline) Process(ctx context.Context, entry models.QueueEntry, engine ocr.Engine) error {
	err := p.run(ctx, entry, engine)
	if err == nil {
		return nil
	}

	log.Printf("Extraction of job %s failed: %v", entry.JobID, err)
	if serr := p.st.MarkFailed(entry.JobID, err.Error()); serr != nil {
		// The record is the only channel to the client; losing it is fatal
		// for this processing attempt.
		return fmt.Errorf("job %s failed (%v) and its record could not be updated: %w", entry.JobID, err, serr)
	}
	p.sendProgress(entry.JobID, "Extraction failed: "+err.Error(), 0, models.StatusFailed, true)
	return err
}

func (p *Pipeline) run(ctx context.Context, entry models.QueueEntry, engine ocr.Engine) error {
	// Count pages once, up front. Cheap: no page is rasterized.
	totalPages, err := p.renderer.CountPages(entry.DocumentPath)
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}
	if totalPages == 0 {
		return fmt.Errorf("document has no pages")
	}

	outputDir := filepath.Join(p.cfg.Storage.OutputDir, entry.JobID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := p.st.MarkRunning(entry.JobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	p.sendProgress(entry.JobID, fmt.Sprintf("Processing %d pages", totalPages), 0, models.StatusRunning, false)

	stream, err := p.renderer.Stream(entry.DocumentPath, p.cfg.RenderDPI)
	if err != nil {
		return fmt.Errorf("open page stream: %w", err)
	}
	defer stream.Close()

	var markdownPages []string
	var layouts []json.RawMessage
	embeddedImages := make(map[string]image.Image)
	processedPages := 0
	haveThumbnail := false

	assembler := NewAssembler(stream, p.cfg.BatchSize)
	for {
		// Cancellation is coarse-grained: an in-flight recognition call on
		// one batch runs to completion, the boundary between batches is
		// where a job can be interrupted.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("processing interrupted: %w", err)
		}

		batch, err := assembler.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		results, err := engine.Recognize(ctx, batch.Images)
		if err != nil {
			return fmt.Errorf("recognize pages %d-%d: %w", batch.Indices[0], batch.Indices[len(batch.Indices)-1], err)
		}
		if len(results) != len(batch.Images) {
			return fmt.Errorf("recognition returned %d results for %d pages", len(results), len(batch.Images))
		}

		if !haveThumbnail {
			if thumb, err := PageThumbnail(batch.Images[0]); err == nil {
				if err := p.st.UpdateThumbnail(entry.JobID, thumb); err != nil {
					return fmt.Errorf("store thumbnail: %w", err)
				}
			}
			haveThumbnail = true
		}

		for _, res := range results {
			markdownPages = append(markdownPages, res.Markdown)
			layouts = append(layouts, res.Layout)
			// Later pages win on a path collision; collisions are not
			// expected from a well-behaved engine.
			for rel, img := range res.Images {
				embeddedImages[rel] = img
			}
		}

		processedPages += len(batch.Indices)
		// Visible progress is pinned below 100 until the outputs exist.
		progress := processedPages * 100 / totalPages
		if progress > 99 {
			progress = 99
		}
		if err := p.st.UpdateProgress(entry.JobID, progress); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		p.sendProgress(entry.JobID,
			fmt.Sprintf("Recognized page %d of %d", processedPages, totalPages),
			float64(progress), models.StatusRunning, false)
	}

	stem := fileStem(entry.Filename, entry.DocumentPath)

	markdownText := engine.ConcatenatePages(markdownPages)
	if err := os.WriteFile(filepath.Join(outputDir, stem+".md"), []byte(markdownText), 0644); err != nil {
		return fmt.Errorf("write markdown output: %w", err)
	}

	layoutJSON, err := json.MarshalIndent(layouts, "", "    ")
	if err != nil {
		return fmt.Errorf("serialize layout results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, stem+".json"), layoutJSON, 0644); err != nil {
		return fmt.Errorf("write layout output: %w", err)
	}

	for rel, img := range embeddedImages {
		if err := writeEmbeddedImage(outputDir, rel, img); err != nil {
			return err
		}
	}

	archivePath := filepath.Join(p.cfg.Storage.OutputDir, entry.JobID+".zip")
	if err := archiveOutputDir(ctx, outputDir, archivePath); err != nil {
		return fmt.Errorf("package output archive: %w", err)
	}

	if err := p.st.MarkDone(entry.JobID); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	p.sendProgress(entry.JobID, "Extraction complete", 100, models.StatusDone, true)
	return nil
}

// fileStem derives the output file stem from the originally submitted
// filename, falling back to the staged path so the outputs always have a name.
func fileStem(filename, documentPath string) string {
	name := filepath.Base(filename)
	if name == "" || name == "." {
		name = filepath.Base(documentPath)
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = "document"
	}
	return stem
}

// writeEmbeddedImage writes one extracted image at its engine-specified
// relative path, creating intermediate directories as needed.
func writeEmbeddedImage(outputDir, rel string, img image.Image) error {
	dest := filepath.Join(outputDir, filepath.FromSlash(rel))
	// The path comes from the recognition engine; keep it inside the job dir.
	if !strings.HasPrefix(dest, filepath.Clean(outputDir)+string(os.PathSeparator)) {
		return fmt.Errorf("embedded image path %q escapes the output directory", rel)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create image directory for %q: %w", rel, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create image file %q: %w", rel, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(dest)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("encode image %q: %w", rel, err)
	}
	return nil
}

// archiveOutputDir bundles the job's output directory into a zip whose entry
// paths are relative to the directory root.
func archiveOutputDir(ctx context.Context, outputDir, archivePath string) error {
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		outputDir + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("collect output files: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	if err := (archives.Zip{}).Archive(ctx, out, files); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// sendProgress pushes a progress update to connected websocket clients.
func (p *Pipeline) sendProgress(jobID, message string, progress float64, status string, done bool) {
	if p.hub == nil {
		return
	}
	p.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    jobID,
		Message:  message,
		Progress: progress,
		Status:   status,
		Done:     done,
	})
}
