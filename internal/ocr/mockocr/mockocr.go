// Package mockocr provides a deterministic in-process recognition engine for
// tests. It produces one markdown fragment and one layout record per page and
// can be told to fail after a fixed number of pages.
package mockocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/docrlabs/docr-go/internal/ocr"
)

type Engine struct {
	// FailAfterPages, when > 0, makes Recognize return an error once that
	// many pages have been recognized.
	FailAfterPages int
	// EmbedImageOnFirstPage attaches one extracted figure to page 0.
	EmbedImageOnFirstPage bool

	recognized int
	closed     bool
}

func New() *Engine {
	return &Engine{}
}

// Recognize returns one result per input image. Pages are numbered across
// calls, matching the stateful single-owner usage of a real engine.
func (e *Engine) Recognize(_ context.Context, images []image.Image) ([]ocr.PageResult, error) {
	if e.closed {
		return nil, fmt.Errorf("mockocr: engine is closed")
	}

	results := make([]ocr.PageResult, 0, len(images))
	for range images {
		if e.FailAfterPages > 0 && e.recognized >= e.FailAfterPages {
			return nil, fmt.Errorf("mockocr: simulated failure after %d pages", e.FailAfterPages)
		}
		page := e.recognized
		res := ocr.PageResult{
			Markdown: fmt.Sprintf("# Page %d\n\nRecognized text for page %d.", page+1, page+1),
			Layout:   json.RawMessage(fmt.Sprintf(`{"page": %d, "blocks": []}`, page)),
		}
		if e.EmbedImageOnFirstPage && page == 0 {
			res.Images = map[string]image.Image{
				"imgs/page_1_fig_0.png": image.NewRGBA(image.Rect(0, 0, 4, 4)),
			}
		}
		results = append(results, res)
		e.recognized++
	}
	return results, nil
}

func (e *Engine) ConcatenatePages(fragments []string) string {
	return strings.Join(fragments, "\n\n")
}

func (e *Engine) Close() error {
	e.closed = true
	return nil
}

// Recognized reports how many pages the engine has seen, across all batches.
func (e *Engine) Recognized() int {
	return e.recognized
}
