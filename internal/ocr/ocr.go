// Package ocr defines the recognition capability consumed by the extraction
// pipeline. The model itself lives behind an Engine implementation; the
// pipeline only sees per-page results.
package ocr

import (
	"context"
	"encoding/json"
	"image"
)

// PageResult is the recognition output for a single page.
type PageResult struct {
	// Markdown is the text rendering of the page.
	Markdown string
	// Layout is the structured recognition record, kept opaque.
	Layout json.RawMessage
	// Images holds embedded images extracted from the page (figures, charts),
	// keyed by their output-relative path.
	Images map[string]image.Image
}

// Engine is a batch recognition capability. Engines are expensive to
// construct and are reused for the lifetime of the worker that owns them.
// Recognize returns exactly one result per input image, in input order.
type Engine interface {
	Recognize(ctx context.Context, images []image.Image) ([]PageResult, error)

	// ConcatenatePages owns the rule for joining per-page text fragments into
	// one document. Page boundaries may need engine-specific handling, so the
	// pipeline never imposes its own joining logic.
	ConcatenatePages(fragments []string) string

	Close() error
}
