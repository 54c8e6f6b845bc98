// This file wraps the MuPDF bindings behind a small Renderer interface so the
// extraction pipeline can be exercised without a native PDF engine.

package render

import (
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/go-fitz"
)

// Page is one rasterized page of a document.
type Page struct {
	Index int
	Image image.Image
}

// PageStream is a lazy, single-pass sequence of rendered pages. Next returns
// io.EOF after the last page. The stream is not seekable; re-reading a
// document means opening a new stream.
type PageStream interface {
	Next() (*Page, error)
	Close() error
}

// Renderer converts a document into page images at a chosen resolution.
type Renderer interface {
	CountPages(path string) (int, error)
	Stream(path string, dpi float64) (PageStream, error)
}

// FitzRenderer renders documents with MuPDF.
type FitzRenderer struct{}

func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// CountPages opens the document just long enough to read its page count. No
// page is rasterized.
func (r *FitzRenderer) CountPages(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Stream opens the document and returns a stream that rasterizes one page per
// Next call. The caller must Close the stream.
func (r *FitzRenderer) Stream(path string, dpi float64) (PageStream, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &fitzStream{doc: doc, dpi: dpi, total: doc.NumPage()}, nil
}

type fitzStream struct {
	doc   *fitz.Document
	dpi   float64
	next  int
	total int
}

func (s *fitzStream) Next() (*Page, error) {
	if s.next >= s.total {
		return nil, io.EOF
	}
	img, err := s.doc.ImageDPI(s.next, s.dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", s.next, err)
	}
	page := &Page{Index: s.next, Image: img}
	s.next++
	return page, nil
}

func (s *fitzStream) Close() error {
	return s.doc.Close()
}
