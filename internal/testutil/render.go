// A fake page renderer so pipeline tests don't need the native PDF engine.

package testutil

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/docrlabs/docr-go/internal/render"
)

// StubRenderer implements render.Renderer and produces solid-color pages
// without opening a real document. The document at the given path must exist,
// but its content is ignored.
type StubRenderer struct {
	Pages      int
	FailAtPage int // 1-based page whose render fails; 0 means never fail
	Width      int
	Height     int
}

func (r *StubRenderer) CountPages(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return r.Pages, nil
}

func (r *StubRenderer) Stream(path string, dpi float64) (render.PageStream, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &stubStream{renderer: r}, nil
}

type stubStream struct {
	renderer *StubRenderer
	next     int
}

func (s *stubStream) Next() (*render.Page, error) {
	if s.next >= s.renderer.Pages {
		return nil, io.EOF
	}
	if s.renderer.FailAtPage > 0 && s.next+1 == s.renderer.FailAtPage {
		return nil, fmt.Errorf("simulated render failure on page %d", s.renderer.FailAtPage)
	}

	w, h := s.renderer.Width, s.renderer.Height
	if w == 0 {
		w = 64
	}
	if h == 0 {
		h = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	// Encode the page number into the pixel data so tests can tell pages apart.
	shade := uint8(s.next * 7)
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.Set(0, 0, color.RGBA{R: uint8(s.next), A: 255})

	page := &render.Page{Index: s.next, Image: img}
	s.next++
	return page, nil
}

func (s *stubStream) Close() error { return nil }
