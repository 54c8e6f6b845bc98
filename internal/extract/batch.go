package extract

import (
	"image"
	"io"

	"github.com/docrlabs/docr-go/internal/render"
)

// Batch is an ordered group of consecutive pages submitted together to the
// recognition engine.
type Batch struct {
	Indices []int
	Images  []image.Image
}

// Assembler groups a page stream into batches of at most size pages. Holding
// one batch at a time bounds peak memory no matter how long the document is,
// while keeping recognition calls large enough to amortize their overhead.
type Assembler struct {
	stream render.PageStream
	size   int
}

func NewAssembler(stream render.PageStream, size int) *Assembler {
	if size < 1 {
		size = 1
	}
	return &Assembler{stream: stream, size: size}
}

// Next returns the next batch, smaller than the batch size only at the end of
// the document. It returns io.EOF once the stream is exhausted.
func (a *Assembler) Next() (*Batch, error) {
	batch := &Batch{}
	for len(batch.Images) < a.size {
		page, err := a.stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch.Indices = append(batch.Indices, page.Index)
		batch.Images = append(batch.Images, page.Image)
	}
	if len(batch.Images) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}
