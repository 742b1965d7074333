// Package pdf reads the page metadata needed to map UI coordinates onto
// PDF user space: page count, crop box and rotation.
package pdf

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsawler/tabula/reader"
)

// ErrPageNotFound is returned when a 1-based page number is outside the
// document.
var ErrPageNotFound = errors.New("page not found")

// Box is the raw crop box of a page as stored in the file, before any
// rotation is applied.
type Box struct {
	Width    float64
	Height   float64
	Rotation int
}

// Document is the read-only view of a PDF used by the extraction layer.
type Document interface {
	PageCount() (int, error)
	// PageBox returns the crop box of the 1-based page.
	PageBox(page int) (Box, error)
	Close() error
}

// Opener opens the document stored at path.
type Opener func(path string) (Document, error)

type tabulaDocument struct {
	r *reader.Reader
}

// Open parses the cross reference table of the file at path.
func Open(path string) (Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &tabulaDocument{r: r}, nil
}

func (d *tabulaDocument) PageCount() (int, error) {
	n, err := d.r.PageCount()
	if err != nil {
		return 0, fmt.Errorf("read page tree: %w", err)
	}
	return n, nil
}

func (d *tabulaDocument) PageBox(page int) (Box, error) {
	count, err := d.PageCount()
	if err != nil {
		return Box{}, err
	}
	if page < 1 || page > count {
		return Box{}, fmt.Errorf("%w: %d of %d", ErrPageNotFound, page, count)
	}

	p, err := d.r.GetPage(page - 1)
	if err != nil {
		return Box{}, fmt.Errorf("load page %d: %w", page, err)
	}
	// CropBox falls back to MediaBox when the page has none.
	box, err := p.CropBox()
	if err != nil {
		return Box{}, fmt.Errorf("crop box of page %d: %w", page, err)
	}

	return Box{
		Width:    math.Abs(box[2] - box[0]),
		Height:   math.Abs(box[3] - box[1]),
		Rotation: p.Rotate(),
	}, nil
}

func (d *tabulaDocument) Close() error {
	return d.r.Close()
}
