// Package pdfmeta validates uploaded PDF documents and reads basic metadata.
package pdfmeta

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidPDF is returned when the input is not a readable PDF document.
var ErrInvalidPDF = errors.New("invalid pdf")

var pdfMagic = []byte("%PDF-")

// Info describes a validated PDF.
type Info struct {
	Pages int
}

// Inspect parses the document structure and counts its pages.
func Inspect(r io.ReaderAt, size int64) (info Info, err error) {
	if size < int64(len(pdfMagic)) {
		return Info{}, fmt.Errorf("%w: file too small", ErrInvalidPDF)
	}
	head := make([]byte, len(pdfMagic))
	if _, err := r.ReadAt(head, 0); err != nil {
		return Info{}, fmt.Errorf("%w: read header: %v", ErrInvalidPDF, err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return Info{}, fmt.Errorf("%w: missing %%PDF header", ErrInvalidPDF)
	}

	// The parser panics on some malformed object graphs.
	defer func() {
		if rec := recover(); rec != nil {
			info = Info{}
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return Info{}, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return Info{Pages: pages}, nil
}
