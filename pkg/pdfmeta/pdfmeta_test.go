package pdfmeta_test

import (
	"bytes"
	"errors"
	"testing"

	"booklibrary/pkg/pdfmeta"
	"booklibrary/pkg/pdfmeta/pdfmetatest"
)

func TestInspectCountsPages(t *testing.T) {
	for _, pages := range []int{1, 3} {
		doc := pdfmetatest.MinimalPDF(pages)
		info, err := pdfmeta.Inspect(bytes.NewReader(doc), int64(len(doc)))
		if err != nil {
			t.Fatalf("inspect %d-page pdf: %v", pages, err)
		}
		if info.Pages != pages {
			t.Fatalf("expected %d pages, got %d", pages, info.Pages)
		}
	}
}

func TestInspectRejectsNonPDF(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("hello, this is definitely not a pdf document"),
		"truncated": pdfmetatest.MinimalPDF(2)[:40],
		"no eof":    bytes.TrimSuffix(pdfmetatest.MinimalPDF(1), []byte("%%EOF\n")),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := pdfmeta.Inspect(bytes.NewReader(doc), int64(len(doc))); !errors.Is(err, pdfmeta.ErrInvalidPDF) {
				t.Fatalf("expected ErrInvalidPDF, got %v", err)
			}
		})
	}
}
