package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/clindoc/clindoc/internal/platform/ocr"
)

type mockOCR struct {
	text string
	err  error
	up   bool
}

func (m *mockOCR) Recognize(_ context.Context, data []byte, mediaType string) (*ocr.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ocr.Result{Text: m.text, Pages: []ocr.Page{{Number: 1, Text: m.text}}}, nil
}

func (m *mockOCR) Available(_ context.Context) bool { return m.up }

func TestExtract_PlainText(t *testing.T) {
	e := NewExtractor(nil)
	doc := RawDocument{Filename: "note.txt", MediaType: "text/plain", Data: []byte("Patient presents with chest pain.")}
	got, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Patient presents with chest pain." {
		t.Errorf("unexpected text: %q", got.Text)
	}
	if len(got.Pages) != 1 {
		t.Errorf("expected 1 page of provenance, got %d", len(got.Pages))
	}
}

func TestExtract_NormalizesLineEndings(t *testing.T) {
	e := NewExtractor(nil)
	doc := RawDocument{MediaType: "text/plain; charset=utf-8", Data: []byte("\ufeffline one\r\nline two\r")}
	got, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "line one\nline two" {
		t.Errorf("unexpected text: %q", got.Text)
	}
}

func TestExtract_EmptyDocumentFails(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), RawDocument{MediaType: "text/plain"})
	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestExtract_BelowMinimumLengthFails(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), RawDocument{MediaType: "text/plain", Data: []byte("ok")})
	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error for short text, got %v", err)
	}
}

func TestExtract_PDFThroughOCR(t *testing.T) {
	e := NewExtractor(&mockOCR{text: "Discharge summary for John Doe.", up: true})
	doc := RawDocument{Filename: "scan.pdf", MediaType: "application/pdf", Data: []byte("%PDF-1.4")}
	got, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Discharge summary for John Doe." {
		t.Errorf("unexpected text: %q", got.Text)
	}
}

func TestExtract_OCRFailureIsExtractionError(t *testing.T) {
	e := NewExtractor(&mockOCR{err: fmt.Errorf("backend down")})
	doc := RawDocument{MediaType: "image/png", Data: []byte{0x89, 0x50}}
	_, err := e.Extract(context.Background(), doc)
	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestExtract_OCRRequiredButMissing(t *testing.T) {
	e := NewExtractor(nil)
	doc := RawDocument{MediaType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	if _, err := e.Extract(context.Background(), doc); err == nil {
		t.Fatal("expected error when OCR backend is missing")
	}
}

func TestExtract_UnsupportedMediaType(t *testing.T) {
	e := NewExtractor(nil)
	doc := RawDocument{MediaType: "application/zip", Data: []byte("PK")}
	if _, err := e.Extract(context.Background(), doc); err == nil {
		t.Fatal("expected error for unsupported media type")
	}
}

func TestMediaTypeForFilename(t *testing.T) {
	cases := map[string]string{
		"scan.PDF":   "application/pdf",
		"photo.jpeg": "image/jpeg",
		"photo.jpg":  "image/jpeg",
		"img.png":    "image/png",
		"note.txt":   "text/plain",
		"data.bin":   "",
	}
	for name, want := range cases {
		if got := MediaTypeForFilename(name); got != want {
			t.Errorf("MediaTypeForFilename(%q) = %q, want %q", name, got, want)
		}
	}
}
