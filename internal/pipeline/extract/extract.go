// Package extract converts an uploaded clinical document into plain text.
// Plain-text payloads are read directly; pdf and image payloads go through
// the OCR backend. Extraction is the only pipeline stage whose failure
// aborts the run: without text, nothing downstream can proceed.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clindoc/clindoc/internal/platform/ocr"
)

// MinTextLength is the default minimum number of characters an extraction
// must yield. Shorter output is treated as an unreadable document so the
// downstream stages never operate on noise.
const MinTextLength = 10

// RawDocument is the uploaded payload plus its declared media type.
type RawDocument struct {
	Filename  string
	MediaType string
	Data      []byte
}

// PageText records which page or image region a slice of text came from.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// ExtractedText is the extraction output with per-page provenance.
// Invariant: Text is non-empty unless extraction failed.
type ExtractedText struct {
	Text  string     `json:"text"`
	Pages []PageText `json:"pages,omitempty"`
}

// Error is the fatal extraction failure. It aborts the whole run.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// OCRBackend recognizes text in image and pdf payloads.
type OCRBackend interface {
	Recognize(ctx context.Context, data []byte, mediaType string) (*ocr.Result, error)
	Available(ctx context.Context) bool
}

// SupportedMediaTypes maps accepted media types to whether they require OCR.
var SupportedMediaTypes = map[string]bool{
	"text/plain":      false,
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// Supported reports whether the pipeline accepts the media type.
func Supported(mediaType string) bool {
	_, ok := SupportedMediaTypes[normalizeMediaType(mediaType)]
	return ok
}

// Extractor runs the text extraction stage.
type Extractor struct {
	OCR       OCRBackend // nil when the deployment has no OCR backend
	MinLength int        // 0 means MinTextLength
}

func NewExtractor(backend OCRBackend) *Extractor {
	return &Extractor{OCR: backend}
}

func (e *Extractor) minLength() int {
	if e.MinLength > 0 {
		return e.MinLength
	}
	return MinTextLength
}

// Extract returns the document's text or an *Error.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument) (*ExtractedText, error) {
	if len(doc.Data) == 0 {
		return nil, &Error{Reason: "empty document"}
	}

	mediaType := normalizeMediaType(doc.MediaType)
	needsOCR, ok := SupportedMediaTypes[mediaType]
	if !ok {
		return nil, &Error{Reason: fmt.Sprintf("unsupported media type %q", doc.MediaType)}
	}

	var result *ExtractedText
	if needsOCR {
		if e.OCR == nil {
			return nil, &Error{Reason: "document requires OCR but no OCR backend is configured"}
		}
		recognized, err := e.OCR.Recognize(ctx, doc.Data, mediaType)
		if err != nil {
			return nil, &Error{Reason: "OCR backend", Err: err}
		}
		result = &ExtractedText{Text: recognized.Text}
		for _, p := range recognized.Pages {
			result.Pages = append(result.Pages, PageText{Page: p.Number, Text: p.Text})
		}
	} else {
		if !utf8.Valid(doc.Data) {
			return nil, &Error{Reason: "text payload is not valid UTF-8"}
		}
		text := normalizeText(string(doc.Data))
		result = &ExtractedText{
			Text:  text,
			Pages: []PageText{{Page: 1, Text: text}},
		}
	}

	result.Text = strings.TrimSpace(result.Text)
	if len(result.Text) < e.minLength() {
		return nil, &Error{Reason: fmt.Sprintf("extracted text below minimum length (%d chars)", e.minLength())}
	}

	return result, nil
}

func normalizeMediaType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "image/jpg":
		return "image/jpeg"
	case "text/txt", "":
		return "text/plain"
	}
	return mt
}

// normalizeText strips a UTF-8 BOM and canonicalizes line endings.
func normalizeText(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// MediaTypeForFilename infers a media type from a filename extension, used
// when an upload arrives without a declared type.
func MediaTypeForFilename(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	}
	return ""
}
