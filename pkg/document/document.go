package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MIMEPDF is the document MIME type used for PDF files.
const MIMEPDF = "application/pdf"

const fallbackImageMIME = "image/jpeg"

// ErrNoTextLayer indicates the PDF carries no extractable text.
var ErrNoTextLayer = errors.New("no text content found in pdf")

// MIMEForPath decides how a stored file is handled from its extension:
// pdf is a document, anything else is treated as an image whose concrete type is sniffed from data.
func MIMEForPath(path string, data []byte) string {
	if strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), "pdf") {
		return MIMEPDF
	}
	if len(data) > 0 {
		detected := mimetype.Detect(data).String()
		if strings.HasPrefix(detected, "image/") {
			return detected
		}
	}
	return fallbackImageMIME
}

// IsPDF reports whether the MIME type denotes a PDF.
func IsPDF(mime string) bool {
	return strings.EqualFold(mime, MIMEPDF)
}

// DataURI encodes data as a base64 data URI.
func DataURI(mime string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

// PDFText extracts the plain text layer of an in-memory PDF, page by page.
func PDFText(data []byte) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var builder strings.Builder
	for index := 1; index <= reader.NumPage(); index++ {
		page := reader.Page(index)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	text = strings.TrimSpace(builder.String())
	if text == "" {
		return "", ErrNoTextLayer
	}
	return text, nil
}

// PlainText returns the readable text of a stored document: the PDF text layer for PDFs,
// the raw bytes for text files.
func PlainText(data []byte) (string, error) {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is(MIMEPDF):
		return PDFText(data)
	case strings.HasPrefix(detected.String(), "text/"):
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported document type %s", detected.String())
	}
}
