package ocr

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText reads the embedded text layer of a PDF without any network call.
// It is the local fallback when no recognition credential is configured;
// image-only scans come back empty.
type PDFText struct{}

func NewPDFText() *PDFText { return &PDFText{} }

func (p *PDFText) Extract(_ context.Context, content []byte, mimeType string) (string, error) {
	if !isPDF(mimeType) {
		return "", &UnsupportedInputError{MimeType: mimeType, Reason: "local fallback reads PDF text layers only"}
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &UnsupportedInputError{MimeType: mimeType, Reason: err.Error()}
	}

	var texts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, pageSeparator), nil
}
