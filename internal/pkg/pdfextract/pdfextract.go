// Package pdfextract reads the embedded text layer of uploaded PDF
// documents so they can skip image recognition.
package pdfextract

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the upload is a PDF by content type or magic bytes.
func IsPDF(data []byte, contentType string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return bytes.HasPrefix(data, pdfMagic)
}

// ExtractText returns the plain text of the PDF in data, trimmed. Scanned
// PDFs without a text layer yield an empty string and a nil error.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
