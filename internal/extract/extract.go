// Package extract performs best-effort text extraction from uploaded
// documents for prompt injection. Every failure mode collapses to "no
// text": callers treat a miss as missing document content, never an error.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// ScannedPDFAdvisory is returned instead of nothing when a PDF parses but
// has no recoverable text layer, so the user learns what to do instead of
// getting a silent no-op.
const ScannedPDFAdvisory = "This PDF appears to be a scanned image without a text layer. " +
	"To read scanned documents, please upload them as image files (JPG, PNG) instead - " +
	"the AI can read text directly from images using vision capabilities."

const (
	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// extToMIME maps extensions to types for files that arrive with an absent
// or generic declared type. CSV maps to the Excel type because that is
// what spreadsheet exports commonly declare.
var extToMIME = map[string]string{
	".csv":  "application/vnd.ms-excel",
	".json": "application/json",
	".xml":  "text/xml",
	".html": "text/html",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  mimePDF,
	".doc":  mimeDOC,
	".docx": mimeDOCX,
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// EffectiveType resolves the MIME type used for dispatch: the declared
// type when specific, else the extension map, else content sniffing.
func EffectiveType(declared, fileName string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if mapped, ok := extToMIME[ext]; ok {
		return mapped
	}
	return mimetype.Detect(data).String()
}

// Extract returns the plain text of a document, or ok=false when the type
// carries no extractable text (images, unknown types) or extraction fails.
func Extract(data []byte, effectiveType, fileName string) (text string, ok bool) {
	defer func() {
		// Some parsers panic on malformed input; extraction is fail-soft.
		if r := recover(); r != nil {
			slog.Warn("text extraction panicked", "file", fileName, "type", effectiveType, "panic", r)
			text, ok = "", false
		}
	}()

	// Strip any charset suffix before dispatch
	if i := strings.IndexByte(effectiveType, ';'); i >= 0 {
		effectiveType = strings.TrimSpace(effectiveType[:i])
	}

	switch effectiveType {
	case mimePDF:
		return extractPDF(data)
	case mimeDOCX:
		return extractDocx(data)
	case mimeDOC:
		// Legacy Word; the OOXML reader handles some of these, the rest
		// downgrade to no text.
		return extractDocx(data)
	case "application/json":
		return extractJSON(data), true
	case "text/csv", "application/vnd.ms-excel":
		return extractCSV(data), true
	case "text/xml", "application/xml":
		return "XML File:\n" + string(data), true
	case "text/html":
		return "HTML File:\n" + string(data), true
	case "text/plain", "text/markdown":
		return string(data), true
	}

	if strings.HasPrefix(effectiveType, "image/") {
		return "", false
	}
	return "", false
}

// extractPDF concatenates the decoded text of every page, one line per
// page. A parseable PDF without any text yields the scanned-PDF advisory.
func extractPDF(data []byte) (string, bool) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		slog.Warn("PDF parsing failed", "error", err)
		return "", false
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return ScannedPDFAdvisory, true
	}
	return text, true
}

func extractDocx(data []byte) (string, bool) {
	body, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		slog.Warn("DOCX extraction failed", "error", err)
		return "", false
	}
	return body, true
}

// extractJSON pretty-prints valid JSON, or falls back to the raw bytes
// with a header noting it.
func extractJSON(data []byte) string {
	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "JSON File (raw):\n" + string(data)
	}
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "JSON File (raw):\n" + string(data)
	}
	return fmt.Sprintf("JSON File:\n%s", pretty)
}

// extractCSV decodes strictly as UTF-8 first, then falls back to
// Windows-1251 (common for Cyrillic spreadsheet exports). The only type
// with a two-encoding ladder.
func extractCSV(data []byte) string {
	if utf8.Valid(data) {
		return "CSV File:\n" + string(data)
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		// Decoder replaces rather than fails, but keep the raw fallback
		return "CSV File:\n" + string(data)
	}
	return "CSV File:\n" + string(decoded)
}
