package extractor

import (
	"path/filepath"
	"strings"
)

// Kind identifies a supported source format.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlainText
	KindCSV
	KindPDF
	KindXLSX
	KindHTML
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "text"
	case KindCSV:
		return "csv"
	case KindPDF:
		return "pdf"
	case KindXLSX:
		return "xlsx"
	case KindHTML:
		return "html"
	default:
		return "unknown"
	}
}

// DetectKind resolves the format from the filename extension first and the
// declared MIME type second. Unknown formats are reported explicitly rather
// than guessed.
func DetectKind(filename, mimeType string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".log":
		return KindPlainText
	case ".csv":
		return KindCSV
	case ".pdf":
		return KindPDF
	case ".xlsx":
		return KindXLSX
	case ".html", ".htm":
		return KindHTML
	}

	mime := strings.ToLower(mimeType)
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	switch mime {
	case "text/plain", "text/markdown":
		return KindPlainText
	case "text/csv":
		return KindCSV
	case "application/pdf":
		return KindPDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return KindXLSX
	case "text/html":
		return KindHTML
	}
	return KindUnknown
}
