package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"document-chat/internal/models"
)

// ErrUnsupportedFormat is returned for files whose extension has no extractor.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is the closed set of document kinds the extractor understands.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatText
	FormatWord
	FormatSpreadsheet
	FormatLegacySpreadsheet
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatText:
		return "text"
	case FormatWord:
		return "word"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatLegacySpreadsheet:
		return "legacy-spreadsheet"
	default:
		return "unsupported"
	}
}

// SupportedExtensions lists the extensions accepted by the upload control.
var SupportedExtensions = []string{".pdf", ".txt", ".docx", ".xlsx", ".xls"}

// DetectFormat resolves the format of a file from its name.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".txt":
		return FormatText
	case ".docx":
		return FormatWord
	case ".xlsx":
		return FormatSpreadsheet
	case ".xls":
		return FormatLegacySpreadsheet
	default:
		return FormatUnsupported
	}
}

func (f Format) extractor() func([]byte) (string, error) {
	switch f {
	case FormatPDF:
		return parsePDF
	case FormatText:
		return parseText
	case FormatWord:
		return parseDOCX
	case FormatSpreadsheet:
		return parseXLSX
	case FormatLegacySpreadsheet:
		return parseXLS
	default:
		return nil
	}
}

// Extract returns the plain text of an uploaded file. Unsupported names fail
// with a KindUnsupportedFormat error wrapping ErrUnsupportedFormat; corrupt
// content fails with KindExtract.
func Extract(name string, data []byte) (string, error) {
	format := DetectFormat(name)
	extract := format.extractor()
	if extract == nil {
		return "", models.NewError(models.KindUnsupportedFormat, "extract", name,
			fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name)))
	}

	text, err := extract(data)
	if err != nil {
		return "", models.NewError(models.KindExtract, "extract", name, err)
	}
	return text, nil
}

// ExtractFile reads the file at path and extracts it like an upload.
func ExtractFile(path string) (models.Document, error) {
	name := filepath.Base(path)
	if DetectFormat(name) == FormatUnsupported {
		return models.Document{}, models.NewError(models.KindUnsupportedFormat, "extract", name,
			fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, models.NewError(models.KindExtract, "read", name, err)
	}
	text, err := Extract(name, data)
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{Name: name, Content: text}, nil
}

// parsePDF concatenates the text of every page in order, with no separator.
// Pages without extractable text contribute nothing.
func parsePDF(data []byte) (text string, err error) {
	// the pdf package panics on some malformed object graphs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

func parseText(data []byte) (string, error) {
	return string(data), nil
}
