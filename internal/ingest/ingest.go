// Package ingest reads marketplace payments from statement and export files.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-rules/internal/service"
	"github.com/shopspring/decimal"
)

// Format is a payment file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatOFX  Format = "ofx"
)

// FormatFromPath picks the format from a file extension. Unknown extensions
// are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".ofx", ".qfx":
		return FormatOFX
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// NewReader returns a payment reader for r in the given format.
func NewReader(r io.Reader, format Format) (service.PaymentReader, error) {
	switch format {
	case FormatJSON:
		return NewJSONReader(r), nil
	case FormatYAML:
		return NewYAMLReader(r), nil
	case FormatCSV:
		return NewCSVReader(r), nil
	case FormatOFX:
		return NewOFXReader(r), nil
	default:
		return nil, fmt.Errorf("unsupported payment format %q", format)
	}
}

// File is a payment reader over an open file.
type File struct {
	service.PaymentReader
	f *os.File
}

// Open opens a payment file, picking the format from its extension.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open payments file: %w", err)
	}

	r, err := NewReader(f, FormatFromPath(path))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &File{PaymentReader: r, f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// ParseAmount parses a money amount with either separator convention:
// "1,234.56", "1.234,56", "R$ -12,50". When both separators appear the last
// one is the decimal point; a separator repeated on its own groups thousands.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.ReplaceAll(clean, " ", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	clean, err := normalizeSeparators(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func normalizeSeparators(s string) (string, error) {
	commas, dots := strings.Count(s, ","), strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		decimalSep, groupSep := ",", "."
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			decimalSep, groupSep = ".", ","
		}
		if strings.Count(s, decimalSep) > 1 {
			return "", fmt.Errorf("ambiguous separators")
		}
		s = strings.ReplaceAll(s, groupSep, "")
		return strings.Replace(s, decimalSep, ".", 1), nil
	case commas > 1:
		return strings.ReplaceAll(s, ",", ""), nil
	case commas == 1:
		return strings.Replace(s, ",", ".", 1), nil
	case dots > 1:
		return strings.ReplaceAll(s, ".", ""), nil
	}
	return s, nil
}
