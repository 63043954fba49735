package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Format names an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for formats other than csv and xlsx.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat normalises a requested format.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Document is a rendered export ready to be served or stored.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Render lays out a report and encodes it. kind prefixes the file name.
func Render(kind string, report any, format Format) (Document, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return Document{}, err
	}
	tables, err := Tables(report)
	if err != nil {
		return Document{}, err
	}
	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		err = WriteXLSX(&buf, tables)
	default:
		err = WriteCSV(&buf, tables)
	}
	if err != nil {
		return Document{}, fmt.Errorf("render %s %s: %w", kind, format, err)
	}
	return Document{
		Filename:    kind + "." + string(format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
