// Package source produces raw registry rows: one string per company, table
// cells joined with ", ".
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoRows = errors.New("source: no rows found")

type Source interface {
	Rows(ctx context.Context) ([]string, error)
}

// Format selects how a snapshot is parsed.
type Format string

const (
	FormatHTML  Format = "html"
	FormatMHTML Format = "mhtml"
	FormatPDF   Format = "pdf"
	FormatXLSX  Format = "xlsx"
	FormatText  Format = "text"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	case ".mhtml", ".mht", ".eml":
		return FormatMHTML
	case ".pdf":
		return FormatPDF
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatText
	}
}

// File reads rows from a saved snapshot of the registry page.
type File struct {
	Path   string
	Format Format
}

func NewFile(path string) *File {
	return &File{Path: path, Format: DetectFormat(path)}
}

func (f *File) Rows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	rows, err := ParseRows(f.Format, blob)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrNoRows)
	}
	return rows, nil
}

// Static serves a fixed list of rows.
type Static []string

func (s Static) Rows(context.Context) ([]string, error) {
	if len(s) == 0 {
		return nil, ErrNoRows
	}
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// Open returns an HTTP source for http(s) URLs and a File otherwise.
func Open(location string, httpOpts HTTPOptions) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		httpOpts.URL = location
		return NewHTTP(httpOpts)
	}
	return NewFile(location)
}
