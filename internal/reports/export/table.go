package export

import (
	"context"
	"fmt"
)

// Table is the format-neutral shape every report is flattened into before rendering.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Renderer turns a table into a downloadable document.
type Renderer interface {
	Render(ctx context.Context, table Table) ([]byte, error)
	Extension() string
	ContentType() string
}

// Format names an export target.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
)

// Registry resolves renderers by format.
type Registry map[Format]Renderer

func (r Registry) Lookup(format Format) (Renderer, error) {
	renderer, ok := r[format]
	if !ok || renderer == nil {
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
	return renderer, nil
}
