package export

import (
	"bytes"
	"context"
	"encoding/csv"
)

type CSVRenderer struct{}

func (CSVRenderer) Extension() string   { return "csv" }
func (CSVRenderer) ContentType() string { return "text/csv" }

func (CSVRenderer) Render(ctx context.Context, table Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(table.Headers); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), writer.Error()
}
