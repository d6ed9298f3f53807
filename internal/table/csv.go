package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ReadCSV parses a CSV membership export. The first row is the header; blank
// rows are skipped. Ragged rows are tolerated; short rows are padded during
// record construction.
func ReadCSV(data []byte, source string) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: read csv: %w", source, err)
	}
	return FromRows(rows, source)
}
