package export

import (
	"bytes"
	"encoding/csv"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// EncodeCSV writes every table as a header line followed by its rows. Blocks
// follow each other without separators.
func EncodeCSV(tables []table.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, t := range tables {
		if err := w.Write(t.Headers); err != nil {
			return nil, err
		}
		if err := w.WriteAll(t.Data); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
