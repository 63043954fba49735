package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV emits every table in order, each preceded by its name and separated by a blank record.
func WriteCSV(w io.Writer, tables []Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	for i, table := range tables {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{table.Name}); err != nil {
			return err
		}
		if err := writer.Write(table.Header); err != nil {
			return err
		}
		for _, row := range table.Rows {
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
