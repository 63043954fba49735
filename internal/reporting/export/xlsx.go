package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31
	amountFormat = "#,##0.00"
)

type sheetStyles struct {
	header int
	amount int
}

// WriteXLSX builds a workbook with one sheet per table.
func WriteXLSX(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	var styles sheetStyles
	var err error
	if styles.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	numFmt := amountFormat
	if styles.amount, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	first := f.GetSheetName(0)
	for i, table := range tables {
		name := sheetName(table.Name)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, table, styles); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table Table, styles sheetStyles) error {
	header := make([]interface{}, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q header: %w", sheet, err)
	}
	if len(table.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
			return fmt.Errorf("sheet %q header style: %w", sheet, err)
		}
	}
	for i, row := range table.Rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := writeCell(f, sheet, cell, v, table.IsNumeric(j), styles.amount); err != nil {
				return fmt.Errorf("sheet %q cell %s: %w", sheet, cell, err)
			}
		}
	}
	return f.SetColWidth(sheet, "A", "A", 28)
}

// writeCell stores amounts as numeric cells carrying the decimal text unchanged, so no binary
// float conversion happens on the way into the workbook. Anything else is a string.
func writeCell(f *excelize.File, sheet, cell, raw string, numeric bool, amountStyle int) error {
	if !numeric || !isAmount(raw) {
		return f.SetCellStr(sheet, cell, raw)
	}
	if err := f.SetCellDefault(sheet, cell, raw); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, amountStyle)
}

// isAmount accepts plain decimal literals only. NaN, Inf and exponents are text.
func isAmount(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, "eE") {
		return false
	}
	_, err := decimal.NewFromString(raw)
	return err == nil
}

func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, name)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
