package table

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName names the single sheet of exported workbooks.
const DefaultSheetName = "Datos Filtrados"

// ContentType is the MIME type of exported workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	dateNumFmt     = "yyyy-mm-dd"
	dateTimeNumFmt = "yyyy-mm-dd hh:mm:ss"
)

// Export encodes t as an xlsx workbook with one sheet: a header row with
// the column names followed by one row per table row, columns in order.
// Numbers, booleans and dates keep their cell types so Load(Export(t))
// reproduces t.
func Export(t *Table, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, &ExportError{Err: fmt.Errorf("sheet name %q: %w", sheetName, err)}
	}

	dateFmt, dateTimeFmt := dateNumFmt, dateTimeNumFmt
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return nil, &ExportError{Err: err}
	}
	dateTimeStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateTimeFmt})
	if err != nil {
		return nil, &ExportError{Err: err}
	}

	header := make([]interface{}, len(t.columns))
	for i, col := range t.columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, &ExportError{Err: fmt.Errorf("write header: %w", err)}
	}

	for i, row := range t.rows {
		rowNum := i + 2
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		start, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return nil, &ExportError{Err: err}
		}
		if err := f.SetSheetRow(sheetName, start, &cells); err != nil {
			return nil, &ExportError{Err: fmt.Errorf("write row %d: %w", rowNum, err)}
		}

		for j, v := range row {
			if v.Kind != KindDate {
				continue
			}
			if _, ok := cells[j].(string); ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, rowNum)
			if err != nil {
				return nil, &ExportError{Err: err}
			}
			style := dateStyle
			if len(v.Text) > len(dateLayout) {
				style = dateTimeStyle
			}
			if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
				return nil, &ExportError{Err: err}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &ExportError{Err: err}
	}
	return buf.Bytes(), nil
}

// cellValue converts a Value to the Go type excelize writes with the
// matching cell type. Values whose text does not parse, and dates before
// the workbook epoch, fall back to their text.
func cellValue(v Value) interface{} {
	switch v.Kind {
	case KindEmpty:
		return nil
	case KindNumber:
		if f, ok := v.Float(); ok {
			return f
		}
	case KindBool:
		return v.Text == "TRUE"
	case KindDate:
		if t, ok := v.Time(); ok && storableDate(t) {
			return t
		}
	}
	return v.Text
}
