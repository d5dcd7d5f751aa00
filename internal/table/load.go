package table

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Load parses xlsx bytes into a Table.
//
// The first sheet is read and its first non-blank row is the header.
// Blank header cells are named "Unnamed: <index>" and repeated names get a
// ".<n>" suffix, so every column is addressable. Fully blank data rows are
// dropped. The FilterKey column must be present.
func Load(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: errors.New("workbook has no sheets")}
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}

	headerAt := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &SchemaError{Column: FilterKey}
	}

	width := len(rows[headerAt])
	for _, row := range rows[headerAt+1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := headerNames(rows[headerAt], width)
	if !containsString(columns, FilterKey) {
		return nil, &SchemaError{Column: FilterKey, Columns: columns}
	}

	cr := newCellReader(f, sheet)
	out := make([][]Value, 0, len(rows)-headerAt-1)
	for i := headerAt + 1; i < len(rows); i++ {
		raw := rows[i]
		if isBlankRow(raw) {
			continue
		}
		values := make([]Value, width)
		for j, text := range raw {
			v, err := cr.value(j+1, i+1, text)
			if err != nil {
				return nil, &ParseError{Err: err}
			}
			values[j] = v
		}
		out = append(out, values)
	}

	return New(columns, out)
}

// headerNames turns the raw header row into unique column names.
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = base + "." + strconv.Itoa(suffix[base])
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// cellReader resolves the type of raw cell text using the cell's stored
// type and number format.
type cellReader struct {
	f         *excelize.File
	sheet     string
	date1904  bool
	dateStyle map[int]bool
}

func newCellReader(f *excelize.File, sheet string) *cellReader {
	cr := &cellReader{f: f, sheet: sheet, dateStyle: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		cr.date1904 = *props.Date1904
	}
	return cr
}

func (cr *cellReader) value(col, row int, raw string) (Value, error) {
	if raw == "" {
		return Empty(), nil
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Value{}, err
	}
	typ, err := cr.f.GetCellType(cr.sheet, cell)
	if err != nil {
		return Value{}, fmt.Errorf("cell %s: %w", cell, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return parseBool(raw), nil
	case excelize.CellTypeDate:
		if t, ok := parseISOTime(raw); ok && storableDate(t) {
			return Date(t), nil
		}
		return String(raw), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return String(raw), nil
	}

	// Unset or numeric: OOXML stores numbers and dates as plain numbers.
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return String(raw), nil
	}
	if cr.isDateCell(cell) {
		if t, err := excelize.ExcelDateToTime(num, cr.date1904); err == nil && storableDate(t) {
			return Date(t), nil
		}
	}
	return Number(num), nil
}

func (cr *cellReader) isDateCell(cell string) bool {
	styleID, err := cr.f.GetCellStyle(cr.sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := cr.dateStyle[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := cr.f.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = isBuiltinDateFormat(style.NumFmt)
		}
	}
	cr.dateStyle[styleID] = isDate
	return isDate
}

// isBuiltinDateFormat reports whether a built-in number format id renders
// dates or times (ECMA-376 18.8.30 plus the common CJK date ids).
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format code contains date
// or time tokens outside quoted literals and bracketed sections.
func isDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			b.WriteByte(c)
		}
	}
	plain := strings.ToLower(b.String())
	if plain == "general" || plain == "@" {
		return false
	}
	return strings.ContainsAny(plain, "ydh")
}

func parseBool(raw string) Value {
	switch strings.ToUpper(raw) {
	case "1", "TRUE":
		return Bool(true)
	case "0", "FALSE":
		return Bool(false)
	}
	return String(raw)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	dateTimeLayout,
	dateLayout,
}

func parseISOTime(raw string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
