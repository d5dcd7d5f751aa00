package table

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExport_SelectedRowsRoundTrip(t *testing.T) {
	tbl, err := Load(salesBook(t))
	require.NoError(t, err)

	filtered := Filter(tbl, "A")
	require.Equal(t, 2, filtered.Len())

	data, err := Export(filtered, "")
	require.NoError(t, err)

	reloaded, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, []string{FilterKey, "Ventas"}, reloaded.Columns())
	assert.Equal(t, [][]string{{"A", "10"}, {"A", "30"}}, reloaded.Strings())
	assert.True(t, filtered.Equal(reloaded))
}

func TestExport_TypedRoundTrip(t *testing.T) {
	data := workbook(t,
		[]interface{}{"ID", FilterKey, "Fecha", "Hora", "Activo", "Monto", "Nota", ""},
		[]interface{}{1, "Sede", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 8, 15, 30, 0, time.UTC), true, -0.25, "0042"},
		[]interface{}{2, "Sede", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC), nil, false, 1e6, "ñandú"},
		[]interface{}{3, nil, nil, nil, nil, nil, nil, "x"},
	)

	tbl, err := Load(data)
	require.NoError(t, err)

	out, err := Export(tbl, "Hoja")
	require.NoError(t, err)

	reloaded, err := Load(out)
	require.NoError(t, err)

	assert.Equal(t, tbl.Columns(), reloaded.Columns())
	assert.Equal(t, tbl.Strings(), reloaded.Strings())
	assert.True(t, tbl.Equal(reloaded))
}

func TestExport_EmptyTableKeepsHeader(t *testing.T) {
	tbl := Filter(fixture(), "Inexistente")

	data, err := Export(tbl, "")
	require.NoError(t, err)

	reloaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), reloaded.Columns())
	assert.Equal(t, 0, reloaded.Len())
}

func TestExport_SheetName(t *testing.T) {
	data, err := Export(fixture(), "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())
}

func TestExport_InvalidSheetName(t *testing.T) {
	_, err := Export(fixture(), strings.Repeat("x", 40))

	var exportErr *ExportError
	assert.True(t, errors.As(err, &exportErr), "want ExportError, got %v", err)
}

func TestStorableDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want bool
	}{
		{time.Date(1899, 12, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{time.Date(1899, 12, 31, 0, 0, 1, 0, time.UTC), true},
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storableDate(tt.in), tt.in.String())
	}
}

func TestExport_DateBeforeEpochWrittenAsText(t *testing.T) {
	old := Date(time.Date(1899, 12, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "1899-12-01", cellValue(old))

	tbl := MustNew([]string{FilterKey, "Fundación"}, [][]Value{{String("Sede"), old}})
	data, err := Export(tbl, "")
	require.NoError(t, err)

	reloaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Sede", "1899-12-01"}}, reloaded.Strings())

	again, err := Export(reloaded, "")
	require.NoError(t, err)
	final, err := Load(again)
	require.NoError(t, err)
	assert.True(t, reloaded.Equal(final))
}

func TestLoad_SerialBeforeEpochStaysNumeric(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{FilterKey, "Fecha"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Sede", 0}))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B2", style))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Load(buf.Bytes())
	require.NoError(t, err)
	v, ok := tbl.Cell(0, "Fecha")
	require.True(t, ok)
	assert.Equal(t, KindNumber, v.Kind)

	data, err := Export(tbl, "")
	require.NoError(t, err)
	reloaded, err := Load(data)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(reloaded))
}
