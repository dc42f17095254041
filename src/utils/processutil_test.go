package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2011-01-03", "2011-01-03 17:30:00", "2011/01/03", "01/03/2011"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, "2011-01-03", d.Format("2006-01-02"), s)
	}

	for _, s := range []string{"", "NaN", "yesterday", "2011-13-45", "40544", "20110101", "7", "10000-01-01"} {
		_, err := ParseDate(s)
		assert.Error(t, err, s)
	}
}

func TestParseExcelDate(t *testing.T) {
	d, err := ParseExcelDate("40544")
	require.NoError(t, err)
	assert.Equal(t, "2011-01-01", d.Format("2006-01-02"))

	d, err = ParseExcelDate("2011-01-03")
	require.NoError(t, err)
	assert.Equal(t, "2011-01-03", d.Format("2006-01-02"))

	d, err = ParseExcelDate("2958465")
	require.NoError(t, err)
	assert.Equal(t, "9999-12-31", d.Format("2006-01-02"))

	for _, s := range []string{"0", "20110101", "999999999", "2958466", "-5", "yesterday"} {
		_, err := ParseExcelDate(s)
		assert.Error(t, err, s)
	}
}

func TestHasColumn(t *testing.T) {
	df := dataframe.LoadRecords([][]string{{"dteday", "cnt"}, {"2011-01-01", "5"}})
	assert.True(t, HasColumn(df, "cnt"))
	assert.False(t, HasColumn(df, "cnt_y_x"))
}

func TestSaveToExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	sheets := []Sheet{
		{Name: "preview", Records: [][]string{{"dteday", "cnt"}, {"2011-01-01", "985"}}},
		{Name: "season/mean", Records: [][]string{{"season", "mean(count)"}, {"Spring", "15"}}},
	}
	require.NoError(t, SaveToExcel(sheets, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"preview", "season_mean"}, f.GetSheetList())
	v, err := f.GetCellValue("preview", "B2")
	require.NoError(t, err)
	assert.Equal(t, "985", v)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet3", sheetName("", 2))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40), 0)), 31)
}
