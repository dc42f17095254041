package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"BikeSharing/src/processor"
)

const dayCSV = "instant,dteday,season,weathersit,temp,cnt\n" +
	"1,2011-01-01,1,2,0.344167,985\n" +
	"2,2011-01-02,1,2,0.363478,801\n" +
	"3,31/31/2011,1,1,0.196364,1349\n" +
	"4,2011-01-04,1,1,0.2,1562\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadDatasetCSV(t *testing.T) {
	path := writeFile(t, "day.csv", dayCSV)

	ds, err := ReadDataset(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 1, ds.Dropped())
	assert.Equal(t, path, ds.Source())

	// 缺少小时列只是报告，不影响加载
	assert.Contains(t, ds.Schema().Missing(), processor.FieldHour)
}

func TestReadDatasetBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", "\ufeff"+dayCSV)

	ds, err := ReadDataset(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "instant", ds.Names()[0])
	assert.True(t, ds.Schema().Has(processor.FieldDate))
}

func TestReadDatasetNotFound(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{})
	assert.ErrorIs(t, err, processor.ErrFileNotFound)

	_, err = ReadDataset(filepath.Join(t.TempDir(), "missing.xlsx"), ReadOptions{})
	assert.ErrorIs(t, err, processor.ErrFileNotFound)
}

func TestReadDatasetParseError(t *testing.T) {
	path := writeFile(t, "broken.csv", "dteday,cnt\n2011-01-01,1,extra\n")
	_, err := ReadDataset(path, ReadOptions{})
	assert.ErrorIs(t, err, processor.ErrParse)

	path = writeFile(t, "empty.csv", "")
	_, err = ReadDataset(path, ReadOptions{})
	assert.ErrorIs(t, err, processor.ErrParse)
}

func TestReadDatasetHeaderOnly(t *testing.T) {
	path := writeFile(t, "header.csv", "\ufeffdteday,hr,season,weathersit,cnt\n")
	ds, err := ReadDataset(path, ReadOptions{})
	require.NoError(t, err)
	assert.True(t, ds.Empty())
	assert.Zero(t, ds.Dropped())
	assert.Equal(t, []string{"dteday", "hr", "season", "weathersit", "cnt"}, ds.Names())

	_, err = processor.Filter(ds, processor.Criteria{})
	assert.ErrorIs(t, err, processor.ErrEmptyResult)
}

func TestReadDatasetXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"dteday", "season", "cnt_y_x"},
		{"2011-01-01", 1, 985},
		{"2011-01-02", 3, 801},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := ReadDataset(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	total, err := processor.Reduce(ds, processor.FieldCount, processor.ReducerSum)
	require.NoError(t, err)
	assert.Equal(t, 1786.0, total)

	_, err = ReadDataset(path, ReadOptions{SheetName: "nope"})
	assert.ErrorIs(t, err, processor.ErrParse)
}

func TestLoaderMemoizes(t *testing.T) {
	first := writeFile(t, "a.csv", dayCSV)
	second := writeFile(t, "b.csv", dayCSV)
	l := NewLoader(ReadOptions{})

	a1, err := l.Load(first)
	require.NoError(t, err)
	a2, err := l.Load(first)
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, l.Reads())

	b, err := l.Load(second)
	require.NoError(t, err)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, l.Reads())

	// 换回原路径需要重新读取
	_, err = l.Load(first)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Reads())

	l.Invalidate()
	_, err = l.Load(first)
	require.NoError(t, err)
	assert.Equal(t, 4, l.Reads())
}

func TestLoaderDoesNotCacheFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.csv")
	l := NewLoader(ReadOptions{})

	_, err := l.Load(path)
	assert.ErrorIs(t, err, processor.ErrFileNotFound)

	require.NoError(t, os.WriteFile(path, []byte(dayCSV), 0644))
	ds, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
}

func TestFileMonitor(t *testing.T) {
	path := writeFile(t, "day.csv", dayCSV)
	other := filepath.Join(filepath.Dir(path), "other.csv")

	monitor, err := NewFileMonitor(path)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan string, 1)
	go monitor.Watch(ctx, func(p string) {
		select {
		case changed <- p:
		default:
		}
	})

	// 修改时间需要前进
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte(dayCSV+"5,2011-01-05,1,1,0.2,1600\n"), 0644))
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case p := <-changed:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-ctx.Done():
		t.Fatal("没有收到文件变更事件")
	}
}
