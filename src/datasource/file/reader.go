// reader.go
package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"BikeSharing/src/processor"
)

// ReadOptions 读取参数
type ReadOptions struct {
	Candidates processor.Candidates // 逻辑字段候选列
	SheetName  string               // xlsx 工作表名，为空时取第一个
}

// ReadDataset 根据扩展名读取 CSV 或 XLSX 文件
func ReadDataset(filePath string, opts ReadOptions) (*processor.Dataset, error) {
	var (
		df     dataframe.DataFrame
		err    error
		dsOpts []processor.DatasetOption
	)

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		df, err = ReadXLSX(filePath, opts.SheetName)
		dsOpts = append(dsOpts, processor.WithExcelSerialDates())
	default:
		df, err = ReadCSV(filePath)
	}
	if err != nil {
		return nil, err
	}

	return processor.NewDataset(df, opts.Candidates, filePath, dsOpts...)
}

// ReadCSV 读取逗号分隔文件，第一行为表头
func ReadCSV(filePath string) (dataframe.DataFrame, error) {
	f, err := openFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	return decodeCSV(f)
}

func decodeCSV(r io.Reader) (dataframe.DataFrame, error) {
	// 兼容带 BOM 的 UTF-8 文件
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", processor.ErrParse, err)
	}

	// 只有表头时返回零行的数据表，而不是解析错误
	if header, ok := headerOnly(data); ok {
		return emptyFrame(header), nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	if df.Err != nil {
		return df, fmt.Errorf("%w: %v", processor.ErrParse, df.Err)
	}
	return df, nil
}

// headerOnly 判断内容是否只有一行表头
func headerOnly(data []byte) ([]string, bool) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 1 {
		return nil, false
	}
	return records[0], true
}

func emptyFrame(header []string) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

func openFile(filePath string) (*os.File, error) {
	f, err := os.Open(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", processor.ErrFileNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("打开文件 %s 失败: %w", filePath, err)
	}
	return f, nil
}

// ReadXLSX 读取工作表为 DataFrame，第一行为表头
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s", processor.ErrFileNotFound, filePath)
	}

	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", processor.ErrParse, err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel文件中没有工作表", processor.ErrParse)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("%w: 工作表 %s 不存在", processor.ErrParse, sheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: 工作表 %s 为空", processor.ErrParse, sheet.Name)
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}

	records := make([][]string, 0, len(sheet.Rows))
	records = append(records, headers)

	// 填充数据(从第二行开始)，短行补空
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		rec := make([]string, len(headers))
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				rec[i] = cell.String()
			}
		}
		records = append(records, rec)
	}

	// 自动推断类型
	df := dataframe.LoadRecords(records, dataframe.DetectTypes(true))
	if df.Err != nil {
		return df, fmt.Errorf("%w: %v", processor.ErrParse, df.Err)
	}
	return df, nil
}
