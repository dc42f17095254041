package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// 支持的日期格式，按顺序尝试
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"1/2/2006",
	"1/2/06",
}

// 匹配Excel序列号形式的日期
var excelSerial = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Excel序列号的有效范围，上限对应 9999-12-31
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate 解析日期，只保留日历日
// 只接受 dateFormats 中的文本格式，纯数字一律视为无效
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return time.Time{}, fmt.Errorf("日期为空")
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %q", s)
}

// ParseExcelDate 在 ParseDate 的基础上接受Excel序列号，只用于 xlsx 单元格
func ParseExcelDate(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err == nil {
		return t, nil
	}
	s = strings.TrimSpace(s)
	if !excelSerial.MatchString(s) {
		return time.Time{}, err
	}
	days, perr := strconv.ParseFloat(s, 64)
	if perr != nil || days < minExcelSerial || days >= maxExcelSerial+1 {
		return time.Time{}, fmt.Errorf("Excel日期序列号超出范围: %q", s)
	}
	return excelToTime(days), nil
}

// excelToTime Excel序列号转日期
func excelToTime(excelDays float64) time.Time {
	// 处理Excel的1900年闰年错误（2月29日不存在）
	if excelDays >= 60 {
		excelDays -= 1
	}
	base := time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(excelDays))
}

// Sheet 导出到Excel的一个工作表，Records第一行为表头
type Sheet struct {
	Name    string
	Records [][]string
}

// SaveToExcel 将多个二维表保存为一个Excel文件，每个表一个工作表
func SaveToExcel(sheets []Sheet, filePath string) error {
	if len(sheets) == 0 {
		return fmt.Errorf("没有可导出的数据")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		name := sheetName(sheet.Name, i)

		// 第一个表复用默认的Sheet1
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("创建工作表失败: %w", err)
		}

		// 写入数据
		for rowIdx, row := range sheet.Records {
			for colIdx, val := range row {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err := f.SetCellValue(name, cell, val); err != nil {
					return fmt.Errorf("写入单元格 %s 失败: %w", cell, err)
				}
			}
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// Excel工作表名最长31个字符，且不能包含 : \ / ? * [ ]
func sheetName(name string, idx int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}
