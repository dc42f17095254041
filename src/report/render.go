// render.go
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"BikeSharing/src/processor"
	"BikeSharing/src/utils"
)

// WriteText 以对齐的纯文本输出报表
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintf(tw, "数据源:\t%s\n", r.Source)
	fmt.Fprintf(tw, "聚合方式:\t%s\n", r.Reducer)
	if r.MinDate != "" {
		fmt.Fprintf(tw, "日期范围:\t%s ~ %s\n", r.MinDate, r.MaxDate)
	}
	fmt.Fprintf(tw, "筛选后行数:\t%d\n", r.Rows)
	if r.Total != nil {
		fmt.Fprintf(tw, "总租借量:\t%s\n", formatValue(*r.Total))
	}
	for _, msg := range r.Warnings {
		fmt.Fprintf(tw, "警告:\t%s\n", msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Empty {
		_, err := fmt.Fprintln(w, "\n所选条件下没有数据")
		return err
	}

	if len(r.Preview) > 0 {
		fmt.Fprintln(w, "\n[数据预览]")
		for _, rec := range r.Preview {
			fmt.Fprintln(tw, strings.Join(rec, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, s := range r.Sections {
		fmt.Fprintf(w, "\n[%s]\n", s.Title)
		if s.Table == nil {
			fmt.Fprintf(w, "不可用: %s\n", s.Err)
			continue
		}
		if err := WriteTable(w, s.Table); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable 输出单张汇总表
func WriteTable(w io.Writer, t *processor.SummaryTable) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s(%s)\t行数\t\n", t.Group, t.Reducer, t.Measure)
	for _, row := range t.Rows {
		v := "-"
		if !row.Missing {
			v = formatValue(row.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", row.Key, v, row.Count)
	}
	return tw.Flush()
}

// Markdown 推送用的 markdown 摘要
func (r *Report) Markdown() (title, text string) {
	title = "共享单车报表 " + r.GeneratedAt.Format("2006-01-02 15:04")

	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", title)
	fmt.Fprintf(&b, "- 数据源: %s\n", filepath.Base(r.Source))
	fmt.Fprintf(&b, "- 聚合方式: %s\n", r.Reducer)
	if r.MinDate != "" {
		fmt.Fprintf(&b, "- 日期范围: %s ~ %s\n", r.MinDate, r.MaxDate)
	}
	fmt.Fprintf(&b, "- 筛选后行数: %d\n", r.Rows)
	if r.Total != nil {
		fmt.Fprintf(&b, "- 总租借量: %s\n", formatValue(*r.Total))
	}
	if r.Empty {
		b.WriteString("\n> 所选条件下没有数据\n")
	}

	for _, s := range r.Sections {
		// 每日趋势行数太多，推送里省略
		if s.Table == nil || s.Name == "daily" {
			continue
		}
		fmt.Fprintf(&b, "\n#### %s\n", s.Title)
		for _, row := range s.Table.Rows {
			if row.Missing {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", row.Key, formatValue(row.Value))
		}
	}

	for _, msg := range r.Warnings {
		fmt.Fprintf(&b, "\n> 警告: %s", msg)
	}
	return title, b.String()
}

// Sheets 每节一张工作表，第一张为预览
func (r *Report) Sheets() []utils.Sheet {
	var sheets []utils.Sheet
	if len(r.Preview) > 0 {
		sheets = append(sheets, utils.Sheet{Name: "preview", Records: r.Preview})
	}
	for _, s := range r.Sections {
		if s.Table == nil {
			continue
		}
		sheets = append(sheets, utils.Sheet{Name: s.Name, Records: s.Table.Records()})
	}
	return sheets
}

// Export 写出 xlsx
func (r *Report) Export(filePath string) error {
	sheets := r.Sheets()
	if len(sheets) == 0 {
		return fmt.Errorf("报表为空，无法导出: %w", processor.ErrEmptyResult)
	}
	return utils.SaveToExcel(sheets, filePath)
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
