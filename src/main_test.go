package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BikeSharing/src/processor"
)

const rentalsCSV = `dteday,hr,season,weathersit,cnt
2011-01-01,0,1,1,10
2011-01-01,1,1,2,20
2011-06-01,0,3,1,30
2011-06-02,5,3,1,40
`

// writeWorkspace 准备配置目录和数据文件，返回配置目录
func writeWorkspace(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "rentals.csv")
	require.NoError(t, os.WriteFile(data, []byte(rentalsCSV), 0644))

	cfg := fmt.Sprintf(`{
		"data_path": %q,
		"log_name": %q,
		"export_dir": %q%s
	}`, data, filepath.Join(dir, "logs", "app.log"), filepath.Join(dir, "export"), extra)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(`{}`), 0644))
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestReportRequiresReducer(t *testing.T) {
	dir := writeWorkspace(t, "")

	_, err := execute(t, dir, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reducer")

	_, err = execute(t, dir, "report", "--reducer", "median")
	assert.ErrorIs(t, err, processor.ErrInvalidReducer)
}

func TestReportText(t *testing.T) {
	dir := writeWorkspace(t, "")

	out, err := execute(t, dir, "report", "--reducer", "sum")
	require.NoError(t, err)
	assert.Contains(t, out, "季节模式")
	assert.Contains(t, out, "Spring")
	assert.Contains(t, out, "星期分布")
}

func TestReportEmptySeasonSelection(t *testing.T) {
	dir := writeWorkspace(t, "")

	out, err := execute(t, dir, "report", "--reducer", "mean", "--season=")
	require.NoError(t, err)
	assert.Contains(t, out, "所选条件下没有数据")

	out, err = execute(t, dir, "report", "--reducer", "mean", "--json", "--season", "Summer")
	require.NoError(t, err)
	var body struct {
		Empty bool `json:"empty"`
		Rows  int  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.True(t, body.Empty)
	assert.Zero(t, body.Rows)
}

func TestReportInvalidRange(t *testing.T) {
	dir := writeWorkspace(t, "")

	_, err := execute(t, dir, "report", "--reducer", "sum", "--start", "2011-06-01", "--end", "2011-01-01")
	assert.ErrorIs(t, err, processor.ErrInvalidDateRange)
}

func TestReportExport(t *testing.T) {
	dir := writeWorkspace(t, "")
	target := filepath.Join(dir, "out", "report.xlsx")

	_, err := execute(t, dir, "report", "--reducer", "sum", "--xlsx", target)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestSummaryCommand(t *testing.T) {
	dir := writeWorkspace(t, "")

	out, err := execute(t, dir, "summary", "--group", "hour", "--reducer", "sum", "--canonical", "--json")
	require.NoError(t, err)
	var raw struct {
		Rows []json.RawMessage `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	assert.Len(t, raw.Rows, 24)

	out, err = execute(t, dir, "summary", "--group", "season", "--reducer", "mean", "--weather", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Spring")
	assert.Contains(t, out, "Fall")

	_, err = execute(t, dir, "summary", "--reducer", "sum")
	assert.Error(t, err)
}

func TestScheduleRequiresReducer(t *testing.T) {
	dir := writeWorkspace(t, "")

	_, err := execute(t, dir, "schedule", "--interval", "1h")
	assert.ErrorIs(t, err, processor.ErrInvalidReducer)
}

func TestDeliver(t *testing.T) {
	var calls int32
	robot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer robot.Close()

	dir := writeWorkspace(t, fmt.Sprintf(`, "push": {"webhook": %q, "retry_interval": "1ms"}`, robot.URL))
	a, err := newApp(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.deliver(context.Background(), processor.Criteria{}, processor.ReducerSum))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	exported, err := filepath.Glob(filepath.Join(dir, "export", "report_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, exported, 1)

	err = a.deliver(context.Background(), processor.Criteria{}, "")
	assert.ErrorIs(t, err, processor.ErrInvalidReducer)
}
