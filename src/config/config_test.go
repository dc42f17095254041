package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BikeSharing/src/processor"
)

const configJSON = `{
	"data_path": "data/merged_data.csv",
	"logo_path": "data/logo.jpg",
	"log_max_size": "10 * 1024 * 1024",
	"schedule": {"interval": "1h", "reducer": "sum"},
	"push": {"webhook": "http://localhost/robot", "retry_interval": "500ms"}
}`

const dataConfigJSON = `{
	"columns": {"count": ["cnt_y_x", "cnt"]},
	"season": {"1": "Spring", "2": "Summer", "3": "Fall", "4": "Winter"},
	"bins": {"edges": [0, 100, 200, 300, 400, 0], "labels": ["Very Low", "Low", "Medium", "High", "Very High"], "up_to_max": true}
}`

func writeConfigs(t *testing.T, cfg, dcfg string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dcfg), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfigs(t, configJSON, dataConfigJSON)

	cfg, dcfg, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "data/merged_data.csv", cfg.DataPath)
	assert.Equal(t, time.Hour, time.Duration(cfg.Schedule.Interval))
	assert.Equal(t, 500*time.Millisecond, time.Duration(cfg.Push.RetryInterval))
	assert.Equal(t, "app.log", cfg.LogName)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Push.RetryTimes)

	c := dcfg.Candidates()
	assert.Equal(t, []string{"cnt_y_x", "cnt"}, c[processor.FieldCount])
	assert.Equal(t, processor.DefaultCandidates[processor.FieldDate], c[processor.FieldDate])

	spec, ok := dcfg.BinSpec()
	require.True(t, ok)
	assert.Equal(t, processor.FieldCount, spec.Measure)
	assert.Len(t, spec.Labels, 5)
	assert.True(t, dcfg.BinsUpToMax())

	weather, err := dcfg.WeatherLabels()
	require.NoError(t, err)
	assert.Equal(t, processor.WeatherLabels, weather)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfigs(t, configJSON, dataConfigJSON)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvServerAddr+"=:9090\n"), 0644))
	t.Setenv(EnvDataPath, "/tmp/hour.csv")
	t.Cleanup(func() { os.Unsetenv(EnvServerAddr) })

	cfg, _, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hour.csv", cfg.DataPath)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadConfigUnreadableDotEnv(t *testing.T) {
	dir := writeConfigs(t, configJSON, dataConfigJSON)
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0755))

	_, _, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env")
}

func TestLoadConfigErrors(t *testing.T) {
	_, _, err := LoadConfig(t.TempDir(), "config.json", "dataconfig.json")
	assert.Error(t, err)

	dir := writeConfigs(t, "{", "{")
	_, _, err = LoadConfig(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "多个错误")
}

func TestLabelsFromConfig(t *testing.T) {
	dc := &DataConfig{Season: map[string]string{"x": "Spring"}}
	_, err := dc.SeasonLabels()
	assert.Error(t, err)

	dc = &DataConfig{Season: map[string]string{"1": "Musim Semi"}}
	l, err := dc.SeasonLabels()
	require.NoError(t, err)
	assert.Equal(t, "Musim Semi", l[1])
}

func TestDurationJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, d, back)
}
