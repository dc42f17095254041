package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"BikeSharing/src/processor"
)

// Config 结构体定义了应用程序的运行配置
type Config struct {
	DataPath   string `json:"data_path"`    // 数据文件路径(csv/xlsx)
	SheetName  string `json:"sheet_name"`   // xlsx 工作表名
	LogoPath   string `json:"logo_path"`    // 可选的图片，缺失只告警
	LogName    string `json:"log_name"`     // 日志文件
	LogMaxSize string `json:"log_max_size"` // 日志轮转阈值，如 "10 * 1024 * 1024"
	ExportDir  string `json:"export_dir"`   // 报表导出目录

	Server struct {
		Addr string `json:"addr"`
	} `json:"server"`

	Schedule struct {
		Interval Duration `json:"interval"` // 定时生成报表的间隔
		Reducer  string   `json:"reducer"`  // mean 或 sum，必须填写
	} `json:"schedule"`

	Push struct {
		Webhook       string   `json:"webhook"`        // 机器人 webhook 地址
		RetryTimes    int      `json:"retry_times"`    // 失败重试次数
		RetryInterval Duration `json:"retry_interval"` // 重试间隔
	} `json:"push"`

	SendEmail struct {
		Server   string   `json:"server"`   // SMTP服务器地址
		Username string   `json:"username"` // 发件邮箱
		Password string   `json:"password"` // 授权码
		To       []string `json:"to"`       // 收件人
		Subject  string   `json:"subject"`  // 邮件主题
	} `json:"send_email"`
}

// DataConfig 数据含义相关的配置
type DataConfig struct {
	Columns map[string][]string `json:"columns"` // 逻辑字段 -> 候选列名
	Season  map[string]string   `json:"season"`  // 编码 -> 标签
	Weather map[string]string   `json:"weather"`
	Bins    struct {
		Measure string    `json:"measure"`
		Edges   []float64 `json:"edges"`
		Labels  []string  `json:"labels"`
		UpToMax bool      `json:"up_to_max"` // 最后一个边界取度量列最大值
	} `json:"bins"`
}

// 环境变量覆盖项
const (
	EnvDataPath   = "BIKESHARE_DATA_PATH"
	EnvLogName    = "BIKESHARE_LOG_NAME"
	EnvServerAddr = "BIKESHARE_ADDR"
)

// LoadConfig 读取两个配置文件，再用 .env 和环境变量覆盖
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	cfg, dcfg, err := loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		return nil, nil, err
	}

	// .env 不存在不算错误
	if err := godotenv.Load(filepath.Join(jsonFolder, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("读取 .env 失败: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, dcfg, nil
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataPath); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv(EnvLogName); v != "" {
		c.LogName = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.ExportDir == "" {
		c.ExportDir = "export"
	}
	if c.Push.RetryTimes <= 0 {
		c.Push.RetryTimes = 3
	}
	if c.Push.RetryInterval <= 0 {
		c.Push.RetryInterval = Duration(2 * time.Second)
	}
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Candidates 配置的候选列，未配置的字段沿用默认值
func (dc *DataConfig) Candidates() processor.Candidates {
	out := make(processor.Candidates, len(processor.DefaultCandidates)+len(dc.Columns))
	for f, names := range processor.DefaultCandidates {
		out[f] = names
	}
	for f, names := range dc.Columns {
		out[processor.Field(f)] = names
	}
	return out
}

func (dc *DataConfig) SeasonLabels() (processor.Labels, error) {
	return toLabels(dc.Season, processor.SeasonLabels)
}

func (dc *DataConfig) WeatherLabels() (processor.Labels, error) {
	return toLabels(dc.Weather, processor.WeatherLabels)
}

func toLabels(m map[string]string, fallback processor.Labels) (processor.Labels, error) {
	if len(m) == 0 {
		return fallback, nil
	}
	out := make(processor.Labels, len(m))
	for k, v := range m {
		code, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("标签编码 %q 不是整数: %w", k, err)
		}
		out[code] = v
	}
	return out, nil
}

// BinSpec 分箱配置，未配置时返回 false
func (dc *DataConfig) BinSpec() (processor.BinSpec, bool) {
	if len(dc.Bins.Edges) == 0 {
		return processor.BinSpec{}, false
	}
	measure := dc.Bins.Measure
	if measure == "" {
		measure = string(processor.FieldCount)
	}
	return processor.BinSpec{
		Measure: processor.Field(measure),
		Edges:   append([]float64(nil), dc.Bins.Edges...),
		Labels:  append([]string(nil), dc.Bins.Labels...),
		Column:  measure + "_bin",
	}, true
}

// BinsUpToMax 最后一个边界是否取最大值
func (dc *DataConfig) BinsUpToMax() bool { return dc.Bins.UpToMax }
