// Package config 加载 rxbench 配置：YAML 文件、.env 文件和 RXGO_* 环境变量
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 RXGO_BENCH_COUNT
const EnvPrefix = "RXGO"

// Config rxbench 的完整配置
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Bench   BenchConfig   `yaml:"bench" mapstructure:"bench"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string `yaml:"level" mapstructure:"level"`
	Format  string `yaml:"format" mapstructure:"format"`
	Output  string `yaml:"output" mapstructure:"output"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
}

// BenchConfig 基准场景参数
type BenchConfig struct {
	Sections  int           `yaml:"sections" mapstructure:"sections"`
	Count     int           `yaml:"count" mapstructure:"count"`
	Scheduler string        `yaml:"scheduler" mapstructure:"scheduler"`
	Period    time.Duration `yaml:"period" mapstructure:"period"`
	Ticks     int           `yaml:"ticks" mapstructure:"ticks"`
}

// MetricsConfig 调度器指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Meter   string `yaml:"meter" mapstructure:"meter"`
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
	if c.Bench.Sections == 0 {
		c.Bench.Sections = 10
	}
	if c.Bench.Count == 0 {
		c.Bench.Count = 100000
	}
	if c.Bench.Scheduler == "" {
		c.Bench.Scheduler = "current_thread"
	}
	if c.Bench.Period == 0 {
		c.Bench.Period = 100 * time.Millisecond
	}
	if c.Bench.Ticks == 0 {
		c.Bench.Ticks = 10
	}
	if c.Metrics.Meter == "" {
		c.Metrics.Meter = "github.com/xinjiayu/rxgo"
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	if !contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got: %s)", validLevels, c.Log.Level)
	}
	validFormats := []string{"json", "console", "pretty"}
	if !contains(validFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got: %s)", validFormats, c.Log.Format)
	}
	validSchedulers := []string{"immediate", "current_thread", "new_thread"}
	if !contains(validSchedulers, c.Bench.Scheduler) {
		return fmt.Errorf("bench.scheduler must be one of %v (got: %s)", validSchedulers, c.Bench.Scheduler)
	}
	if c.Bench.Sections < 1 {
		return fmt.Errorf("bench.sections must be positive (got: %d)", c.Bench.Sections)
	}
	if c.Bench.Count < 1 {
		return fmt.Errorf("bench.count must be positive (got: %d)", c.Bench.Count)
	}
	if c.Bench.Period <= 0 {
		return fmt.Errorf("bench.period must be positive (got: %s)", c.Bench.Period)
	}
	if c.Bench.Ticks < 1 {
		return fmt.Errorf("bench.ticks must be positive (got: %d)", c.Bench.Ticks)
	}
	return nil
}

// LoaderConfig 加载选项
type LoaderConfig struct {
	EnvFile string
}

// LoaderOption 加载函数的可选参数
type LoaderOption func(*LoaderConfig)

// WithEnvFile 指定 .env 文件；默认读取当前目录下的 .env（若存在）
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load 依次合并默认值、path 指定的配置文件、.env 文件与 RXGO_* 环境变量，
// 然后校验。path 为空时跳过配置文件。
func Load(path string, opts ...LoaderOption) (*Config, error) {
	lc := LoaderConfig{EnvFile: ".env"}
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.EnvFile != "" {
		// 已存在的环境变量优先于 .env
		if err := godotenv.Load(lc.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", lc.EnvFile, err)
		}
	}

	v := viper.New()
	var defaults Config
	defaults.ApplyDefaults()
	setDefaults(v, defaults)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 注册全部键，AutomaticEnv 只覆盖 viper 已知的键
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.no_color", d.Log.NoColor)
	v.SetDefault("bench.sections", d.Bench.Sections)
	v.SetDefault("bench.count", d.Bench.Count)
	v.SetDefault("bench.scheduler", d.Bench.Scheduler)
	v.SetDefault("bench.period", d.Bench.Period)
	v.SetDefault("bench.ticks", d.Bench.Ticks)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.meter", d.Metrics.Meter)
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
