// 包 config 负责加载与校验应用配置：
// settings.yaml（可选）→ .env（可选）→ 环境变量覆盖，最后 Validate 填充默认值。
// 得到的 *Config 显式传入流程，不使用全局状态。
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-wod-trmnl/internal/model"
)

// Config 为运行所需的全部配置。
type Config struct {
	WebhookURL  string   `yaml:"TRMNL_WEBHOOK_URL"`
	CSVFile     string   `yaml:"CSV_FILE"`
	WorkoutDate string   `yaml:"WORKOUT_DATE"` // YYYY-MM-DD，空为今天
	Overwrite   bool     `yaml:"OVERWRITE_CSV"`
	BaseURL     string   `yaml:"BASE_URL"`
	FeedURL     string   `yaml:"FEED_URL"`
	Database    Database `yaml:"DATABASE"`
	RulesFile   string   `yaml:"RULES_FILE"`
	Theme       string   `yaml:"THEME"`
	MetricsFile string   `yaml:"METRICS_FILE"`
	Retry       int      `yaml:"RETRY"`
	TimeoutSec  int      `yaml:"TIMEOUT_SECONDS"`
	Proxy       Proxy    `yaml:"PROXY"`
	LogLevel    string   `yaml:"LOG_LEVEL"`
	LogFormat   string   `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale   string   `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor    string   `yaml:"LOG_COLOR"`  // auto|always|never
}

type Database struct {
	DSN string `yaml:"dsn"` // 为空则不启用 SQLite
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 读取 YAML（path 为空则跳过）、加载 .env 并应用环境变量覆盖。
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	// .env 不覆盖已存在的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// ApplyEnv 用非空环境变量覆盖配置项。
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("TRMNL_WEBHOOK_URL", &c.WebhookURL)
	str("CROSSFIT_CSV_FILE", &c.CSVFile)
	str("WORKOUT_DATE", &c.WorkoutDate)
	str("WOD_BASE_URL", &c.BaseURL)
	str("WOD_FEED_URL", &c.FeedURL)
	str("WOD_DB", &c.Database.DSN)
	str("WOD_RULES", &c.RulesFile)
	str("WOD_THEME", &c.Theme)
	str("WOD_METRICS_FILE", &c.MetricsFile)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("LOG_LOCALE", &c.LogLocale)
	str("LOG_COLOR", &c.LogColor)
	if v := strings.TrimSpace(getenv("OVERWRITE_CSV")); v != "" {
		c.Overwrite = strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(getenv("WOD_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry = n
		}
	}
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	if c.CSVFile == "" {
		c.CSVFile = "crossfit_workouts.csv"
	}
	if c.BaseURL == "" {
		c.BaseURL = model.DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid BASE_URL: %q", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.WebhookURL != "" {
		if w, err := url.Parse(c.WebhookURL); err != nil || w.Host == "" {
			return fmt.Errorf("invalid TRMNL_WEBHOOK_URL: %q", c.WebhookURL)
		}
	}
	if c.Retry < 0 {
		c.Retry = 2
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 25
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "en"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	// WORKOUT_DATE 格式错误不在此处报错，由流程告警后回退为今天
	return nil
}
