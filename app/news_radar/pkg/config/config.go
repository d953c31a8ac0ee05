package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultQueries 默认抓取的西语新闻关键词
var DefaultQueries = []string{
	"Venezuela Caracas explosiones",
	"Maduro capturado detenido",
	"Venezuela ataque militar",
	"Trump Venezuela invasion",
	"Venezuela ultimas noticias hoy",
	"Caracas bombardeo",
	"Venezuela EEUU conflicto",
	"Maduro arrestado",
}

// Config 项目配置结构体
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DB          DBConfig          `yaml:"db"`
	Log         LogConfig         `yaml:"log"`
	LLM         LLMConfig         `yaml:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Facts       FactsConfig       `yaml:"facts"`
	Unify       UnifyConfig       `yaml:"unify"`
	Archive     ArchiveConfig     `yaml:"archive"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	Timeout     time.Duration `yaml:"timeout"`
	CORSOrigins []string      `yaml:"cors_origins"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	Source string `yaml:"source"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider string        `yaml:"provider"` // openai (OpenAI 兼容接口, 包括 Gemini) or cohere
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Enabled 是否配置了 LLM
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// FetchConfig 抓取相关配置
type FetchConfig struct {
	Interval   time.Duration    `yaml:"interval"`
	RunOnStart bool             `yaml:"run_on_start"`
	Timeout    time.Duration    `yaml:"timeout"` // 每个新闻源整轮查询的时限
	Language   string           `yaml:"language"`
	MaxResults int              `yaml:"max_results"`
	Queries    []string         `yaml:"queries"`
	Providers  []ProviderConfig `yaml:"providers"`
	Extract    ExtractConfig    `yaml:"extract"`
}

// ProviderConfig 单个新闻源配置，按顺序作为主源/备用源
type ProviderConfig struct {
	Name     string        `yaml:"name"` // newsdata, apify, tavily, searxng, rss
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Actor    string        `yaml:"actor"`
	Feeds    []string      `yaml:"feeds"`
	Keywords []string      `yaml:"keywords"` // 仅 rss: 标题或摘要包含任一关键词才保留
	Timeout  time.Duration `yaml:"timeout"`
}

// ExtractConfig 正文补全配置
type ExtractConfig struct {
	Enabled   bool          `yaml:"enabled"`
	MinLength int           `yaml:"min_length"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AnalysisConfig 标注相关配置
type AnalysisConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxPerRun int           `yaml:"max_per_run"`
}

// FactsConfig 事实摘要配置
type FactsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MaxArticles     int           `yaml:"max_articles"`
	Cache           CacheConfig   `yaml:"cache"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Driver   string        `yaml:"driver"` // memory or redis
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// UnifyConfig 实体合并配置
type UnifyConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ArchiveConfig 原始文章归档配置
type ArchiveConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// LoadConfig 从指定路径加载配置，文件不存在时只使用环境变量和默认值
func LoadConfig(path string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.DB.Source, "DATABASE_URL")
	setString(&c.DB.Driver, "DB_DRIVER")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Facts.Cache.Addr, "REDIS_ADDR")
	setString(&c.Archive.Bucket, "S3_BUCKET")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.Addr, "HTTP_ADDR")

	if v := os.Getenv("COHERE_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.Provider = "cohere"
		c.LLM.APIKey = v
	}
	if v := os.Getenv("FETCH_INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid FETCH_INTERVAL_MINUTES %q", v)
		}
		c.Fetch.Interval = time.Duration(n) * time.Minute
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitCSV(v)
	}
	if c.Facts.Cache.Addr != "" && c.Facts.Cache.Driver == "" {
		c.Facts.Cache.Driver = "redis"
	}

	// 环境变量中的 key 会补充或新增对应的新闻源
	c.envProvider("newsdata", "NEWSDATA_API_KEY", func(p *ProviderConfig, v string) { p.APIKey = v })
	c.envProvider("apify", "APIFY_API_KEY", func(p *ProviderConfig, v string) { p.APIKey = v })
	c.envProvider("tavily", "TAVILY_API_KEY", func(p *ProviderConfig, v string) { p.APIKey = v })
	c.envProvider("searxng", "SEARXNG_URL", func(p *ProviderConfig, v string) { p.BaseURL = v })
	return nil
}

func (c *Config) envProvider(name, key string, set func(*ProviderConfig, string)) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	for i := range c.Fetch.Providers {
		if c.Fetch.Providers[i].Name == name {
			set(&c.Fetch.Providers[i], v)
			return
		}
	}
	p := ProviderConfig{Name: name}
	set(&p, v)
	c.Fetch.Providers = append(c.Fetch.Providers, p)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:8000"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.DB.Driver == "" {
		if strings.HasPrefix(c.DB.Source, "postgres") {
			c.DB.Driver = "postgres"
		} else {
			c.DB.Driver = "sqlite"
		}
	}
	if c.DB.Source == "" && c.DB.Driver == "sqlite" {
		c.DB.Source = "data/news_radar.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "cohere":
			c.LLM.Model = "command-r-plus"
		default:
			c.LLM.Model = "gemini-2.5-flash"
		}
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == "openai" {
		c.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Fetch.Interval == 0 {
		c.Fetch.Interval = 10 * time.Minute
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.Language == "" {
		c.Fetch.Language = "es"
	}
	if c.Fetch.MaxResults == 0 {
		c.Fetch.MaxResults = 50
	}
	if len(c.Fetch.Queries) == 0 {
		c.Fetch.Queries = append([]string(nil), DefaultQueries...)
	}
	if c.Fetch.Extract.MinLength == 0 {
		c.Fetch.Extract.MinLength = 500
	}
	if c.Fetch.Extract.Workers == 0 {
		c.Fetch.Extract.Workers = 5
	}
	if c.Fetch.Extract.Timeout == 0 {
		c.Fetch.Extract.Timeout = 30 * time.Second
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 45 * time.Second
	}
	if c.Facts.RefreshInterval == 0 {
		c.Facts.RefreshInterval = 2 * time.Hour
	}
	if c.Facts.MaxArticles == 0 {
		c.Facts.MaxArticles = 30
	}
	if c.Facts.Cache.Driver == "" {
		c.Facts.Cache.Driver = "memory"
	}
	if c.Facts.Cache.TTL == 0 {
		c.Facts.Cache.TTL = 2 * time.Hour
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "articles/"
	}
}

var knownProviders = map[string]bool{
	"newsdata": true,
	"apify":    true,
	"tavily":   true,
	"searxng":  true,
	"rss":      true,
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown db driver: %s", c.DB.Driver)
	}
	if c.DB.Source == "" {
		return fmt.Errorf("db source is missing")
	}
	switch c.LLM.Provider {
	case "openai", "cohere":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.Fetch.Interval < 0 {
		return fmt.Errorf("fetch interval must be positive")
	}
	for _, p := range c.Fetch.Providers {
		if !knownProviders[p.Name] {
			return fmt.Errorf("unknown fetch provider: %s", p.Name)
		}
	}
	switch c.Facts.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown facts cache driver: %s", c.Facts.Cache.Driver)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
