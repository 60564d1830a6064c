package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLocation Vertex AI 默认区域
	DefaultLocation = "us-central1"
	// DefaultSubject 报告邮件默认主题
	DefaultSubject = "AI-Powered Digital Market Analysis - July 2025 Predictions"
)

// Config 项目配置结构体，进程启动时构建一次并以指针传递
type Config struct {
	Provider    ProviderConfig    `yaml:"provider" toml:"provider"`
	Agent       AgentConfig       `yaml:"agent" toml:"agent"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	Delivery    DeliveryConfig    `yaml:"delivery" toml:"delivery"`
	Report      ReportConfig      `yaml:"report" toml:"report"`
	CatalogPath string            `yaml:"catalog_path" toml:"catalog_path"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" toml:"concurrency"`
}

// ProviderConfig AI 平台（Vertex AI）配置
type ProviderConfig struct {
	Project  string `yaml:"project" toml:"project"`
	Location string `yaml:"location" toml:"location"`
}

// AgentConfig 对话代理配置
type AgentConfig struct {
	Backend      string `yaml:"backend" toml:"backend" validate:"omitempty,oneof=gemini openai"`
	Model        string `yaml:"model" toml:"model"`
	MaxSteps     int    `yaml:"max_steps" toml:"max_steps" validate:"gte=0"`
	SystemPrompt string `yaml:"system_prompt" toml:"system_prompt"`
}

// LLMConfig OpenAI 兼容接口配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	APIKey  string `yaml:"api_key" toml:"api_key"`
	Model   string `yaml:"model" toml:"model"`
}

// DeliveryConfig 报告投递配置
type DeliveryConfig struct {
	Provider  string     `yaml:"provider" toml:"provider" validate:"omitempty,oneof=sendgrid smtp"`
	APIKey    string     `yaml:"api_key" toml:"api_key"`
	FromEmail string     `yaml:"from_email" toml:"from_email" validate:"omitempty,email"`
	FromName  string     `yaml:"from_name" toml:"from_name"`
	ToEmail   string     `yaml:"to_email" toml:"to_email"`
	Subject   string     `yaml:"subject" toml:"subject"`
	OutputDir string     `yaml:"output_dir" toml:"output_dir"`
	SMTP      SMTPConfig `yaml:"smtp" toml:"smtp"`
}

// SMTPConfig SMTP 通道配置，密码复用 DeliveryConfig.APIKey
type SMTPConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port" validate:"gte=0,lte=65535"`
	Username string `yaml:"username" toml:"username"`
}

// ReportConfig 报告渲染配置
type ReportConfig struct {
	Limits LimitsConfig `yaml:"limits" toml:"limits"`
}

// LimitsConfig 各预测板块的展示上限，0 表示使用默认值
type LimitsConfig struct {
	HotCategories         int `yaml:"hot_categories" toml:"hot_categories" validate:"gte=0"`
	TechnologyPredictions int `yaml:"technology_predictions" toml:"technology_predictions" validate:"gte=0"`
	OpportunityAreas      int `yaml:"opportunity_areas" toml:"opportunity_areas" validate:"gte=0"`
	SuccessStrategies     int `yaml:"success_strategies" toml:"success_strategies" validate:"gte=0"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// ConcurrencyConfig 模型调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps" toml:"qps" validate:"gte=0"`
	RPM int `yaml:"rpm" toml:"rpm" validate:"gte=0"`
}

// Load 加载配置：先读文件（可选），再叠加环境变量，最后补默认值并校验
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig 从指定路径加载配置，文件必须存在
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	return Load(path)
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	return nil
}

// ApplyEnv 用环境变量覆盖文件中的配置，lookup 一般为 os.LookupEnv
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&c.Delivery.APIKey, "SENDGRID_API_KEY")
	set(&c.Delivery.FromEmail, "FROM_EMAIL")
	set(&c.Delivery.ToEmail, "TO_EMAIL")
	set(&c.Provider.Project, "GOOGLE_CLOUD_PROJECT_ID")
	set(&c.Provider.Location, "GOOGLE_CLOUD_LOCATION")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.Log.Level, "MARKET_RADAR_LOG_LEVEL")
}

// ApplyDefaults 填充未设置的字段
func (c *Config) ApplyDefaults() {
	if c.Provider.Location == "" {
		c.Provider.Location = DefaultLocation
	}
	if c.Agent.Backend == "" {
		c.Agent.Backend = "gemini"
	}
	if c.Agent.Model == "" {
		c.Agent.Model = "gemini-2.0-flash"
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = 8
	}
	if c.Delivery.Provider == "" {
		c.Delivery.Provider = "sendgrid"
	}
	if c.Delivery.Subject == "" {
		c.Delivery.Subject = DefaultSubject
	}
	if c.Delivery.OutputDir == "" {
		c.Delivery.OutputDir = "."
	}
	if c.Delivery.SMTP.Port == 0 {
		c.Delivery.SMTP.Port = 587
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 30
	}
}

// Validate 校验配置字段格式
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DeliveryReady 投递所需的凭证和发件人是否齐全
func (c *DeliveryConfig) DeliveryReady() bool {
	return c.APIKey != "" && c.FromEmail != ""
}
