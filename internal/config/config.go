package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tweet_monitor/internal/domain"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Voice    VoiceConfig    `yaml:"voice"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
}

// RabbitMQConfig has no default URL: an empty URL disables the realtime
// channel.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type TwitterConfig struct {
	BaseURL     string        `yaml:"base_url"`
	BearerToken string        `yaml:"bearer_token"`
	MaxResults  int           `yaml:"max_results"`
	Timeout     time.Duration `yaml:"timeout"`
	Retry       RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait"`
}

type VoiceConfig struct {
	Domestic      DomesticConfig      `yaml:"domestic"`
	International InternationalConfig `yaml:"international"`
	MaxMessageLen int                 `yaml:"max_message_len"`
}

// DomesticConfig configures the Dyvms TTS calls used for mainland numbers.
// An empty endpoint uses the public Dyvms endpoint.
type DomesticConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	AccessKey    string        `yaml:"access_key"`
	AccessSecret string        `yaml:"access_secret"`
	CallerNumber string        `yaml:"caller_number"`
	TemplateID   string        `yaml:"template_id"`
	Prefixes     []string      `yaml:"prefixes"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Enabled reports whether the full credential set is present.
func (d DomesticConfig) Enabled() bool {
	return d.AccessKey != "" && d.AccessSecret != "" &&
		d.CallerNumber != "" && d.TemplateID != ""
}

type InternationalConfig struct {
	AccountSID        string        `yaml:"account_sid"`
	AuthToken         string        `yaml:"auth_token"`
	FromNumber        string        `yaml:"from_number"`
	StatusCallbackURL string        `yaml:"status_callback_url"`
	Timeout           time.Duration `yaml:"timeout"`
}

func (i InternationalConfig) Enabled() bool {
	return i.AccountSID != "" && i.AuthToken != "" && i.FromNumber != ""
}

type MonitorConfig struct {
	// TickInterval drives the built-in trigger in serve mode. Zero disables it.
	TickInterval time.Duration `yaml:"tick_interval"`
	Concurrency  int           `yaml:"concurrency"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	TriggerToken string        `yaml:"trigger_token"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment references in raw YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate reports missing settings that make any run impossible.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if c.Database.DBName == "" {
		missing = append(missing, "database.dbname")
	}
	if c.Twitter.BearerToken == "" {
		missing = append(missing, "twitter.bearer_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "realtime"
	}
	if c.Twitter.BaseURL == "" {
		c.Twitter.BaseURL = "https://api.x.com/2"
	}
	if c.Twitter.MaxResults == 0 {
		c.Twitter.MaxResults = 5
	}
	if c.Twitter.Timeout == 0 {
		c.Twitter.Timeout = 30 * time.Second
	}
	if c.Twitter.Retry.MaxAttempts == 0 {
		c.Twitter.Retry.MaxAttempts = 3
	}
	if c.Twitter.Retry.InitialBackoff == 0 {
		c.Twitter.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Twitter.Retry.MaxRateLimitWait == 0 {
		c.Twitter.Retry.MaxRateLimitWait = 15 * time.Minute
	}
	if len(c.Voice.Domestic.Prefixes) == 0 {
		c.Voice.Domestic.Prefixes = []string{"+86", "86"}
	}
	if c.Voice.Domestic.Timeout == 0 {
		c.Voice.Domestic.Timeout = 15 * time.Second
	}
	if c.Voice.International.Timeout == 0 {
		c.Voice.International.Timeout = 15 * time.Second
	}
	if c.Voice.MaxMessageLen == 0 {
		c.Voice.MaxMessageLen = 280
	}
	if c.Monitor.Concurrency == 0 {
		c.Monitor.Concurrency = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
