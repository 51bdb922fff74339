// Package config loads runtime settings from leadchat.yaml, a .env file and
// LEADCHAT_* environment variables, in increasing order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LEADCHAT_DATABASE_URL.
const EnvPrefix = "LEADCHAT"

// State backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	State     StateConfig     `mapstructure:"state"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Flow      FlowConfig      `mapstructure:"flow"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// MaxInputSize caps a single visitor message, in bytes.
	MaxInputSize int `mapstructure:"max_input_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the Postgres database holding session records.
// An empty URL keeps records in memory.
type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
	MaxOpen int    `mapstructure:"max_open"`
	MaxIdle int    `mapstructure:"max_idle"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type StateConfig struct {
	Backend       string `mapstructure:"backend"`
	Dir           string `mapstructure:"dir"`
	EncryptionKey string `mapstructure:"encryption_key"`
	RedactClosed  bool   `mapstructure:"redact_closed"`
}

type LLMConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	LLMFirst    bool          `mapstructure:"llm_first"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type KnowledgeConfig struct {
	// File replaces the embedded topic table when set.
	File string `mapstructure:"file"`
}

type AdminConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type NotifyConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Region  string   `mapstructure:"region"`
	From    string   `mapstructure:"from"`
	To      []string `mapstructure:"to"`
}

type FlowConfig struct {
	Timezone string `mapstructure:"timezone"`
}

var defaults = map[string]any{
	"server.port":           8080,
	"server.cors_origins":   []string{"*"},
	"server.max_input_size": 4096,
	"log.level":             "info",
	"log.json":              false,
	"database.url":          "",
	"database.migrate":      false,
	"database.max_open":     10,
	"database.max_idle":     5,
	"redis.addr":            "localhost:6379",
	"redis.password":        "",
	"redis.db":              0,
	"redis.prefix":          "leadchat:session:",
	"redis.ttl":             72 * time.Hour,
	"state.backend":         BackendMemory,
	"state.dir":             ".leadchat/sessions",
	"state.encryption_key":  "",
	"state.redact_closed":   false,
	"llm.enabled":           false,
	"llm.api_key":           "",
	"llm.base_url":          "",
	"llm.model":             "gpt-4",
	"llm.max_tokens":        250,
	"llm.temperature":       0.7,
	"llm.llm_first":         false,
	"llm.timeout":           30 * time.Second,
	"knowledge.file":        "",
	"admin.enabled":         false,
	"admin.username":        "admin",
	"admin.password":        "",
	"admin.stale_after":     24 * time.Hour,
	"notify.enabled":        false,
	"notify.region":         "us-east-1",
	"notify.from":           "",
	"notify.to":             []string{},
	"flow.timezone":         "America/Santo_Domingo",
}

// Options tell Load where to look.
type Options struct {
	// File is an explicit config file. When empty, leadchat.yaml is searched in
	// the working directory and ./configs; a missing file is not an error.
	File string
	// EnvFile is loaded into the process environment when it exists.
	// Variables already set are never overwritten.
	EnvFile string
}

// Load reads, merges and validates the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("leadchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// normalize drops blanks that env lists such as "a@x, ,b@y" leave behind.
func (c *Config) normalize() {
	c.Notify.To = trimAll(c.Notify.To)
	c.Server.CORSOrigins = trimAll(c.Server.CORSOrigins)
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
}

func trimAll(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxInputSize < 0 {
		errs = append(errs, fmt.Errorf("server.max_input_size must not be negative, got %d", c.Server.MaxInputSize))
	}
	if !slices.Contains([]string{BackendMemory, BackendRedis, BackendFile}, c.State.Backend) {
		errs = append(errs, fmt.Errorf("state.backend must be memory, redis or file, got %q", c.State.Backend))
	}
	if c.State.Backend == BackendRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the redis state backend"))
	}
	if c.State.Backend == BackendFile && c.State.Dir == "" {
		errs = append(errs, errors.New("state.dir is required for the file state backend"))
	}
	if c.State.EncryptionKey != "" {
		if key, err := base64.StdEncoding.DecodeString(c.State.EncryptionKey); err != nil || len(key) != 32 {
			errs = append(errs, errors.New("state.encryption_key must be 32 bytes, base64 encoded"))
		}
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required when llm.enabled is set"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}
	if c.Admin.Enabled && (c.Admin.Username == "" || c.Admin.Password == "") {
		errs = append(errs, errors.New("admin.username and admin.password are required when admin.enabled is set"))
	}
	if c.Admin.StaleAfter < 0 {
		errs = append(errs, errors.New("admin.stale_after must not be negative"))
	}
	if c.Notify.Enabled && (c.Notify.From == "" || len(c.Notify.To) == 0) {
		errs = append(errs, errors.New("notify.from and notify.to are required when notify.enabled is set"))
	}
	if c.Database.Migrate && c.Database.URL == "" {
		errs = append(errs, errors.New("database.migrate needs database.url"))
	}
	if _, err := time.LoadLocation(c.Flow.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("flow.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the venue time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Flow.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
