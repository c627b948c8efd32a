// Package config provides YAML-based configuration loading for parley.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zulandar/parley/internal/transcript"
	"gopkg.in/yaml.v3"
)

// Supported chat platforms.
const (
	PlatformDiscord = "discord"
	PlatformSlack   = "slack"
	PlatformConsole = "console"
)

// Config is the top-level parley configuration, loaded from parley.yaml.
type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Discord    DiscordConfig    `yaml:"discord"`
	Slack      SlackConfig      `yaml:"slack"`
	Completion CompletionConfig `yaml:"completion"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Status     StatusConfig     `yaml:"status"`
}

// BotConfig identifies the bot and the platform it runs on.
type BotConfig struct {
	Name          string `yaml:"name"`
	Platform      string `yaml:"platform"`
	StatusChannel string `yaml:"status_channel"`
}

// DiscordConfig holds Discord credentials.
type DiscordConfig struct {
	Token string `yaml:"token"`
	TTS   bool   `yaml:"tts"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
}

// CompletionConfig addresses the chat-completion backend.
type CompletionConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// PipelineConfig tunes the filter, queue, session store and worker.
type PipelineConfig struct {
	QueueCapacity    int      `yaml:"queue_capacity"`
	SessionTTLSec    int      `yaml:"session_ttl_sec"`
	HistoryOverflow  int      `yaml:"history_overflow"`
	MemoryTurns      int      `yaml:"memory_turns"`
	AmbientOdds      *int     `yaml:"ambient_odds"` // 1-in-N; 0 disables
	AmbientWindowSec int      `yaml:"ambient_window_sec"`
	KeywordThreshold *float64 `yaml:"keyword_threshold"`
	PacingMS         int      `yaml:"pacing_ms"`
}

// TranscriptConfig controls the exchange audit log.
type TranscriptConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Database      string `yaml:"database"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	RetentionDays int    `yaml:"retention_days"`
	PruneCron     string `yaml:"prune_cron"`
}

// StatusConfig controls the status HTTP server.
type StatusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references from the environment, then unmarshals
// YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Bot.Name == "" {
		c.Bot.Name = "parley"
	}
	if c.Bot.Platform == "" {
		c.Bot.Platform = PlatformDiscord
	}
	c.Bot.Platform = strings.ToLower(c.Bot.Platform)

	if c.Completion.Model == "" {
		c.Completion.Model = "gpt-3.5-turbo"
	}
	if c.Completion.TimeoutSec == 0 {
		c.Completion.TimeoutSec = 90
	}

	p := &c.Pipeline
	if p.QueueCapacity == 0 {
		p.QueueCapacity = 100
	}
	if p.SessionTTLSec == 0 {
		p.SessionTTLSec = 300
	}
	if p.HistoryOverflow == 0 {
		p.HistoryOverflow = 20
	}
	if p.MemoryTurns == 0 {
		p.MemoryTurns = 10
	}
	if p.AmbientOdds == nil {
		odds := 20
		p.AmbientOdds = &odds
	}
	if p.AmbientWindowSec == 0 {
		p.AmbientWindowSec = 30
	}
	if p.KeywordThreshold == nil {
		threshold := 0.1
		p.KeywordThreshold = &threshold
	}
	if p.PacingMS == 0 {
		p.PacingMS = 3000
	}

	t := &c.Transcript
	if t.Driver == "" {
		t.Driver = transcript.DriverSQLite
	}
	if t.Path == "" {
		t.Path = "parley.db"
	}
	if t.Host == "" {
		t.Host = "127.0.0.1"
	}
	if t.Port == 0 {
		t.Port = 3306
	}
	if t.RetentionDays == 0 {
		t.RetentionDays = 30
	}
	if t.PruneCron == "" {
		t.PruneCron = "0 4 * * *"
	}

	if c.Status.Port == 0 {
		c.Status.Port = 8090
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string

	switch c.Bot.Platform {
	case PlatformDiscord:
		if c.Discord.Token == "" {
			errs = append(errs, "discord.token is required for platform discord")
		}
	case PlatformSlack:
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required for platform slack")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required for platform slack")
		}
	case PlatformConsole:
	default:
		errs = append(errs, fmt.Sprintf("bot.platform %q must be one of discord, slack, console", c.Bot.Platform))
	}

	if c.Completion.APIKey == "" && c.Completion.BaseURL == "" {
		errs = append(errs, "completion.api_key is required unless completion.base_url is set")
	}
	if c.Completion.TimeoutSec < 0 {
		errs = append(errs, "completion.timeout_sec must be >= 0")
	}

	p := c.Pipeline
	if p.QueueCapacity < 1 {
		errs = append(errs, "pipeline.queue_capacity must be >= 1")
	}
	if p.SessionTTLSec < 1 {
		errs = append(errs, "pipeline.session_ttl_sec must be >= 1")
	}
	if p.MemoryTurns < 1 {
		errs = append(errs, "pipeline.memory_turns must be >= 1")
	}
	if p.HistoryOverflow <= p.MemoryTurns {
		errs = append(errs, "pipeline.history_overflow must be greater than pipeline.memory_turns")
	}
	if *p.AmbientOdds < 0 {
		errs = append(errs, "pipeline.ambient_odds must be >= 0")
	}
	if p.AmbientWindowSec < 0 {
		errs = append(errs, "pipeline.ambient_window_sec must be >= 0")
	}
	if t := p.Threshold(); t < 0 || t > 1 {
		errs = append(errs, "pipeline.keyword_threshold must be between 0 and 1")
	}

	t := c.Transcript
	if t.Enabled {
		switch t.Driver {
		case transcript.DriverSQLite, transcript.DriverMySQL:
		default:
			errs = append(errs, fmt.Sprintf("transcript.driver %q must be sqlite or mysql", t.Driver))
		}
		if t.Driver == transcript.DriverMySQL && t.Database == "" {
			errs = append(errs, "transcript.database is required for driver mysql")
		}
		if t.RetentionDays < 1 {
			errs = append(errs, "transcript.retention_days must be >= 1")
		}
		if err := transcript.ValidateSchedule(t.PruneCron); err != nil {
			errs = append(errs, fmt.Sprintf("transcript.prune_cron: %v", err))
		}
	}

	if c.Status.Port < 0 || c.Status.Port > 65535 {
		errs = append(errs, "status.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SessionTTL returns the session idle expiry.
func (p PipelineConfig) SessionTTL() time.Duration {
	return time.Duration(p.SessionTTLSec) * time.Second
}

// AmbientWindow returns the continuation window.
func (p PipelineConfig) AmbientWindow() time.Duration {
	return time.Duration(p.AmbientWindowSec) * time.Second
}

// Pacing returns the minimum spacing between completion calls. A negative
// pacing_ms disables pacing.
func (p PipelineConfig) Pacing() time.Duration {
	return time.Duration(p.PacingMS) * time.Millisecond
}

// Threshold returns the minimum keyword match ratio for a preset.
func (p PipelineConfig) Threshold() float64 {
	if p.KeywordThreshold == nil {
		return 0
	}
	return *p.KeywordThreshold
}

// Odds returns the ambient 1-in-N odds.
func (p PipelineConfig) Odds() int {
	if p.AmbientOdds == nil {
		return 0
	}
	return *p.AmbientOdds
}

// Timeout returns the per-request completion timeout.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Retention returns how long transcript rows are kept.
func (t TranscriptConfig) Retention() time.Duration {
	return time.Duration(t.RetentionDays) * 24 * time.Hour
}

// ConnectOpts converts the section into transcript connection options.
func (t TranscriptConfig) ConnectOpts() transcript.ConnectOpts {
	return transcript.ConnectOpts{
		Driver:   t.Driver,
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		User:     t.User,
		Password: t.Password,
	}
}
