// Package config provides YAML-based configuration loading for Checkline.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Checkline configuration, loaded from config.yaml
// with secrets overlaid from the environment.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	AI       AIConfig       `yaml:"ai"`
	Session  SessionConfig  `yaml:"session"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// DatabaseConfig holds connection settings for the MySQL server.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` // env: CHECKLINE_DB_PASSWORD
	Name     string `yaml:"name"`
}

// ServerConfig holds webhook HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	MediaDir string `yaml:"media_dir"`
}

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	APIBase       string `yaml:"api_base"`
	PhoneNumberID string `yaml:"phone_number_id"`
	AccessToken   string `yaml:"access_token"` // env: CHECKLINE_WA_TOKEN
	VerifyToken   string `yaml:"verify_token"` // env: CHECKLINE_WA_VERIFY_TOKEN
}

// AIConfig holds settings for the AI interpretation tier. When the API key
// is empty the engine runs on the deterministic keyword interpreter alone.
type AIConfig struct {
	APIKey string `yaml:"api_key"` // env: CHECKLINE_GEMINI_KEY
	Model  string `yaml:"model"`
}

// SessionConfig controls conversation session lifecycle.
type SessionConfig struct {
	ExpiryHours   int    `yaml:"expiry_hours"`
	SweepCron     string `yaml:"sweep_cron"`     // 5-field cron for the expiry sweep
	ReminderCron  string `yaml:"reminder_cron"`  // 5-field cron for idle reminders
	ReminderIdleM int    `yaml:"reminder_idle_minutes"`
}

// NotifyConfig selects supervisor notification channels. Both may be
// configured; events fan out to every configured channel.
type NotifyConfig struct {
	Slack   SlackNotifyConfig   `yaml:"slack"`
	Discord DiscordNotifyConfig `yaml:"discord"`
}

// SlackNotifyConfig holds Slack notifier settings.
type SlackNotifyConfig struct {
	BotToken  string `yaml:"bot_token"` // env: CHECKLINE_SLACK_TOKEN
	ChannelID string `yaml:"channel_id"`
}

// DiscordNotifyConfig holds Discord notifier settings.
type DiscordNotifyConfig struct {
	BotToken  string `yaml:"bot_token"` // env: CHECKLINE_DISCORD_TOKEN
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file alongside the working directory is loaded first (best-effort)
// so secrets can live outside the YAML.
func Load(path string) (*Config, error) {
	godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays secrets from the environment over YAML values.
func (c *Config) applyEnv() {
	if v := os.Getenv("CHECKLINE_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("CHECKLINE_WA_TOKEN"); v != "" {
		c.WhatsApp.AccessToken = v
	}
	if v := os.Getenv("CHECKLINE_WA_VERIFY_TOKEN"); v != "" {
		c.WhatsApp.VerifyToken = v
	}
	if v := os.Getenv("CHECKLINE_GEMINI_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("CHECKLINE_SLACK_TOKEN"); v != "" {
		c.Notify.Slack.BotToken = v
	}
	if v := os.Getenv("CHECKLINE_DISCORD_TOKEN"); v != "" {
		c.Notify.Discord.BotToken = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "checkline"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MediaDir == "" {
		c.Server.MediaDir = "media"
	}
	if c.WhatsApp.APIBase == "" {
		c.WhatsApp.APIBase = "https://graph.facebook.com/v19.0"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.0-flash"
	}
	if c.Session.ExpiryHours == 0 {
		c.Session.ExpiryHours = 24
	}
	if c.Session.SweepCron == "" {
		c.Session.SweepCron = "*/15 * * * *"
	}
	if c.Session.ReminderIdleM == 0 {
		c.Session.ReminderIdleM = 120
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.WhatsApp.PhoneNumberID == "" {
		errs = append(errs, "whatsapp.phone_number_id is required")
	}
	if c.WhatsApp.VerifyToken == "" {
		errs = append(errs, "whatsapp.verify_token is required")
	}
	if c.Session.ExpiryHours < 0 {
		errs = append(errs, "session.expiry_hours must not be negative")
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.ChannelID == "" {
		errs = append(errs, "notify.slack.channel_id is required when a Slack token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required when a Discord token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
