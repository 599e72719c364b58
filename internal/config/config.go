// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	GoogleMaps GoogleMapsConfig `mapstructure:"google_maps"`
	Apify      ApifyConfig      `mapstructure:"apify"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Staging    StagingConfig    `mapstructure:"staging"`
	DB         DBConfig         `mapstructure:"db"`
	Export     ExportConfig     `mapstructure:"export"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// GoogleMapsConfig configures the synchronous Places provider.
type GoogleMapsConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Endpoint       string `mapstructure:"endpoint"`
	MaxQueryLen    int    `mapstructure:"max_query_len"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	FetchDetails   bool   `mapstructure:"fetch_details"`
}

// ApifyConfig configures the asynchronous actor-run provider.
type ApifyConfig struct {
	Token               string `mapstructure:"token"`
	ActorTikTok         string `mapstructure:"actor_tiktok"`
	ActorInstagram      string `mapstructure:"actor_instagram"`
	Endpoint            string `mapstructure:"endpoint"`
	ResultsLimit        int    `mapstructure:"results_limit"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	WaitBudgetSeconds   int    `mapstructure:"wait_budget_seconds"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	MaxQueryLen         int    `mapstructure:"max_query_len"`
}

// EnrichmentConfig governs the best-effort website Instagram scrape.
type EnrichmentConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// StagingConfig bounds the ephemeral staged-result store.
type StagingConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
	MaxEntries int `mapstructure:"max_entries"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN           string `mapstructure:"dsn"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MinConns      int32  `mapstructure:"min_conns"`
	LeadsTable    string `mapstructure:"leads_table"`
	AttemptsTable string `mapstructure:"attempts_table"`
}

// ExportConfig controls the spreadsheet export collaborator.
type ExportConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsPath string `mapstructure:"credentials_path"`
	TabPrefix       string `mapstructure:"tab_prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAFELEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 360)
	v.SetDefault("google_maps.endpoint", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google_maps.max_query_len", 255)
	v.SetDefault("google_maps.timeout_seconds", 10)
	v.SetDefault("google_maps.fetch_details", true)
	v.SetDefault("apify.endpoint", "https://api.apify.com/v2")
	v.SetDefault("apify.results_limit", 20)
	v.SetDefault("apify.poll_interval_seconds", 5)
	v.SetDefault("apify.wait_budget_seconds", 300)
	v.SetDefault("apify.timeout_seconds", 30)
	v.SetDefault("apify.max_query_len", 255)
	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.timeout_seconds", 10)
	v.SetDefault("enrichment.user_agent", "cafeleads-bot/0.1")
	v.SetDefault("staging.ttl_minutes", 30)
	v.SetDefault("staging.max_entries", 256)
	v.SetDefault("db.leads_table", "leads")
	v.SetDefault("db.attempts_table", "search_attempts")
	v.SetDefault("export.tab_prefix", "leads")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Apify.PollIntervalSeconds <= 0 {
		return fmt.Errorf("apify.poll_interval_seconds must be > 0")
	}
	if c.Apify.WaitBudgetSeconds < c.Apify.PollIntervalSeconds {
		return fmt.Errorf("apify.wait_budget_seconds must be >= apify.poll_interval_seconds")
	}
	if c.Staging.TTLMinutes <= 0 {
		return fmt.Errorf("staging.ttl_minutes must be > 0")
	}
	if c.Export.Enabled && c.Export.SpreadsheetID == "" {
		return fmt.Errorf("export.spreadsheet_id must be set when export is enabled")
	}
	return nil
}

// PollInterval returns the configured poll interval as a duration.
func (c ApifyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// WaitBudget returns the configured maximum poll wait as a duration.
func (c ApifyConfig) WaitBudget() time.Duration {
	return time.Duration(c.WaitBudgetSeconds) * time.Second
}

// TTL returns the staged-entry lifetime as a duration.
func (c StagingConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}
