package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 120
auth:
  enabled: true
  api_key: secret
google_maps:
  api_key: maps-key
  max_query_len: 128
  fetch_details: false
apify:
  token: apify-token
  actor_tiktok: actor-tt
  actor_instagram: actor-ig
  results_limit: 10
  poll_interval_seconds: 2
  wait_budget_seconds: 60
staging:
  ttl_minutes: 10
  max_entries: 32
db:
  dsn: postgres://localhost/cafeleads
export:
  enabled: true
  spreadsheet_id: sheet-1
  tab_prefix: cafes
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.GoogleMaps.APIKey != "maps-key" || cfg.GoogleMaps.FetchDetails {
		t.Fatalf("expected google_maps overrides to apply: %+v", cfg.GoogleMaps)
	}
	if cfg.Apify.ActorTikTok != "actor-tt" || cfg.Apify.ResultsLimit != 10 {
		t.Fatalf("expected apify overrides to apply: %+v", cfg.Apify)
	}
	if got := cfg.Apify.PollInterval(); got != 2*time.Second {
		t.Fatalf("expected poll interval 2s, got %v", got)
	}
	if got := cfg.Apify.WaitBudget(); got != 60*time.Second {
		t.Fatalf("expected wait budget 60s, got %v", got)
	}
	if got := cfg.Staging.TTL(); got != 10*time.Minute {
		t.Fatalf("expected staging ttl 10m, got %v", got)
	}
	if cfg.Export.TabPrefix != "cafes" {
		t.Fatalf("expected export tab prefix override, got %q", cfg.Export.TabPrefix)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Apify.PollIntervalSeconds != 5 || cfg.Apify.WaitBudgetSeconds != 300 {
		t.Fatalf("expected apify poll defaults, got %+v", cfg.Apify)
	}
	if cfg.DB.LeadsTable != "leads" || cfg.DB.AttemptsTable != "search_attempts" {
		t.Fatalf("expected table name defaults, got %+v", cfg.DB)
	}
	if !cfg.Enrichment.Enabled {
		t.Fatalf("expected enrichment enabled by default")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Apify:   ApifyConfig{PollIntervalSeconds: 5, WaitBudgetSeconds: 300},
		Staging: StagingConfig{TTLMinutes: 30},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
		{
			name: "invalid poll interval",
			cfg: func() Config {
				c := base
				c.Apify.PollIntervalSeconds = 0
				return c
			}(),
			want: "apify.poll_interval_seconds",
		},
		{
			name: "budget below interval",
			cfg: func() Config {
				c := base
				c.Apify.WaitBudgetSeconds = 1
				return c
			}(),
			want: "apify.wait_budget_seconds",
		},
		{
			name: "invalid staging ttl",
			cfg: func() Config {
				c := base
				c.Staging.TTLMinutes = 0
				return c
			}(),
			want: "staging.ttl_minutes",
		},
		{
			name: "export missing spreadsheet",
			cfg: func() Config {
				c := base
				c.Export.Enabled = true
				return c
			}(),
			want: "export.spreadsheet_id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
