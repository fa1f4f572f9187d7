package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "default config",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "invalid log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(cfg *Config) { cfg.Server.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "unknown store type",
			mutate:  func(cfg *Config) { cfg.Store.Type = "tape" },
			wantErr: "Type",
		},
		{
			name:    "http port out of range",
			mutate:  func(cfg *Config) { cfg.Adapters.HTTP.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "no adapter enabled",
			mutate:  func(cfg *Config) { cfg.Adapters.HTTP.Enabled = false },
			wantErr: "at least one adapter",
		},
		{
			name: "overlapping roots",
			mutate: func(cfg *Config) {
				cfg.Server.ContentRoot = "site"
				cfg.Server.PublicRoot = "site/public"
			},
			wantErr: "overlap",
		},
		{
			name:    "escaping root",
			mutate:  func(cfg *Config) { cfg.Server.ContentRoot = "../content" },
			wantErr: "invalid content root",
		},
		{
			name:    "bad hidden pattern",
			mutate:  func(cfg *Config) { cfg.Server.Hidden = []string{"[a-"} },
			wantErr: "server.hidden[0]",
		},
		{
			name: "metrics port clash",
			mutate: func(cfg *Config) {
				cfg.Server.Metrics.Enabled = true
				cfg.Server.Metrics.Port = cfg.Adapters.HTTP.Port
			},
			wantErr: "already used",
		},
		{
			name: "metrics port clash ignored when disabled",
			mutate: func(cfg *Config) {
				cfg.Server.Metrics.Port = cfg.Adapters.HTTP.Port
			},
		},
		{
			name: "rate limit without burst",
			mutate: func(cfg *Config) {
				cfg.Server.RateLimit.RequestsPerSecond = 10
				cfg.Server.RateLimit.Burst = 0
			},
			wantErr: "burst",
		},
		{
			name:    "client url not a url",
			mutate:  func(cfg *Config) { cfg.Client.URL = "not a url" },
			wantErr: "URL",
		},
		{
			name:    "client url scheme",
			mutate:  func(cfg *Config) { cfg.Client.URL = "ftp://localhost/content" },
			wantErr: "unsupported scheme",
		},
		{
			name: "retry delays inverted",
			mutate: func(cfg *Config) {
				cfg.Client.Retry.InitialDelay = 10 * time.Second
				cfg.Client.Retry.MaxDelay = time.Second
			},
			wantErr: "max_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
