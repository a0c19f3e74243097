package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://api.timebank.jp" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.API.Version)
	}
	if cfg.Network.Timeout != 60*time.Second {
		t.Errorf("Timeout = %s, want 60s", cfg.Network.Timeout)
	}
	if cfg.Network.MaxRetries != 1 || cfg.Network.Workers != 4 {
		t.Errorf("MaxRetries = %d, Workers = %d", cfg.Network.MaxRetries, cfg.Network.Workers)
	}
	if cfg.Network.BackoffMultiplier != 1.0 {
		t.Errorf("BackoffMultiplier = %g", cfg.Network.BackoffMultiplier)
	}
	budget, err := cfg.Cache.ImageBudgetBytes()
	if err != nil || budget != 32<<20 {
		t.Errorf("ImageBudgetBytes() = %d, %v, want 32MiB", budget, err)
	}
	if !strings.HasSuffix(cfg.Cache.Dir, "timebank") {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if cfg.Session.Path != "" || cfg.Telemetry.Enabled {
		t.Errorf("Session = %+v, Telemetry = %+v", cfg.Session, cfg.Telemetry)
	}

	if def := Default(); *def != *cfg {
		t.Errorf("Default() = %+v, want %+v", def, cfg)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timebank.yaml")
	writeFile(t, path, `
api:
  base_url: https://staging.timebank.jp
  version: 2
client:
  app_version: 2.4.0
network:
  timeout: 15s
  max_retries: 3
cache:
  image_budget: 8MiB
`)
	writeFile(t, filepath.Join(dir, ".env"), "TIMEBANK_CLIENT__DEVICE_MODEL=Pixel\nAD_ID=from-dotenv\n")

	t.Setenv("TIMEBANK_NETWORK__MAX_RETRIES", "5")
	t.Setenv("TIMEBANK_CLIENT__ADVERTISING_ID", "${AD_ID}")
	t.Cleanup(func() {
		os.Unsetenv("TIMEBANK_CLIENT__DEVICE_MODEL")
		os.Unsetenv("AD_ID")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file base url", cfg.API.BaseURL, "https://staging.timebank.jp"},
		{"file version", cfg.API.Version, 2},
		{"file app version", cfg.Client.AppVersion, "2.4.0"},
		{"file timeout", cfg.Network.Timeout, 15 * time.Second},
		{"env beats file", cfg.Network.MaxRetries, 5},
		{"dotenv", cfg.Client.DeviceModel, "Pixel"},
		{"substitution", cfg.Client.AdvertisingID, "from-dotenv"},
		{"default survives", cfg.Client.AppName, "Timebank"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if budget, _ := cfg.Cache.ImageBudgetBytes(); budget != 8<<20 {
		t.Errorf("ImageBudgetBytes() = %d, want 8MiB", budget)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"zero timeout", "network:\n  timeout: 0s\n", "network.timeout"},
		{"negative retries", "network:\n  max_retries: -1\n", "network.max_retries"},
		{"multiplier below one", "network:\n  backoff_multiplier: 0.5\n", "network.backoff_multiplier"},
		{"no workers", "network:\n  workers: 0\n", "network.workers"},
		{"bad budget", "cache:\n  image_budget: lots\n", "cache.image_budget"},
		{"malformed yaml", "api: [\n", "failed to load config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "timebank.yaml")
			writeFile(t, path, tt.yaml)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProvider_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timebank.yaml")
	writeFile(t, path, "client:\n  app_version: 1.0.0\n")

	p, err := NewProvider(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, err := p.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	if err := p.Watch(ctx, func(c *Config) { changes <- c }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// An invalid edit is skipped; the following valid one is delivered.
	writeFile(t, path, "network:\n  workers: 0\n")
	writeFile(t, path, "client:\n  app_version: 2.0.0\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Client.AppVersion == "2.0.0" {
				if cur := p.Current(); cur == nil || cur.Client.AppVersion != "2.0.0" {
					t.Errorf("Current() = %+v", cur)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestNewProvider_EmptyPath(t *testing.T) {
	if _, err := NewProvider("", nil); err == nil {
		t.Error("NewProvider(\"\") should fail")
	}
}
