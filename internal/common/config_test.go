package common

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source:
  local: true
  local_dir: /srv/notes
extraction:
  provider: vertex
  attempt_timeout: 30s
output:
  csv_path: out.csv
  mode: overwrite
vertex:
  project_id: from-yaml
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_CLOUD_PROJECT", "from-env")
	t.Setenv("DN_ATTEMPT_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Source.Local || cfg.Source.LocalDir != "/srv/notes" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Vertex.ProjectID != "from-env" {
		t.Errorf("env must override yaml, got %q", cfg.Vertex.ProjectID)
	}
	if cfg.Extraction.AttemptTimeout != 30*time.Second {
		t.Errorf("unparseable env must keep yaml value, got %v", cfg.Extraction.AttemptTimeout)
	}
	if cfg.Output.Mode != constants.ModeOverwrite {
		t.Errorf("mode = %q", cfg.Output.Mode)
	}
	if cfg.Gmail.Query != "subject:delivery note" {
		t.Errorf("defaults must survive a partial file, query = %q", cfg.Gmail.Query)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != CodeConfig {
		t.Fatalf("err = %v, want CONFIG_ERROR", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with fallback", func(c *Config) {}, ""},
		{"bad mode", func(c *Config) { c.Output.Mode = "merge" }, "output.mode"},
		{"no outputs", func(c *Config) { c.Output.CSVPath = "" }, "output"},
		{"bad date order", func(c *Config) { c.Extraction.DateOrder = "YMD" }, "extraction.date_order"},
		{"watch needs local", func(c *Config) { c.Source.Watch = true }, "source.watch"},
		{"openai key without fallback", func(c *Config) { c.Extraction.AllowFallback = false }, "OPENAI_API_KEY"},
		{"force ocr needs no key", func(c *Config) {
			c.Extraction.AllowFallback = false
			c.Extraction.ForceOCR = true
		}, ""},
		{"vertex needs project", func(c *Config) { c.Extraction.Provider = "vertex" }, "vertex.project_id"},
		{"local needs dir", func(c *Config) {
			c.Source.Local = true
			c.Source.LocalDir = " "
		}, "source.local_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err should wrap ErrInvalidInput")
			}
		})
	}
}
