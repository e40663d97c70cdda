package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Gate.Pass != 90 || cfg.Gate.Conditional != 80 {
		t.Errorf("expected 90/80 bands, got %v/%v", cfg.Gate.Pass, cfg.Gate.Conditional)
	}
	if cfg.Caption.HashtagMin != 12 || cfg.Caption.HashtagMax != 16 {
		t.Errorf("expected 12-16 hashtags, got %d-%d", cfg.Caption.HashtagMin, cfg.Caption.HashtagMax)
	}
	if cfg.Caption.MinBullets != 3 {
		t.Errorf("expected 3 bullets, got %d", cfg.Caption.MinBullets)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BackoffBase != time.Second || cfg.Retry.BackoffMax != 30*time.Second {
		t.Errorf("expected 1s/30s backoff, got %v/%v", cfg.Retry.BackoffBase, cfg.Retry.BackoffMax)
	}
	if cfg.Technical.Width != 1080 || cfg.Technical.Height != 1080 {
		t.Errorf("expected 1080x1080, got %dx%d", cfg.Technical.Width, cfg.Technical.Height)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  breaker_timeout: 2m
gate:
  pass: 92
  conditional: 85
caption:
  hashtag_min: 10
retry:
  max_attempts: 5
  backoff_base: 500ms
technical:
  platforms: [instagram, threads]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.BreakerTimeout != 2*time.Minute {
		t.Errorf("expected breaker timeout 2m, got %v", cfg.Anthropic.BreakerTimeout)
	}
	if cfg.Gate.Pass != 92 || cfg.Gate.Conditional != 85 {
		t.Errorf("expected 92/85, got %v/%v", cfg.Gate.Pass, cfg.Gate.Conditional)
	}
	if cfg.Caption.HashtagMin != 10 || cfg.Caption.HashtagMax != 16 {
		t.Errorf("expected 10-16 hashtags, got %d-%d", cfg.Caption.HashtagMin, cfg.Caption.HashtagMax)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BackoffBase != 500*time.Millisecond {
		t.Errorf("unexpected retry config %+v", cfg.Retry)
	}

	tech := cfg.TechConfig()
	if len(tech.Platforms) != 2 || tech.Platforms[1] != models.PlatformThreads {
		t.Errorf("unexpected platforms %v", tech.Platforms)
	}
	if tech.Thresholds.Pass != 92 || tech.Caption.HashtagMin != 10 {
		t.Errorf("tech config did not pick up overrides: %+v", tech)
	}
	if got := cfg.Backoff().Delay(2); got != time.Second {
		t.Errorf("Delay(2) = %v, want 1s", got)
	}
}

func TestLoadFromPath_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("retry:\n  max_attempts: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAWGATE_RETRY_MAX_ATTEMPTS", "2")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("expected env override 2, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Anthropic.APIKey != "sk-ant-from-env" {
		t.Errorf("expected api key from env, got %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"inverted bands", "gate:\n  pass: 70\n  conditional: 80\n"},
		{"zero attempts", "retry:\n  max_attempts: 0\n"},
		{"hashtag range", "caption:\n  hashtag_min: 20\n"},
		{"unknown platform", "technical:\n  platforms: [tiktok]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromPath(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "expanded-value")

	if got := expandEnv("${TEST_VAR}"); got != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", got)
	}
	if got := expandEnv("prefix-${TEST_VAR}-suffix"); got != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", got)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if dir := getUserConfigDir(); dir != "/custom/config/pawgate" {
		t.Errorf("expected /custom/config/pawgate, got %q", dir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := Default()
	cfg.Retry.MaxAttempts = 4
	cfg.Generator.Command = "./render.sh"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Retry.MaxAttempts != 4 || loaded.Generator.Command != "./render.sh" {
		t.Errorf("round trip lost values: %+v %+v", loaded.Retry, loaded.Generator)
	}
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".pawgate.yaml"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	got := findProjectConfig()
	if filepath.Base(got) != ".pawgate.yaml" {
		t.Errorf("expected to find .pawgate.yaml, got %q", got)
	}
}
