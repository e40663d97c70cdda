// Package config handles configuration loading for pawgate.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/pawgate/internal/creative"
	"github.com/ShayCichocki/pawgate/internal/gate"
	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/internal/rules"
	"github.com/ShayCichocki/pawgate/internal/vision"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Config holds all configuration for pawgate.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Log       LogConfig       `mapstructure:"log"`
	Gate      GateConfig      `mapstructure:"gate"`
	Technical TechnicalConfig `mapstructure:"technical"`
	Caption   CaptionConfig   `mapstructure:"caption"`
	Creative  CreativeConfig  `mapstructure:"creative"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// AnthropicConfig holds vision model settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	// Disabled skips the vision model; every category falls back.
	Disabled bool `mapstructure:"disabled"`

	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GateConfig holds the verdict bands shared by both phases.
type GateConfig struct {
	Pass        float64 `mapstructure:"pass"`
	Conditional float64 `mapstructure:"conditional"`
}

// TechnicalConfig holds the slide rules.
type TechnicalConfig struct {
	Width             int      `mapstructure:"width"`
	Height            int      `mapstructure:"height"`
	MinSlides         int      `mapstructure:"min_slides"`
	MaxSlides         int      `mapstructure:"max_slides"`
	RecommendedSlides int      `mapstructure:"recommended_slides"`
	NamingPattern     string   `mapstructure:"naming_pattern"`
	SafeTop           float64  `mapstructure:"safe_top"`
	SafeBottom        float64  `mapstructure:"safe_bottom"`
	Platforms         []string `mapstructure:"platforms"`
}

// CaptionConfig holds the tunable caption thresholds. Keyword lists stay
// in code.
type CaptionConfig struct {
	MinBullets int `mapstructure:"min_bullets"`
	HashtagMin int `mapstructure:"hashtag_min"`
	HashtagMax int `mapstructure:"hashtag_max"`
}

// CreativeConfig holds evaluator settings.
type CreativeConfig struct {
	SampleSize        int     `mapstructure:"sample_size"`
	FallbackScore     int     `mapstructure:"fallback_score"`
	NeutralSimilarity float64 `mapstructure:"neutral_similarity"`
	ReferencesDir     string  `mapstructure:"references_dir"`
}

// RetryConfig holds the loop budget.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"`
}

// GeneratorConfig holds the external regeneration command.
type GeneratorConfig struct {
	// Command is run through sh -c for attempts after the first.
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PathsConfig holds output locations.
type PathsConfig struct {
	ReportDir string `mapstructure:"report_dir"`
	Ledger    string `mapstructure:"ledger"`
	// WorkDir receives one directory per regenerated attempt.
	WorkDir string `mapstructure:"work_dir"`
}

// WatchConfig holds inbox watcher settings.
type WatchConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, PAWGATE_*)
// 2. Project config (.pawgate.yaml in current directory or parent)
// 3. User config (~/.config/pawgate/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config: %w", err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)

	return decode(v)
}

// LoadFromPath loads configuration from a specific file on top of the defaults.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnv(v)

	return decode(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PAWGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Paths.ReportDir = expandEnv(cfg.Paths.ReportDir)
	cfg.Paths.Ledger = expandEnv(cfg.Paths.Ledger)
	cfg.Paths.WorkDir = expandEnv(cfg.Paths.WorkDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Caption.HashtagMin > c.Caption.HashtagMax {
		return fmt.Errorf("caption.hashtag_min %d exceeds hashtag_max %d", c.Caption.HashtagMin, c.Caption.HashtagMax)
	}
	for _, p := range c.Technical.Platforms {
		if !models.Platform(p).Valid() {
			return fmt.Errorf("unknown platform %q", p)
		}
	}
	return nil
}

// Save writes cfg to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("gate.pass", cfg.Gate.Pass)
	v.Set("gate.conditional", cfg.Gate.Conditional)
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.backoff_base", cfg.Retry.BackoffBase.String())
	v.Set("retry.backoff_max", cfg.Retry.BackoffMax.String())
	v.Set("generator.command", cfg.Generator.Command)
	v.Set("paths.report_dir", cfg.Paths.ReportDir)
	v.Set("paths.ledger", cfg.Paths.Ledger)
	v.Set("paths.work_dir", cfg.Paths.WorkDir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", d.Anthropic.MaxTokens)
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")
	v.SetDefault("anthropic.disabled", false)
	v.SetDefault("anthropic.requests_per_second", d.Anthropic.RequestsPerSecond)
	v.SetDefault("anthropic.burst", d.Anthropic.Burst)
	v.SetDefault("anthropic.breaker_failures", d.Anthropic.BreakerFailures)
	v.SetDefault("anthropic.breaker_timeout", d.Anthropic.BreakerTimeout.String())

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("gate.pass", d.Gate.Pass)
	v.SetDefault("gate.conditional", d.Gate.Conditional)

	v.SetDefault("technical.width", d.Technical.Width)
	v.SetDefault("technical.height", d.Technical.Height)
	v.SetDefault("technical.min_slides", d.Technical.MinSlides)
	v.SetDefault("technical.max_slides", d.Technical.MaxSlides)
	v.SetDefault("technical.recommended_slides", d.Technical.RecommendedSlides)
	v.SetDefault("technical.naming_pattern", d.Technical.NamingPattern)
	v.SetDefault("technical.safe_top", d.Technical.SafeTop)
	v.SetDefault("technical.safe_bottom", d.Technical.SafeBottom)
	v.SetDefault("technical.platforms", d.Technical.Platforms)

	v.SetDefault("caption.min_bullets", d.Caption.MinBullets)
	v.SetDefault("caption.hashtag_min", d.Caption.HashtagMin)
	v.SetDefault("caption.hashtag_max", d.Caption.HashtagMax)

	v.SetDefault("creative.sample_size", d.Creative.SampleSize)
	v.SetDefault("creative.fallback_score", d.Creative.FallbackScore)
	v.SetDefault("creative.neutral_similarity", d.Creative.NeutralSimilarity)
	v.SetDefault("creative.references_dir", "")

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.backoff_base", d.Retry.BackoffBase.String())
	v.SetDefault("retry.backoff_max", d.Retry.BackoffMax.String())

	v.SetDefault("generator.command", "")
	v.SetDefault("generator.timeout", d.Generator.Timeout.String())

	v.SetDefault("paths.report_dir", d.Paths.ReportDir)
	v.SetDefault("paths.ledger", d.Paths.Ledger)
	v.SetDefault("paths.work_dir", d.Paths.WorkDir)

	v.SetDefault("watch.concurrency", d.Watch.Concurrency)
	v.SetDefault("watch.metrics_addr", d.Watch.MetricsAddr)
}

// getUserConfigDir returns the XDG config directory for pawgate.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pawgate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "pawgate")
	}
	return filepath.Join(home, ".config", "pawgate")
}

// findProjectConfig searches for .pawgate.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".pawgate.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	guard := vision.DefaultGuardConfig()
	caption := rules.DefaultCaptionRules()
	creativeCfg := creative.DefaultConfig()
	th := gate.DefaultThresholds()
	backoff := retry.DefaultBackoff()
	tech := gate.DefaultTechConfig()

	platforms := make([]string, len(tech.Platforms))
	for i, p := range tech.Platforms {
		platforms[i] = string(p)
	}

	return &Config{
		Anthropic: AnthropicConfig{
			Model:             "claude-sonnet-4-20250514",
			MaxTokens:         1024,
			RequestsPerSecond: guard.RequestsPerSecond,
			Burst:             guard.Burst,
			BreakerFailures:   guard.FailureThreshold,
			BreakerTimeout:    guard.OpenTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Gate: GateConfig{
			Pass:        th.Pass,
			Conditional: th.Conditional,
		},
		Technical: TechnicalConfig{
			Width:             tech.Width,
			Height:            tech.Height,
			MinSlides:         tech.MinSlides,
			MaxSlides:         tech.MaxSlides,
			RecommendedSlides: tech.RecommendedSlides,
			NamingPattern:     rules.DefaultNamingPattern,
			SafeTop:           tech.SafeArea.Top,
			SafeBottom:        tech.SafeArea.Bottom,
			Platforms:         platforms,
		},
		Caption: CaptionConfig{
			MinBullets: caption.MinBullets,
			HashtagMin: caption.HashtagMin,
			HashtagMax: caption.HashtagMax,
		},
		Creative: CreativeConfig{
			SampleSize:        creativeCfg.SampleSize,
			FallbackScore:     creativeCfg.FallbackScore,
			NeutralSimilarity: creativeCfg.NeutralSimilarity,
		},
		Retry: RetryConfig{
			MaxAttempts: retry.DefaultMaxAttempts,
			BackoffBase: backoff.Base,
			BackoffMax:  backoff.Max,
		},
		Generator: GeneratorConfig{
			Timeout: 10 * time.Minute,
		},
		Paths: PathsConfig{
			ReportDir: filepath.Join(".pawgate", "reports"),
			Ledger:    filepath.Join(".pawgate", "ledger.db"),
			WorkDir:   filepath.Join(".pawgate", "attempts"),
		},
		Watch: WatchConfig{
			Concurrency: 2,
			MetricsAddr: "",
		},
	}
}
