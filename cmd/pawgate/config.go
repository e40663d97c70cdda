package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pawgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View or modify pawgate configuration.

Configuration is stored at ~/.config/pawgate/config.yaml
Project-specific overrides can be placed in .pawgate.yaml
Environment variables use the PAWGATE_ prefix, e.g. PAWGATE_GATE_PASS=85`,
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Display the effective configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if len(args) == 1 {
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}
		for _, key := range configKeys {
			value, _ := getConfigValue(cfg, key)
			fmt.Printf("%s: %s\n", key, value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the user config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file locations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("user:    %s\n", config.GetUserConfigPath())
		project := config.GetProjectConfigPath()
		if project == "" {
			project = "(none)"
		}
		fmt.Printf("project: %s\n", project)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys lists the keys shown by config show, in display order.
var configKeys = []string{
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.use_bedrock",
	"log.level",
	"log.format",
	"gate.pass",
	"gate.conditional",
	"retry.max_attempts",
	"retry.backoff_base",
	"retry.backoff_max",
	"generator.command",
	"generator.timeout",
	"paths.report_dir",
	"paths.ledger",
	"paths.work_dir",
	"watch.concurrency",
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		k, err := config.GetAPIKey(cfg)
		if err != nil {
			return "(not set)", nil
		}
		return fmt.Sprintf("%s (%s)", config.MaskAPIKey(k), config.GetAPIKeySource(cfg)), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.format":
		return cfg.Log.Format, nil
	case "gate.pass":
		return strconv.FormatFloat(cfg.Gate.Pass, 'g', -1, 64), nil
	case "gate.conditional":
		return strconv.FormatFloat(cfg.Gate.Conditional, 'g', -1, 64), nil
	case "retry.max_attempts":
		return strconv.Itoa(cfg.Retry.MaxAttempts), nil
	case "retry.backoff_base":
		return cfg.Retry.BackoffBase.String(), nil
	case "retry.backoff_max":
		return cfg.Retry.BackoffMax.String(), nil
	case "generator.command":
		if cfg.Generator.Command == "" {
			return "(not set)", nil
		}
		return cfg.Generator.Command, nil
	case "generator.timeout":
		return cfg.Generator.Timeout.String(), nil
	case "paths.report_dir":
		return cfg.Paths.ReportDir, nil
	case "paths.ledger":
		return cfg.Paths.Ledger, nil
	case "paths.work_dir":
		return cfg.Paths.WorkDir, nil
	case "watch.concurrency":
		return strconv.Itoa(cfg.Watch.Concurrency), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return fmt.Errorf("api keys are not stored by pawgate; set ANTHROPIC_API_KEY instead")
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "gate.pass":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for gate.pass: %w", err)
		}
		cfg.Gate.Pass = f
	case "gate.conditional":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for gate.conditional: %w", err)
		}
		cfg.Gate.Conditional = f
	case "retry.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for retry.max_attempts: %w", err)
		}
		cfg.Retry.MaxAttempts = n
	case "retry.backoff_base":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retry.backoff_base: %w", err)
		}
		cfg.Retry.BackoffBase = d
	case "retry.backoff_max":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retry.backoff_max: %w", err)
		}
		cfg.Retry.BackoffMax = d
	case "generator.command":
		cfg.Generator.Command = value
	case "paths.report_dir":
		cfg.Paths.ReportDir = value
	case "paths.ledger":
		cfg.Paths.Ledger = value
	case "paths.work_dir":
		cfg.Paths.WorkDir = value
	default:
		return fmt.Errorf("unknown or read-only configuration key: %s", key)
	}
	return nil
}
