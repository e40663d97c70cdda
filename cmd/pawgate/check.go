package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pawgate/internal/gate"
	"github.com/ShayCichocki/pawgate/internal/manifest"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

var checkJSON bool

var errTechFailed = errors.New("technical review failed")

var checkCmd = &cobra.Command{
	Use:   "check <item.yaml>",
	Short: "Run the technical review only",
	Long: `Run the deterministic technical checks (file count, resolution,
naming, text placement, caption rules) without calling the vision model or
regenerating anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the verdict as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	reviewer, err := gate.NewTechnicalReviewer(cfg.TechConfig())
	if err != nil {
		return err
	}
	item, err := manifest.Load(args[0])
	if err != nil {
		return err
	}

	v := reviewer.Review(item)
	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
	} else {
		printChecks(item.Topic, v)
	}

	if !v.Verdict.MayProceed() {
		return fmt.Errorf("%w: technical score %.1f", errTechFailed, v.Score)
	}
	return nil
}

func printChecks(topic string, v models.GateVerdict) {
	for _, c := range v.Checks {
		switch {
		case c.Passed && c.Severity == models.SeverityWarning:
			printStatus("⚠", fmt.Sprintf("%-28s %s", c.ID, c.Reason), color.FgYellow)
		case c.Passed:
			printStatus("✓", fmt.Sprintf("%-28s %s", c.ID, c.Reason), color.FgGreen)
		default:
			printStatus("✗", fmt.Sprintf("%-28s %s", c.ID, c.Reason), color.FgRed)
		}
	}
	fmt.Printf("\n%s: %s %.1f (%s)\n", topic, v.Verdict, v.Score, v.Grade)
}
