package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pawgate/internal/store"
)

var (
	historyTopic string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent review runs",
	Long: `List recent runs from the ledger, newest first. With a run id, show
that run's score history attempt by attempt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyTopic, "topic", "", "Only show runs for this topic")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.Paths.Ledger); os.IsNotExist(err) {
		fmt.Println("No runs recorded yet. Run 'pawgate review <item.yaml>' to start.")
		return nil
	}

	db, err := store.Open(cfg.Paths.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		hist, err := db.History(ctx, run.ID)
		if err != nil {
			return err
		}
		fmt.Println(formatRun(run))
		for _, e := range hist {
			fmt.Printf("  #%d %-16s %6.1f  %-11s %s\n", e.Attempt, e.Phase, e.Score, e.Verdict, firstLine(e.Feedback))
		}
		return nil
	}

	runs, err := db.ListRuns(ctx, historyTopic, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No matching runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Println(formatRun(r))
	}
	return nil
}

func formatRun(r store.Run) string {
	status := color.GreenString("PASS")
	switch {
	case !r.Success:
		status = color.RedString("FAIL %s", r.FailPoint)
	case r.Conditional:
		status = color.YellowString("CONDITIONAL")
	}
	return fmt.Sprintf("%s  %s  %-20s %-9s attempts=%d tech=%.1f creative=%.1f  %s",
		r.FinishedAt.Local().Format(time.DateTime), r.ID, r.Topic, r.Tier,
		r.Attempts, r.TechScore, r.CreativeScore, status)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
