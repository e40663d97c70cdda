package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pawgate/internal/report"
)

var (
	failuresDir  string
	failuresJSON bool
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Summarize recorded gate failures",
	Long: `Read needs_revision.jsonl and gate_failures.jsonl and summarize where
items fail, their average scores per phase, and the most frequent feedback.`,
	Args: cobra.NoArgs,
	RunE: runFailures,
}

func init() {
	failuresCmd.Flags().StringVar(&failuresDir, "dir", "", "Report directory (default from config)")
	failuresCmd.Flags().BoolVar(&failuresJSON, "json", false, "Print the summary as JSON")
}

func runFailures(cmd *cobra.Command, args []string) error {
	dir := failuresDir
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir = cfg.Paths.ReportDir
	}

	sum, err := report.Analyze(dir)
	if err != nil {
		return err
	}

	if failuresJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(sum)
	return nil
}

func printSummary(sum *report.Summary) {
	bold := color.New(color.Bold)

	bold.Println("Records")
	fmt.Printf("  needs revision: %d\n", sum.NeedsRevision)
	fmt.Printf("  gate failures:  %d\n", sum.GateFailures)
	if sum.Skipped > 0 {
		color.Yellow("  skipped malformed lines: %d", sum.Skipped)
	}

	if len(sum.FailPoints) > 0 {
		fmt.Println()
		bold.Println("Fail points")
		for _, k := range sortedByCount(sum.FailPoints) {
			fmt.Printf("  %-16s %d\n", k, sum.FailPoints[k])
		}
	}

	if len(sum.AverageScore) > 0 {
		fmt.Println()
		bold.Println("Average score at revision")
		phases := make([]string, 0, len(sum.AverageScore))
		for k := range sum.AverageScore {
			phases = append(phases, k)
		}
		sort.Strings(phases)
		for _, k := range phases {
			fmt.Printf("  %-16s %.1f\n", k, sum.AverageScore[k])
		}
	}

	if len(sum.FailedTopics) > 0 {
		fmt.Println()
		bold.Println("Failed topics")
		for _, k := range sortedByCount(sum.FailedTopics) {
			fmt.Printf("  %-16s %d\n", k, sum.FailedTopics[k])
		}
	}

	if len(sum.TopFeedback) > 0 {
		fmt.Println()
		bold.Println("Most frequent feedback")
		for _, f := range sum.TopFeedback {
			fmt.Printf("  %3d  %s\n", f.Count, f.Line)
		}
	}
}

// sortedByCount orders keys by descending count, then name.
func sortedByCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
