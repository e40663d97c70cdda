package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pawgate/internal/retry"
)

const (
	exitError       = 1
	exitGateFailure = 2
)

var reviewCmd = &cobra.Command{
	Use:   "review <item.yaml>",
	Short: "Run the full quality gate on one item",
	Long: `Run technical and creative review on a generated item, regenerating
with targeted feedback until it passes or the attempt budget is spent.

The result is written to verdict.json beside the manifest and recorded in
the run ledger. Exit status is 2 when the item must not be published.

Examples:
  pawgate review out/grapes/item.yaml
  PAWGATE_RETRY_MAX_ATTEMPTS=5 pawgate review out/kale/item.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	p, err := newPipeline(cfg, log, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.review(ctx, args[0])
	if err != nil {
		return err
	}
	printVerdict(res.Verdict)
	return res.Err
}

// printVerdict writes a one-item summary to stdout.
func printVerdict(v verdictFile) {
	switch {
	case v.Success && v.Conditional:
		printStatus("⚠", fmt.Sprintf("%s: CONDITIONAL (flag for human review)", v.Topic), color.FgYellow)
	case v.Success:
		printStatus("✓", fmt.Sprintf("%s: PASS", v.Topic), color.FgGreen)
	default:
		printStatus("✗", fmt.Sprintf("%s: FAIL at %s", v.Topic, v.FailPoint), color.FgRed)
	}
	fmt.Printf("  Run:       %s\n", v.RunID)
	fmt.Printf("  Attempts:  %d\n", v.Attempts)
	fmt.Printf("  Technical: %.1f %s\n", v.TechScore, v.TechGrade)
	fmt.Printf("  Creative:  %.1f %s\n", v.CreativeScore, v.CreativeGrade)
	fmt.Printf("  Duration:  %s\n", v.Duration)
	if v.Message != "" {
		fmt.Printf("  Reason:    %s\n", v.Message)
	}
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, retry.ErrGateFailure), errors.Is(err, errTechFailed):
		return exitGateFailure
	case errors.Is(err, context.Canceled):
		return exitGateFailure
	default:
		return exitError
	}
}
