// Package regen connects the retry loop to the external content generator.
package regen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	iexec "github.com/ShayCichocki/pawgate/internal/exec"
	"github.com/ShayCichocki/pawgate/internal/manifest"
	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

// ErrNoCommand is returned when a regeneration is needed but no generator
// command is configured. It is unrecoverable.
var ErrNoCommand = errors.New("no generator command configured")

// CommandRegenerator runs a shell command per attempt. The command gets the
// improvement prompt on stdin and PAWGATE_* variables describing the
// attempt, and must write item.yaml into PAWGATE_OUTPUT_DIR.
type CommandRegenerator struct {
	runner  iexec.CommandRunner
	command string
	workDir string
	outRoot string
	timeout time.Duration
	log     *zap.Logger
}

// CommandConfig configures a CommandRegenerator.
type CommandConfig struct {
	Command string
	// WorkDir is where the command runs.
	WorkDir string
	// OutputRoot receives one directory per attempt.
	OutputRoot string
	Timeout    time.Duration
}

// NewCommandRegenerator creates a CommandRegenerator. log may be nil.
func NewCommandRegenerator(runner iexec.CommandRunner, cfg CommandConfig, log *zap.Logger) *CommandRegenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandRegenerator{
		runner:  runner,
		command: cfg.Command,
		workDir: cfg.WorkDir,
		outRoot: cfg.OutputRoot,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// OutputDir is the directory an attempt writes into.
func (g *CommandRegenerator) OutputDir(topic string, attempt int) string {
	return filepath.Join(g.outRoot, fmt.Sprintf("%s-attempt-%d", topic, attempt))
}

// Regenerate implements retry.Regenerator. The attempt directory is removed
// again when the attempt fails, since no item ever points at it.
func (g *CommandRegenerator) Regenerate(ctx context.Context, req retry.RegenerateRequest) (_ models.ReviewItem, err error) {
	if strings.TrimSpace(g.command) == "" {
		return models.ReviewItem{}, retry.Unrecoverable(ErrNoCommand)
	}

	outDir := g.OutputDir(req.Seed.Topic, req.Attempt)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return models.ReviewItem{}, fmt.Errorf("create output dir: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.RemoveAll(outDir); rmErr != nil {
			g.log.Warn("remove failed attempt dir", zap.String("dir", outDir), zap.Error(rmErr))
		}
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := iexec.Shell(g.command)
	cmd.Dir = g.workDir
	cmd.Env = Env(req, outDir)
	cmd.Stdin = req.Prompt

	start := time.Now()
	out, err := g.runner.Run(ctx, cmd)
	if err != nil {
		return models.ReviewItem{}, fmt.Errorf("generator command: %w", err)
	}
	g.log.Info("generator finished",
		zap.String("topic", req.Seed.Topic),
		zap.Int("attempt", req.Attempt),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("output_bytes", len(out)))

	item, err := manifest.Load(filepath.Join(outDir, manifest.FileName))
	if err != nil {
		return models.ReviewItem{}, fmt.Errorf("load generated manifest: %w", err)
	}
	if item.Attempt == 0 {
		item.Attempt = req.Attempt
	}
	return item, nil
}

// Env lists the PAWGATE_* variables passed to the generator command.
func Env(req retry.RegenerateRequest, outDir string) []string {
	slides := ""
	if s := req.Slides.UnwrapOr(nil); len(s) > 0 {
		parts := make([]string, len(s))
		for i, idx := range s {
			parts[i] = strconv.Itoa(idx)
		}
		slides = strings.Join(parts, ",")
	}

	return []string{
		"PAWGATE_TOPIC=" + req.Seed.Topic,
		"PAWGATE_TIER=" + string(req.Seed.Tier),
		"PAWGATE_ATTEMPT=" + strconv.Itoa(req.Attempt),
		"PAWGATE_MAX_ATTEMPTS=" + strconv.Itoa(req.MaxAttempts),
		"PAWGATE_STRATEGY=" + string(req.Strategy),
		"PAWGATE_SLIDES=" + slides,
		"PAWGATE_OUTPUT_DIR=" + outDir,
		"PAWGATE_PREVIOUS_DIR=" + req.Previous.ImagesDir,
	}
}

// Seeded returns the upstream item on attempt 1 and delegates later
// attempts to Next.
type Seeded struct {
	Item models.ReviewItem
	Next retry.Regenerator
}

// Regenerate implements retry.Regenerator.
func (s Seeded) Regenerate(ctx context.Context, req retry.RegenerateRequest) (models.ReviewItem, error) {
	if req.Attempt <= 1 {
		item := s.Item
		item.Attempt = 1
		return item, nil
	}
	if s.Next == nil {
		return models.ReviewItem{}, retry.Unrecoverable(ErrNoCommand)
	}
	return s.Next.Regenerate(ctx, req)
}

var (
	_ retry.Regenerator = (*CommandRegenerator)(nil)
	_ retry.Regenerator = Seeded{}
)
