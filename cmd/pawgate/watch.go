package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/pawgate/internal/inbox"
	"github.com/ShayCichocki/pawgate/internal/logging"
	"github.com/ShayCichocki/pawgate/internal/tui"
)

var (
	watchConcurrency int
	watchMetricsAddr string
	watchTUI         bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <inbox>",
	Short: "Review items as they arrive in an inbox directory",
	Long: `Watch a directory for item folders containing item.yaml and run the
full quality gate on each one. Items that already have a verdict.json are
skipped. Runs until interrupted.

Examples:
  pawgate watch ./inbox
  pawgate watch ./inbox --concurrency 4 --metrics-addr :9090
  pawgate watch ./inbox --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchConcurrency, "concurrency", 0, "Items reviewed at once (default from config)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show a live dashboard instead of line output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	concurrency := cfg.Watch.Concurrency
	if watchConcurrency > 0 {
		concurrency = watchConcurrency
	}
	addr := cfg.Watch.MetricsAddr
	if watchMetricsAddr != "" {
		addr = watchMetricsAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var program *tea.Program
	if watchTUI {
		program, _ = tui.NewWatchProgram(args[0], stop)
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		log, err = logging.NewWithSink(level, "console", tui.NewLogWriter(program))
		if err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p, err := newPipeline(cfg, log, reg)
	if err != nil {
		return err
	}
	defer p.Close()

	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("serving metrics", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	w := inbox.New(args[0], concurrency, log)
	if program == nil {
		fmt.Printf("Watching %s (concurrency %d). Press Ctrl+C to stop.\n", args[0], concurrency)
		return w.Run(ctx, func(ctx context.Context, path string) {
			res, err := p.review(ctx, path)
			if err != nil {
				log.Error("review could not start", zap.String("manifest", path), zap.Error(err))
				return
			}
			printVerdict(res.Verdict)
		})
	}

	runErr := make(chan error, 1)
	go func() {
		err := w.Run(ctx, func(ctx context.Context, path string) {
			program.Send(tui.ItemUpdateMsg{Manifest: path, Topic: filepath.Base(filepath.Dir(path)), Status: tui.StatusReviewing})
			res, err := p.review(ctx, path)
			if err != nil {
				program.Send(tui.ItemUpdateMsg{Manifest: path, Status: tui.StatusError, Detail: err.Error()})
				return
			}
			program.Send(itemUpdate(path, res.Verdict))
		})
		program.Send(tui.DoneMsg{Err: err})
		runErr <- err
	}()

	if _, err := program.Run(); err != nil {
		stop()
		<-runErr
		return fmt.Errorf("dashboard: %w", err)
	}
	stop()
	return <-runErr
}

// itemUpdate converts a verdict into a dashboard row.
func itemUpdate(path string, v verdictFile) tui.ItemUpdateMsg {
	msg := tui.ItemUpdateMsg{
		Manifest:      path,
		Topic:         v.Topic,
		Attempts:      v.Attempts,
		TechScore:     v.TechScore,
		CreativeScore: v.CreativeScore,
	}
	switch {
	case v.Success && v.Conditional:
		msg.Status = tui.StatusConditional
	case v.Success:
		msg.Status = tui.StatusPass
	default:
		msg.Status = tui.StatusFail
		msg.Detail = v.FailPoint
		if msg.Detail == "" {
			msg.Detail = v.Message
		}
	}
	return msg
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
