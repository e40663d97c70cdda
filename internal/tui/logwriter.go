package tui

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logBuffer is how many lines may wait for the program to start reading.
const logBuffer = 256

// LogWriter forwards log output to a program, one LogMsg per line, so a
// zap logger writes into the dashboard instead of over it. Lines are
// queued and dropped when the queue is full; Write never blocks.
type LogWriter struct {
	lines   chan LogMsg
	now     func() time.Time
	dropped atomic.Int64
}

// NewLogWriter creates a LogWriter sending to p.
func NewLogWriter(p *tea.Program) *LogWriter {
	return newLogWriter(p.Send, logBuffer)
}

func newLogWriter(send func(tea.Msg), size int) *LogWriter {
	w := &LogWriter{lines: make(chan LogMsg, size), now: time.Now}
	go func() {
		for m := range w.lines {
			send(m)
		}
	}()
	return w
}

func (w *LogWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line == "" {
			continue
		}
		select {
		case w.lines <- LogMsg{Timestamp: w.now(), Line: line}:
		default:
			w.dropped.Add(1)
		}
	}
	return len(b), nil
}

// Sync implements zapcore.WriteSyncer.
func (w *LogWriter) Sync() error {
	return nil
}

// Dropped returns how many lines were discarded because the queue was full.
func (w *LogWriter) Dropped() int64 {
	return w.dropped.Load()
}
