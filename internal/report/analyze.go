package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/pawgate/internal/retry"
)

// topFeedbackLimit caps Summary.TopFeedback.
const topFeedbackLimit = 10

// FeedbackCount is a feedback line and how often it appeared.
type FeedbackCount struct {
	Line  string `json:"line"`
	Count int    `json:"count"`
}

// Summary aggregates both streams for pattern analysis.
type Summary struct {
	NeedsRevision int `json:"needs_revision"`
	GateFailures  int `json:"gate_failures"`
	// FailPoints counts terminal failures by fail point.
	FailPoints map[string]int `json:"fail_points"`
	// AverageScore is the mean needs-revision score per phase.
	AverageScore map[string]float64 `json:"average_score"`
	// FailedTopics counts terminal failures per topic.
	FailedTopics map[string]int  `json:"failed_topics"`
	TopFeedback  []FeedbackCount `json:"top_feedback"`
	// Skipped counts lines that could not be decoded.
	Skipped int `json:"skipped"`
}

// Analyze reads the streams under dir. Missing files are treated as empty.
func Analyze(dir string) (*Summary, error) {
	s := &Summary{
		FailPoints:   make(map[string]int),
		AverageScore: make(map[string]float64),
		FailedTopics: make(map[string]int),
	}
	feedback := make(map[string]int)
	scoreSums := make(map[string]float64)
	scoreCounts := make(map[string]int)

	err := scanLines(filepath.Join(dir, NeedsRevisionFile), func(line []byte) {
		var rec retry.NeedsRevision
		if err := json.Unmarshal(line, &rec); err != nil {
			s.Skipped++
			return
		}
		s.NeedsRevision++
		scoreSums[rec.Phase] += rec.Score
		scoreCounts[rec.Phase]++
		countFeedback(feedback, rec.Feedback)
	})
	if err != nil {
		return nil, err
	}

	err = scanLines(filepath.Join(dir, GateFailuresFile), func(line []byte) {
		var rec GateFailure
		if err := json.Unmarshal(line, &rec); err != nil {
			s.Skipped++
			return
		}
		s.GateFailures++
		s.FailPoints[rec.FailPoint]++
		s.FailedTopics[rec.Topic]++
		for _, items := range rec.Feedback {
			for _, fb := range items {
				countFeedback(feedback, fb)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	for phase, sum := range scoreSums {
		s.AverageScore[phase] = sum / float64(scoreCounts[phase])
	}
	s.TopFeedback = topFeedback(feedback, topFeedbackLimit)
	return s, nil
}

func scanLines(path string, fn func([]byte)) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		fn(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}

// countFeedback tallies each non-empty line of a feedback block, ignoring
// list markers so the same improvement counts once however it was listed.
func countFeedback(counts map[string]int, block string) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" {
			counts[line]++
		}
	}
}

func topFeedback(counts map[string]int, limit int) []FeedbackCount {
	out := make([]FeedbackCount, 0, len(counts))
	for line, n := range counts {
		out = append(out, FeedbackCount{Line: line, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Line < out[j].Line
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
