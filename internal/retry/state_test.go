package retry

import (
	"errors"
	"testing"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

func TestTransition(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		state   State
		event   Event
		attempt int
		want    State
		wantErr bool
	}{
		{"generated", StateGenerating, GeneratedEvent{}, 1, StateTechReview, false},
		{"generation failed with attempts left", StateGenerating, GenerationFailedEvent{Err: boom}, 1, StateRetry, false},
		{"generation failed on last attempt", StateGenerating, GenerationFailedEvent{Err: boom}, 3, StateTerminalFail, false},
		{"tech pass", StateTechReview, TechVerdictEvent{Verdict: models.VerdictPass}, 1, StateCreativeReview, false},
		{"tech conditional proceeds", StateTechReview, TechVerdictEvent{Verdict: models.VerdictConditional}, 1, StateCreativeReview, false},
		{"tech fail retries", StateTechReview, TechVerdictEvent{Verdict: models.VerdictFail}, 2, StateRetry, false},
		{"tech fail exhausted", StateTechReview, TechVerdictEvent{Verdict: models.VerdictFail}, 3, StateTerminalFail, false},
		{"tech review error", StateTechReview, ReviewFailedEvent{Err: boom}, 1, StateRetry, false},
		{"creative pass", StateCreativeReview, CreativeVerdictEvent{Verdict: models.VerdictPass}, 3, StateDone, false},
		{"creative conditional", StateCreativeReview, CreativeVerdictEvent{Verdict: models.VerdictConditional}, 1, StateDone, false},
		{"creative fail retries", StateCreativeReview, CreativeVerdictEvent{Verdict: models.VerdictFail}, 1, StateRetry, false},
		{"creative fail exhausted", StateCreativeReview, CreativeVerdictEvent{Verdict: models.VerdictFail}, 3, StateTerminalFail, false},
		{"backoff elapsed", StateRetry, BackoffElapsedEvent{}, 1, StateGenerating, false},
		{"cancel while retrying", StateRetry, CancelledEvent{}, 1, StateTerminalFail, false},
		{"cancel while generating", StateGenerating, CancelledEvent{}, 1, StateTerminalFail, false},
		{"unrecoverable with attempts left", StateGenerating, UnrecoverableEvent{Err: boom}, 1, StateTerminalFail, false},
		{"tech verdict in generating", StateGenerating, TechVerdictEvent{Verdict: models.VerdictPass}, 1, StateGenerating, true},
		{"creative verdict in tech review", StateTechReview, CreativeVerdictEvent{Verdict: models.VerdictPass}, 1, StateTechReview, true},
		{"anything after done", StateDone, GeneratedEvent{}, 1, StateDone, true},
		{"anything after terminal fail", StateTerminalFail, CancelledEvent{}, 1, StateTerminalFail, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.event, tt.attempt, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error %v is not ErrInvalidTransition", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFailPointFor(t *testing.T) {
	tests := []struct {
		state State
		event Event
		want  FailPoint
	}{
		{StateTechReview, TechVerdictEvent{}, FailPointTechReview},
		{StateCreativeReview, CreativeVerdictEvent{}, FailPointCreativeReview},
		{StateGenerating, GenerationFailedEvent{}, FailPointGeneration},
		{StateRetry, CancelledEvent{}, FailPointCancelled},
		{StateGenerating, CancelledEvent{}, FailPointCancelled},
	}
	for _, tt := range tests {
		if got := failPointFor(tt.state, tt.event); got != tt.want {
			t.Errorf("failPointFor(%s, %T) = %s, want %s", tt.state, tt.event, got, tt.want)
		}
	}
}
