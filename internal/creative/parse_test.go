package creative

import (
	"errors"
	"testing"
)

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTotal int
		wantErr   bool
		wantSlide []int
	}{
		{
			name:      "plain json",
			raw:       `{"scores": {"hook": 5, "flow": 4, "clarity": 4, "payoff": 3, "cta_strength": 2}, "problem_slides": [2]}`,
			wantTotal: 18,
			wantSlide: []int{2},
		},
		{
			name:      "json in code fence",
			raw:       "```json\n{\"scores\": {\"hook\": 5, \"flow\": 5, \"clarity\": 5, \"payoff\": 5, \"cta_strength\": 5}}\n```",
			wantTotal: 25,
		},
		{
			name:      "out of range values clamped",
			raw:       `{"scores": {"hook": 9, "flow": -3, "clarity": 5, "payoff": 5, "cta_strength": 5}}`,
			wantTotal: 20,
		},
		{
			name:      "missing sub-item counts as zero",
			raw:       `{"scores": {"hook": 4}}`,
			wantTotal: 4,
		},
		{
			name:      "invalid and duplicate slides dropped",
			raw:       `{"scores": {"hook": 1}, "problem_slides": [-1, 0, 0, 3, 9]}`,
			wantTotal: 1,
			wantSlide: []int{0, 3},
		},
		{
			name:    "no json",
			raw:     "looks great",
			wantErr: true,
		},
		{
			name:    "wrong category items",
			raw:     `{"scores": {"warmth": 5}}`,
			wantErr: true,
		},
		{
			name:    "broken json",
			raw:     `{"scores": {"hook": }`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssessment(CategoryStorytelling, tt.raw, 5)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedAssessment) {
					t.Fatalf("error = %v, want ErrMalformedAssessment", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAssessment() error = %v", err)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got.Total, tt.wantTotal)
			}
			if len(got.ProblemSlides) != len(tt.wantSlide) {
				t.Fatalf("ProblemSlides = %v, want %v", got.ProblemSlides, tt.wantSlide)
			}
			for i := range tt.wantSlide {
				if got.ProblemSlides[i] != tt.wantSlide[i] {
					t.Errorf("ProblemSlides = %v, want %v", got.ProblemSlides, tt.wantSlide)
				}
			}
			if !got.VLMUsed {
				t.Error("VLMUsed should be true for parsed replies")
			}
		})
	}
}
