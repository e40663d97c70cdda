package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheck_ClampsScore(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		max       int
		wantScore int
		wantPass  bool
	}{
		{"within range", 3, 5, 3, false},
		{"at ceiling", 5, 5, 5, true},
		{"above ceiling", 9, 5, 5, true},
		{"negative", -2, 5, 0, false},
		{"zero max", 1, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCheck("x", tt.score, tt.max, "", SeverityInfo)
			assert.Equal(t, tt.wantScore, c.Score)
			assert.Equal(t, tt.wantPass, c.Passed)
			assert.Equal(t, NoSlide, c.Slide)
		})
	}
}

func TestSkip_CarriesNoPoints(t *testing.T) {
	c := Skip("text_position", "no box")
	assert.True(t, c.Passed)
	assert.Zero(t, c.Score)
	assert.Zero(t, c.MaxScore)
	assert.Equal(t, SeverityInfo, c.Severity)
}

func TestCheckResult_WithEvidenceDoesNotAlias(t *testing.T) {
	base := Fail("resolution", "bad").WithEvidence("width", 1079)
	other := base.WithEvidence("height", 1080)

	assert.Len(t, base.Evidence, 1)
	assert.Len(t, other.Evidence, 2)
	assert.Equal(t, 1079.0, other.Evidence["width"])
}

func TestVerdict_MayProceed(t *testing.T) {
	assert.True(t, VerdictPass.MayProceed())
	assert.True(t, VerdictConditional.MayProceed())
	assert.False(t, VerdictFail.MayProceed())
}
