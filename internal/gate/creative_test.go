package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShayCichocki/pawgate/internal/creative"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

type downBackend struct{}

func (downBackend) Assess(context.Context, creative.AssessRequest) (string, error) {
	return "", errors.New("connection refused")
}

func TestAggregate(t *testing.T) {
	cats := []models.CategoryScore{
		{Category: "aesthetic", Total: 24, Feedback: "clean", ProblemSlides: []int{3}},
		{Category: "emotion", Total: 23, Feedback: "warm", Improvements: []string{"brighter cover"}},
		{Category: "storytelling", Total: 22, Feedback: "clear", ProblemSlides: []int{1, 3}},
		{Category: "diversity", Total: 23, Feedback: "varied"},
	}

	v := Aggregate(cats, DefaultThresholds())

	assert.Equal(t, models.PhaseCreative, v.Phase)
	assert.Equal(t, 92.0, v.Score)
	assert.Equal(t, models.VerdictPass, v.Verdict)
	assert.Equal(t, "A", v.Grade)
	assert.Equal(t, []int{1, 3}, v.ProblemSlides)
	assert.Contains(t, v.Feedback, "emotion (23/25): warm")
	assert.Contains(t, v.Feedback, "- brighter cover")
}

func TestCreativeReviewer_BackendDownFallsBack(t *testing.T) {
	eval := creative.NewEvaluator(downBackend{}, creative.DefaultConfig(), zaptest.NewLogger(t))
	r, err := NewCreativeReviewer(creative.NewPanel(eval), DefaultThresholds())
	require.NoError(t, err)

	v := r.Review(context.Background(), models.ReviewItem{Slides: []models.Slide{{Path: "a.png"}}}, nil)

	require.Len(t, v.Categories, 4)
	for _, c := range v.Categories {
		assert.False(t, c.VLMUsed)
		assert.Equal(t, 15, c.Total)
	}
	assert.Equal(t, 60.0, v.Score)
	assert.Equal(t, models.VerdictFail, v.Verdict)
}
