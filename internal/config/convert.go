package config

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/pawgate/internal/creative"
	"github.com/ShayCichocki/pawgate/internal/gate"
	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/internal/rules"
	"github.com/ShayCichocki/pawgate/internal/vision"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Thresholds returns the verdict bands.
func (c *Config) Thresholds() gate.Thresholds {
	return gate.Thresholds{Pass: c.Gate.Pass, Conditional: c.Gate.Conditional}
}

// TechConfig returns the technical review rules.
func (c *Config) TechConfig() gate.TechConfig {
	caption := rules.DefaultCaptionRules()
	caption.MinBullets = c.Caption.MinBullets
	caption.HashtagMin = c.Caption.HashtagMin
	caption.HashtagMax = c.Caption.HashtagMax

	platforms := make([]models.Platform, len(c.Technical.Platforms))
	for i, p := range c.Technical.Platforms {
		platforms[i] = models.Platform(p)
	}

	return gate.TechConfig{
		Width:             c.Technical.Width,
		Height:            c.Technical.Height,
		MinSlides:         c.Technical.MinSlides,
		MaxSlides:         c.Technical.MaxSlides,
		RecommendedSlides: c.Technical.RecommendedSlides,
		NamingPattern:     c.Technical.NamingPattern,
		SafeArea:          rules.SafeArea{Top: c.Technical.SafeTop, Bottom: c.Technical.SafeBottom},
		Caption:           caption,
		Platforms:         platforms,
		Thresholds:        c.Thresholds(),
		Mandatory:         gate.DefaultMandatoryChecks(),
	}
}

// EvaluatorConfig returns the creative evaluator settings.
func (c *Config) EvaluatorConfig() creative.Config {
	return creative.Config{
		SampleSize:        c.Creative.SampleSize,
		FallbackScore:     c.Creative.FallbackScore,
		NeutralSimilarity: c.Creative.NeutralSimilarity,
	}
}

// VisionConfig returns the vision client settings.
func (c *Config) VisionConfig() vision.ClientConfig {
	return vision.ClientConfig{
		Model:         anthropic.Model(c.Anthropic.Model),
		APIKey:        c.Anthropic.APIKey,
		MaxTokens:     c.Anthropic.MaxTokens,
		UseAWSBedrock: c.Anthropic.UseBedrock,
		AWSRegion:     c.Anthropic.AWSRegion,
		AWSProfile:    c.Anthropic.AWSProfile,
	}
}

// GuardConfig returns the limiter and breaker settings.
func (c *Config) GuardConfig() vision.GuardConfig {
	return vision.GuardConfig{
		RequestsPerSecond: c.Anthropic.RequestsPerSecond,
		Burst:             c.Anthropic.Burst,
		FailureThreshold:  c.Anthropic.BreakerFailures,
		OpenTimeout:       c.Anthropic.BreakerTimeout,
	}
}

// Backoff returns the retry backoff.
func (c *Config) Backoff() retry.BackoffConfig {
	return retry.BackoffConfig{Base: c.Retry.BackoffBase, Max: c.Retry.BackoffMax}
}
