package models

import (
	"fmt"
	"strings"
)

// SafetyTier classifies how safe a food topic is for dogs. It is assigned
// upstream and never changes for the lifetime of a ReviewItem.
type SafetyTier string

const (
	// TierSafe is for foods dogs can eat freely in moderation.
	TierSafe SafetyTier = "SAFE"
	// TierCaution is for foods that are fine only with preparation or limits.
	TierCaution SafetyTier = "CAUTION"
	// TierDanger is for foods that can cause harm in normal amounts.
	TierDanger SafetyTier = "DANGER"
	// TierForbidden is for foods that must never be fed.
	TierForbidden SafetyTier = "FORBIDDEN"
)

// Valid returns true if the tier is a known value.
func (t SafetyTier) Valid() bool {
	switch t {
	case TierSafe, TierCaution, TierDanger, TierForbidden:
		return true
	default:
		return false
	}
}

// RequiresProhibition reports whether captions for this tier must carry an
// explicit "do not feed" section.
func (t SafetyTier) RequiresProhibition() bool {
	switch t {
	case TierCaution, TierDanger, TierForbidden:
		return true
	default:
		return false
	}
}

// ParseSafetyTier parses a tier name case-insensitively.
func ParseSafetyTier(s string) (SafetyTier, error) {
	t := SafetyTier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown safety tier %q", s)
	}
	return t, nil
}
