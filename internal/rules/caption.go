package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Caption sub-check identifiers, in the order they run.
const (
	CheckIDSafetyEmoji  = "caption.safety_emoji"
	CheckIDBullets      = "caption.bullets"
	CheckIDProhibition  = "caption.prohibition"
	CheckIDDosage       = "caption.dosage"
	CheckIDKeyMessage   = "caption.key_message"
	CheckIDCTA          = "caption.cta"
	CheckIDAIDisclosure = "caption.ai_disclosure"
	CheckIDHashtags     = "caption.hashtags"
)

// captionCheckCount is the size of the battery; Valid requires all of them.
const captionCheckCount = 8

var (
	bulletPattern     = regexp.MustCompile(`(?m)^[ \t]*(?:[•·▪◦✔☑\-\*][ \t]*|\d+[.)][ \t]+)\S`)
	hashtagPattern    = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	quotedTextPattern = regexp.MustCompile(`["“][^"”\n]{2,}["”]`)
)

// DosageSize is one breed size class and the words that identify it.
type DosageSize struct {
	Label    string
	Keywords []string
}

// CaptionRules holds the tunable inputs of the caption battery.
type CaptionRules struct {
	MinBullets          int
	HashtagMin          int
	HashtagMax          int
	SafetyEmojis        []string
	ProhibitionKeywords []string
	DosageSizes         []DosageSize
	CalloutEmojis       []string
	CTAPhrases          []string
	AIDisclosures       []string
}

// DefaultCaptionRules returns the current production caption rules.
func DefaultCaptionRules() CaptionRules {
	return CaptionRules{
		MinBullets:          3,
		HashtagMin:          12,
		HashtagMax:          16,
		SafetyEmojis:        []string{"🟢", "🟡", "🟠", "🔴", "⛔", "🚫", "✅", "⚠", "❌"},
		ProhibitionKeywords: []string{"절대 금지", "급여 금지", "금지", "주지 마세요", "주면 안", "피하세요"},
		DosageSizes: []DosageSize{
			{Label: "소형견", Keywords: []string{"소형견", "소형"}},
			{Label: "중형견", Keywords: []string{"중형견", "중형"}},
			{Label: "대형견", Keywords: []string{"대형견", "대형"}},
		},
		CalloutEmojis: []string{"💡", "📌", "❗", "💬"},
		CTAPhrases:    []string{"저장", "공유", "팔로우", "댓글"},
		AIDisclosures: []string{"AI 생성", "AI로 생성", "AI-generated", "AI generated"},
	}
}

// CaptionReport is the outcome of the caption battery.
type CaptionReport struct {
	// Valid is true only when every sub-check passed.
	Valid bool
	// Score is the number of passing sub-checks.
	Score int
	// MaxScore is the number of sub-checks (8).
	MaxScore int
	// Errors holds one message per failing sub-check, in battery order.
	Errors []string
	// Checks holds every sub-check result, in battery order.
	Checks []models.CheckResult
}

// ScoreString renders the score as "earned/max".
func (r CaptionReport) ScoreString() string {
	return fmt.Sprintf("%d/%d", r.Score, r.MaxScore)
}

// CheckCaptionStructure runs the ordered 8-point battery against a caption.
// Every sub-check always runs so the report lists all missing elements at
// once. The result depends only on the caption, tier and rules.
func CheckCaptionStructure(caption string, tier models.SafetyTier, rules CaptionRules) CaptionReport {
	checks := []models.CheckResult{
		checkSafetyEmoji(caption, rules),
		checkBullets(caption, rules),
		checkProhibition(caption, tier, rules),
		checkDosage(caption, rules),
		checkKeyMessage(caption, rules),
		checkCTA(caption, rules),
		checkAIDisclosure(caption, rules),
		checkHashtags(caption, rules),
	}

	report := CaptionReport{
		MaxScore: captionCheckCount,
		Checks:   checks,
	}
	for _, c := range checks {
		if c.Passed {
			report.Score++
			continue
		}
		report.Errors = append(report.Errors, c.Reason)
	}
	report.Valid = report.Score == report.MaxScore

	return report
}

func checkSafetyEmoji(caption string, rules CaptionRules) models.CheckResult {
	if containsAny(caption, rules.SafetyEmojis) {
		return models.Pass(CheckIDSafetyEmoji, "safety emoji present")
	}
	return models.Fail(CheckIDSafetyEmoji, "안전 이모지 누락 (🟢/🟡/🔴 등 필요)")
}

func checkBullets(caption string, rules CaptionRules) models.CheckResult {
	n := len(bulletPattern.FindAllString(caption, -1))
	if n >= rules.MinBullets {
		return models.Pass(CheckIDBullets, fmt.Sprintf("%d bullets", n)).WithEvidence("bullets", float64(n))
	}
	return models.Fail(CheckIDBullets, fmt.Sprintf("불릿 항목 부족: %d개 (필요: %d개 이상)", n, rules.MinBullets)).
		WithEvidence("bullets", float64(n))
}

func checkProhibition(caption string, tier models.SafetyTier, rules CaptionRules) models.CheckResult {
	if !tier.RequiresProhibition() {
		return models.Pass(CheckIDProhibition, fmt.Sprintf("not required for %s", tier))
	}
	if containsAny(caption, rules.ProhibitionKeywords) {
		return models.Pass(CheckIDProhibition, "prohibition section present")
	}
	return models.Fail(CheckIDProhibition, fmt.Sprintf("절대 금지 항목 누락 (%s 등급 필수)", tier))
}

func checkDosage(caption string, rules CaptionRules) models.CheckResult {
	var missing []string
	for _, size := range rules.DosageSizes {
		if !containsAny(caption, size.Keywords) {
			missing = append(missing, size.Label)
		}
	}
	found := float64(len(rules.DosageSizes) - len(missing))
	if len(missing) == 0 {
		return models.Pass(CheckIDDosage, "dosage for every size").WithEvidence("sizes", found)
	}
	return models.Fail(CheckIDDosage, fmt.Sprintf("체급별 급여량 누락: %s", strings.Join(missing, ", "))).
		WithEvidence("sizes", found)
}

func checkKeyMessage(caption string, rules CaptionRules) models.CheckResult {
	if quotedTextPattern.MatchString(caption) || containsAny(caption, rules.CalloutEmojis) {
		return models.Pass(CheckIDKeyMessage, "key message marked")
	}
	return models.Fail(CheckIDKeyMessage, "핵심 메시지 표시 누락 (인용문 또는 💡/📌 필요)")
}

func checkCTA(caption string, rules CaptionRules) models.CheckResult {
	if containsAny(caption, rules.CTAPhrases) {
		return models.Pass(CheckIDCTA, "call to action present")
	}
	return models.Fail(CheckIDCTA, "CTA 문구 누락 (저장/공유 등 필요)")
}

func checkAIDisclosure(caption string, rules CaptionRules) models.CheckResult {
	if containsAny(caption, rules.AIDisclosures) {
		return models.Pass(CheckIDAIDisclosure, "AI disclosure present")
	}
	return models.Fail(CheckIDAIDisclosure, "AI 생성 고지 누락")
}

func checkHashtags(caption string, rules CaptionRules) models.CheckResult {
	n := len(hashtagPattern.FindAllString(caption, -1))
	if n >= rules.HashtagMin && n <= rules.HashtagMax {
		return models.Pass(CheckIDHashtags, fmt.Sprintf("%d hashtags", n)).WithEvidence("hashtags", float64(n))
	}
	return models.Fail(CheckIDHashtags, fmt.Sprintf("해시태그 개수 오류: %d개 (필요: %d~%d개)", n, rules.HashtagMin, rules.HashtagMax)).
		WithEvidence("hashtags", float64(n))
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
