package creative

import (
	"fmt"
	"strings"
)

var categoryGuides = map[Category]string{
	CategoryAesthetic:    "Judge the visual craft of the carousel: layout balance, palette, legibility of the overlay text and consistency with the brand look.",
	CategoryEmotion:      "Judge how the carousel feels to a dog owner scrolling a feed: warmth, relatability, how appealing the dog imagery is and whether it builds trust.",
	CategoryStorytelling: "Judge the carousel as a sequence: does the cover hook, do slides flow in order, is the safety message clear and does it end with a clear call to action.",
	CategoryDiversity:    "Judge variety across slides and distance from the reference set: repeated layouts, palettes or subjects and content that looks copied from past posts lose points.",
}

// buildPrompt constructs the scoring prompt for one category.
func buildPrompt(c Category, imageCount int, hasReferences bool) string {
	var sb strings.Builder

	sb.WriteString("# Creative Review\n\n")
	sb.WriteString("You are reviewing an Instagram carousel about whether a food is safe for dogs.\n")
	sb.WriteString(fmt.Sprintf("The first %d slides are attached in order (slide index starts at 0).\n", imageCount))
	if hasReferences && c == CategoryDiversity {
		sb.WriteString("Images after the carousel slides are past reference posts for comparison.\n")
	}
	sb.WriteString("\n## Category: ")
	sb.WriteString(string(c))
	sb.WriteString("\n\n")
	sb.WriteString(categoryGuides[c])
	sb.WriteString("\n\n## Sub-items (integer 0-5 each)\n\n")
	for _, item := range subItems[c] {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}

	sb.WriteString("\n## Response Format\n\n")
	sb.WriteString("Respond with a single JSON object and nothing else:\n")
	sb.WriteString("{\n  \"scores\": {")
	for i, item := range subItems[c] {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%q: 0", item))
	}
	sb.WriteString("},\n")
	sb.WriteString("  \"feedback\": \"one or two sentences\",\n")
	sb.WriteString("  \"strengths\": [\"...\"],\n")
	sb.WriteString("  \"improvements\": [\"concrete change for the next render\"],\n")
	sb.WriteString("  \"problem_slides\": [slide indices that need regeneration]\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Be strict: 5 means publishable without changes, 3 is average, 1 is clearly broken.\n")

	return sb.String()
}
