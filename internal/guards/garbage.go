// Package guards implements the pipeline self-correction layer:
//
//	EC1 GarbageInputGuard  - rejects irrelevant input before agent 1 runs
//	EC2 RunStructured      - validates agent handoffs, retries on bad output
//	EC3 RAGMissHandler     - graceful empty-vector-store handling for agent 3
//	EC4 SEODeadEndHandler  - pivots to GEO-only when no SEO keywords exist
//
// Each guard produces a specific typed error (or a non-error degrade result)
// that the orchestrator maps to a clean run status. Nothing malformed ever
// reaches the next agent or the dispatch layer.
package guards

import (
	"log"
	"regexp"
	"strings"

	"github.com/jonathan/strategy-engine/internal/types"
)

// Minimum meaningful content signals
const (
	minCharLength      = 30
	minMeaningfulWords = 5
)

// Patterns that strongly indicate non-research content.
var garbagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(?:lol|555|haha|XD|wtf|omg)\s*$`),             // pure reaction text
	regexp.MustCompile(`(?i)^(?:test|hello|hi|สวัสดี|ทดสอบ)\s*$`),            // greetings / test messages
	regexp.MustCompile(`(?i)(?:flour|butter|sugar|bake|tbsp|cup of|preheat)`), // recipes
	regexp.MustCompile(`(?:def |import |class |function |var |const |let )`),  // source code
	regexp.MustCompile(`(?:https?://\S+\s*){3,}`),                            // mostly URLs
}

// Required: at least one of these consumer experience markers.
var experienceSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:ซื้อ|bought|ordered|purchase|spend|เสีย|paid|จ่าย)`),          // purchase intent
	regexp.MustCompile(`(?i)(?:ปวด|pain|hurt|ache|discomfort|เจ็บ|ไม่สบาย)`),                 // physical symptoms
	regexp.MustCompile(`(?i)(?:ปัญหา|problem|issue|struggle|frustrat|เบื่อ|กังวล|กลัว)`),     // problems / emotions
	regexp.MustCompile(`(?i)(?:รีวิว|review|recommend|แนะนำ|ประสบการณ์|experience|ใช้งาน)`),  // reviews / experience
	regexp.MustCompile(`(?i)(?:อยากได้|want|need|looking for|หา|ต้องการ)`),                   // desire / need
	regexp.MustCompile(`(?i)(?:เปรียบ|compare|vs\.|versus|ดีกว่า|better|worse)`),             // comparisons
	regexp.MustCompile(`(?i)(?:cm|ซม|กิโล|kg|บาท|thb|฿|\$|usd|baht)`),                        // concrete measurements
}

// GarbageInputGuard (EC1) validates that raw input contains researchable
// consumer content. It runs before agent 1 so no model call is wasted on
// unusable input, and again after agent 1 so an empty extraction never
// becomes a malformed success state.
type GarbageInputGuard struct{}

// NewGarbageInputGuard returns a stateless EC1 guard.
func NewGarbageInputGuard() *GarbageInputGuard {
	return &GarbageInputGuard{}
}

// Validate runs the heuristic checks and returns (ok, reason, confidence),
// where confidence is 0.0-1.0 and 1.0 means definitely garbage.
func (g *GarbageInputGuard) Validate(text string) (bool, string, float64) {
	stripped := strings.TrimSpace(text)

	if len(stripped) < minCharLength {
		return false, "input too short: not enough context to extract consumer intent", 0.95
	}

	words := strings.Fields(strings.ToLower(stripped))
	if len(words) < minMeaningfulWords {
		return false, "too few words to contain researchable content", 0.9
	}

	for _, pattern := range garbagePatterns {
		if pattern.MatchString(stripped) {
			return false, "input matches a non-research pattern (reaction, recipe, code, or URL dump)", 0.88
		}
	}

	found := false
	for _, signal := range experienceSignals {
		if signal.MatchString(stripped) {
			found = true
			break
		}
	}
	if !found {
		return false, "no consumer experience signals found (no purchase, pain, emotion, or measurement markers); paste user comments, reviews, or research notes", 0.75
	}

	// Word diversity check: the same word repeated over and over is spam.
	if len(words) >= 10 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		ratio := float64(len(unique)) / float64(len(words))
		if ratio < 0.3 {
			return false, "input appears to be spam (low word diversity)", 0.82
		}
	}

	return true, "ok", 0.0
}

// Check runs validation and returns a *GarbageInputError when the input is
// unusable. Call this at the start of stage 1.
func (g *GarbageInputGuard) Check(text string) error {
	ok, reason, confidence := g.Validate(text)
	if !ok {
		log.Printf("[EC1] Garbage input rejected: %s (confidence=%.2f)", reason, confidence)
		return &GarbageInputError{Reason: reason, Confidence: confidence}
	}
	log.Printf("[EC1] Input validated OK (%d chars)", len(text))
	return nil
}

// CheckIntent re-runs EC1 after agent 1: an extraction with no pain points
// means the model produced nothing actionable even though the input looked
// plausible. Same error type, post-hoc.
func (g *GarbageInputGuard) CheckIntent(intent *types.ExtractedIntent) error {
	if intent == nil || len(intent.CorePainPoints) == 0 {
		log.Printf("[EC1] Post-extraction reject: no pain points extracted")
		return &GarbageInputError{
			Reason:     "no pain points could be extracted from the input",
			Confidence: 0.7,
		}
	}
	return nil
}
