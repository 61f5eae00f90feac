package agents

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Evaluation is the verdict of the response quality layer for one oracle
// response. Confidence runs 0..1; Issues explain every deduction.
type Evaluation struct {
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues,omitempty"`
	Confused   bool     `json:"confused"`
}

// Confusion phrases are matched as case-insensitive regexes so minor
// punctuation and casing differences still register.
var confusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bnot sure\b`),
	regexp.MustCompile(`(?i)\bi am unsure\b`),
	regexp.MustCompile(`(?i)\bi'?m confused\b`),
	regexp.MustCompile(`(?i)could you clarify`),
	regexp.MustCompile(`(?i)\bunclear what\b`),
	regexp.MustCompile(`(?i)\bwhat do you mean\b`),
	regexp.MustCompile(`(?i)\bcannot determine\b`),
}

var hedgeWords = []string{"maybe", "perhaps", "possibly", "might", "probably", "i think", "it seems"}

var errorPhrases = []string{"error:", "exception", "traceback", "failed to", "cannot complete"}

const minResponseLength = 10

// Evaluate scores an oracle response. The scoring walk starts at 1.0 and
// deducts per issue class:
//
//	empty or shorter than 10 chars   -> confidence 0, invalid
//	each confusion phrase            -> -0.3
//	more than 2 hedge words          -> -0.2
//	expected JSON, none found        -> -0.4
//	expected JSON, unparsable        -> -0.3
//	embedded error phrase            -> -0.2
//
// clamped at 0. Valid means confidence >= 0.5 with no confusion detected.
func Evaluate(response string, expectJSON bool) Evaluation {
	trimmed := strings.TrimSpace(response)
	if len(trimmed) < minResponseLength {
		return Evaluation{
			IsValid:    false,
			Confidence: 0,
			Issues:     []string{"response empty or too short"},
		}
	}
	confidence := 1.0
	var issues []string
	confused := false
	for _, pattern := range confusionPatterns {
		if pattern.MatchString(trimmed) {
			confused = true
			confidence -= 0.3
			issues = append(issues, "confusion phrase: "+pattern.String())
		}
	}
	lower := strings.ToLower(trimmed)
	hedges := 0
	for _, word := range hedgeWords {
		hedges += strings.Count(lower, word)
	}
	if hedges > 2 {
		confidence -= 0.2
		issues = append(issues, "excessive hedging")
	}
	if expectJSON {
		snippet := ExtractJSON(trimmed)
		if snippet == "" {
			confidence -= 0.4
			issues = append(issues, "expected JSON but none found")
		} else if !json.Valid([]byte(snippet)) {
			confidence -= 0.3
			issues = append(issues, "JSON payload does not parse")
		}
	}
	for _, phrase := range errorPhrases {
		if strings.Contains(lower, phrase) {
			confidence -= 0.2
			issues = append(issues, "embedded error phrase: "+phrase)
			break
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	return Evaluation{
		IsValid:    confidence >= 0.5 && !confused,
		Confidence: confidence,
		Issues:     issues,
		Confused:   confused,
	}
}

// Completion indicators mark responses that claim the work is done;
// incomplete markers contradict that claim.
var completionIndicators = []string{"finish(", "task complete", "task is complete", "all done", "implementation complete"}

var incompleteMarkers = []string{"todo:", "placeholder", "not implemented", "notimplementederror", "fixme"}

// ClaimsCompletion reports whether a response asserts completion without
// carrying contradictory unfinished-work markers.
func ClaimsCompletion(response string) bool {
	lower := strings.ToLower(response)
	claimed := false
	for _, indicator := range completionIndicators {
		if strings.Contains(lower, indicator) {
			claimed = true
			break
		}
	}
	if !claimed {
		return false
	}
	for _, marker := range incompleteMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// RequireFields checks a decoded JSON object for required keys and returns
// the missing ones.
func RequireFields(raw string, fields ...string) []string {
	var obj map[string]interface{}
	if err := DecodeJSON(raw, &obj); err != nil {
		return fields
	}
	var missing []string
	for _, field := range fields {
		if _, ok := obj[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
