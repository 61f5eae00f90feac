package agents

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lexcodex/autoforge/framework"
)

// ErrorClass buckets failure text by the language error it resembles.
type ErrorClass string

const (
	ErrorSyntax      ErrorClass = "syntax"
	ErrorType        ErrorClass = "type"
	ErrorName        ErrorClass = "name"
	ErrorValue       ErrorClass = "value"
	ErrorAttribute   ErrorClass = "attribute"
	ErrorImport      ErrorClass = "import"
	ErrorIndentation ErrorClass = "indentation"
	ErrorKey         ErrorClass = "key"
	ErrorIndex       ErrorClass = "index"
	ErrorUnknown     ErrorClass = "unknown"
)

// Diagnosis is the structured output of the auto debugger for one failure.
type Diagnosis struct {
	Class       ErrorClass `json:"class"`
	Line        int        `json:"line,omitempty"`
	Severity    string     `json:"severity"`
	Suggestions []string   `json:"suggestions"`
}

// Actionable reports whether the diagnosis carries suggestions worth a
// retry. The engine's self-heal pass requeues a failed task only when this
// is true.
func (d Diagnosis) Actionable() bool { return len(d.Suggestions) > 0 }

var errorClassPatterns = []struct {
	class ErrorClass
	re    *regexp.Regexp
}{
	{ErrorIndentation, regexp.MustCompile(`(?i)indent`)},
	{ErrorSyntax, regexp.MustCompile(`(?i)syntax\s*error|unexpected token|parse error`)},
	{ErrorImport, regexp.MustCompile(`(?i)import\s*error|module not found|cannot find (?:module|package)`)},
	{ErrorType, regexp.MustCompile(`(?i)type\s*error|is not a function|mismatched types`)},
	{ErrorName, regexp.MustCompile(`(?i)name\s*error|is not defined|undefined:`)},
	{ErrorAttribute, regexp.MustCompile(`(?i)attribute\s*error|has no attribute|undefined property`)},
	{ErrorValue, regexp.MustCompile(`(?i)value\s*error|invalid value`)},
	{ErrorKey, regexp.MustCompile(`(?i)key\s*error|missing key`)},
	{ErrorIndex, regexp.MustCompile(`(?i)index\s*error|out of range|out of bounds`)},
}

var lineNumberPattern = regexp.MustCompile(`line (\d+)`)

// Static fallback suggestions per error class, used when the oracle cannot
// help. Kept short and generic on purpose; they seed the retry prompt.
var fallbackSuggestions = map[ErrorClass][]string{
	ErrorSyntax:      {"Re-check brackets, quotes, and statement terminators near the reported line.", "Rewrite the smallest failing block from scratch."},
	ErrorType:        {"Check the types flowing into the failing call and add explicit conversions."},
	ErrorName:        {"Define or import the missing identifier before first use."},
	ErrorValue:       {"Validate input values before the failing operation."},
	ErrorAttribute:   {"Confirm the object actually exposes the accessed field or method."},
	ErrorImport:      {"Install the missing dependency or fix the module path."},
	ErrorIndentation: {"Normalize indentation to a consistent width across the file."},
	ErrorKey:         {"Guard the map access with an existence check or provide a default."},
	ErrorIndex:       {"Bound the index against the collection length before access."},
	ErrorUnknown:     {"Reproduce the failure with a minimal command and inspect its full output."},
}

// AutoDebugger classifies failure text and proposes fixes, asking the
// oracle first and falling back to static per-class suggestions.
type AutoDebugger struct {
	Model framework.LanguageModel
}

// Diagnose classifies the error and attaches at most three suggestions.
func (d *AutoDebugger) Diagnose(ctx context.Context, task, errText string) Diagnosis {
	diag := Diagnosis{Class: classifyError(errText), Severity: "medium"}
	switch diag.Class {
	case ErrorSyntax, ErrorIndentation, ErrorImport, ErrorName:
		diag.Severity = "high"
	}
	if m := lineNumberPattern.FindStringSubmatch(errText); len(m) == 2 {
		diag.Line, _ = strconv.Atoi(m[1])
	}
	diag.Suggestions = d.suggest(ctx, task, errText, diag.Class)
	return diag
}

// suggest asks the oracle for up to three concrete fixes; any failure or
// empty answer falls back to the static table.
func (d *AutoDebugger) suggest(ctx context.Context, task, errText string, class ErrorClass) []string {
	if d.Model != nil {
		prompt := fmt.Sprintf(`A build task failed. List at most 3 concrete fixes, one per line, no numbering.
Task: %s
Error (%s): %s`, task, class, clip(errText, 600))
		resp, err := d.Model.Generate(ctx, prompt, &framework.LLMOptions{Temperature: 0.3, MaxTokens: 250})
		if err == nil {
			suggestions := splitSuggestions(resp.Text)
			if len(suggestions) > 0 {
				return suggestions
			}
		}
	}
	return fallbackSuggestions[class]
}

func classifyError(errText string) ErrorClass {
	for _, entry := range errorClassPatterns {
		if entry.re.MatchString(errText) {
			return entry.class
		}
	}
	return ErrorUnknown
}

// splitSuggestions turns free-form oracle output into up to three trimmed,
// non-trivial lines.
func splitSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if len(line) < 8 {
			continue
		}
		out = append(out, line)
		if len(out) == 3 {
			break
		}
	}
	return out
}
