package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnoseClassifiesAndExtractsLine(t *testing.T) {
	d := &AutoDebugger{Model: &scriptedModel{err: errors.New("offline")}}
	cases := []struct {
		errText  string
		class    ErrorClass
		severity string
		line     int
	}{
		{`File "main.py", line 12\n    SyntaxError: invalid syntax`, ErrorSyntax, "high", 12},
		{"IndentationError: unexpected indent on line 4", ErrorIndentation, "high", 4},
		{"ImportError: No module named requests", ErrorImport, "high", 0},
		{"NameError: name 'foo' is not defined", ErrorName, "high", 0},
		{"TypeError: unsupported operand type", ErrorType, "medium", 0},
		{"KeyError: 'user_id'", ErrorKey, "medium", 0},
		{"IndexError: list index out of range", ErrorIndex, "medium", 0},
		{"something exploded", ErrorUnknown, "medium", 0},
	}
	for _, tc := range cases {
		diag := d.Diagnose(context.Background(), "task", tc.errText)
		assert.Equal(t, tc.class, diag.Class, tc.errText)
		assert.Equal(t, tc.severity, diag.Severity, tc.errText)
		assert.Equal(t, tc.line, diag.Line, tc.errText)
		assert.True(t, diag.Actionable(), tc.errText)
	}
}

func TestIndentationWinsOverSyntax(t *testing.T) {
	d := &AutoDebugger{}
	diag := d.Diagnose(context.Background(), "task", "IndentationError near a syntax error on line 2")
	assert.Equal(t, ErrorIndentation, diag.Class)
}

func TestSuggestUsesOracleWhenAvailable(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"- Add the missing import at the top of main.py\n- Pin the dependency in requirements.txt\n- Rerun pip install\n- This fourth line is dropped",
	}}
	d := &AutoDebugger{Model: model}
	diag := d.Diagnose(context.Background(), "task", "ImportError: No module named requests")
	assert.Len(t, diag.Suggestions, 3)
	assert.Equal(t, "Add the missing import at the top of main.py", diag.Suggestions[0])
}

func TestSuggestFallsBackToStaticTable(t *testing.T) {
	d := &AutoDebugger{Model: &scriptedModel{err: errors.New("offline")}}
	diag := d.Diagnose(context.Background(), "task", "KeyError: 'user'")
	assert.Equal(t, fallbackSuggestions[ErrorKey], diag.Suggestions)
}

func TestSplitSuggestionsFiltersNoise(t *testing.T) {
	out := splitSuggestions("1. Fix the loop bound in scan()\n\n- ok\n2. Validate the config before use")
	assert.Equal(t, []string{"Fix the loop bound in scan()", "Validate the config before use"}, out)
}
