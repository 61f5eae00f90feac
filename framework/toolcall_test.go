package framework

import (
	"context"
	"reflect"
	"testing"
)

// TestParseToolCallLiterals covers the accepted literal forms.
func TestParseToolCallLiterals(t *testing.T) {
	call, err := ParseToolCall(`write_file("src/app.js", 'console.log("hi")', overwrite=true, retries=3)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if call.Name != "write_file" {
		t.Fatalf("unexpected name %q", call.Name)
	}
	wantPos := []interface{}{"src/app.js", `console.log("hi")`}
	if !reflect.DeepEqual(call.Positional, wantPos) {
		t.Fatalf("positional = %#v", call.Positional)
	}
	if call.Keyword["overwrite"] != true {
		t.Fatalf("keyword overwrite = %#v", call.Keyword["overwrite"])
	}
	if call.Keyword["retries"] != 3 {
		t.Fatalf("keyword retries = %#v", call.Keyword["retries"])
	}
}

// TestParseToolCallEmpty accepts a bare finish() invocation.
func TestParseToolCallEmpty(t *testing.T) {
	call, err := ParseToolCall("finish()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if call.Name != "finish" || len(call.Positional) != 0 || len(call.Keyword) != 0 {
		t.Fatalf("unexpected call %#v", call)
	}
}

// TestParseToolCallEscapes checks backslash escapes inside string literals.
func TestParseToolCallEscapes(t *testing.T) {
	call, err := ParseToolCall(`write_file("a.txt", "line1\nline2\t\"quoted\"")`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if call.Positional[1] != "line1\nline2\t\"quoted\"" {
		t.Fatalf("escape handling broken: %q", call.Positional[1])
	}
}

// TestParseToolCallRejectsExpressions rejects anything beyond literal
// arguments, which is the whole point of the restricted grammar.
func TestParseToolCallRejectsExpressions(t *testing.T) {
	for _, input := range []string{
		`run_command(os.system("rm -rf /"))`,
		`read_file(open("x"))`,
		`read_file(1+2)`,
		`read_file("a") ; run_command("ls")`,
		`read_file("unterminated`,
		`read_file(barename)`,
		``,
	} {
		if _, err := ParseToolCall(input); err == nil {
			t.Fatalf("input %q: expected parse error", input)
		}
	}
}

// TestParseToolCallNegativeNumbers keeps the number grammar honest.
func TestParseToolCallNegativeNumbers(t *testing.T) {
	call, err := ParseToolCall(`seek("f", offset=-12, ratio=-0.5)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if call.Keyword["offset"] != -12 {
		t.Fatalf("offset = %#v", call.Keyword["offset"])
	}
	if call.Keyword["ratio"] != -0.5 {
		t.Fatalf("ratio = %#v", call.Keyword["ratio"])
	}
}

type writeStub struct{}

func (writeStub) Name() string        { return "write_file" }
func (writeStub) Description() string { return "write" }
func (writeStub) Parameters() []ToolParameter {
	return []ToolParameter{
		{Name: "path", Type: "string", Required: true},
		{Name: "content", Type: "string", Required: true},
	}
}
func (writeStub) Execute(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	return &ToolResult{Success: true}, nil
}

// TestBindArgs maps positional and keyword arguments onto declared
// parameters and rejects unknown or missing ones.
func TestBindArgs(t *testing.T) {
	tool := writeStub{}
	call, err := ParseToolCall(`write_file("a.txt", content="data")`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	args, err := BindArgs(tool, call)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if args["path"] != "a.txt" || args["content"] != "data" {
		t.Fatalf("bound args %#v", args)
	}

	call, _ = ParseToolCall(`write_file("a.txt")`)
	if _, err := BindArgs(tool, call); err == nil {
		t.Fatal("expected missing-required error")
	}
	call, _ = ParseToolCall(`write_file("a.txt", "x", mode="w")`)
	if _, err := BindArgs(tool, call); err == nil {
		t.Fatal("expected unknown-keyword error")
	}
	call, _ = ParseToolCall(`write_file("a.txt", "x", path="b")`)
	if _, err := BindArgs(tool, call); err == nil {
		t.Fatal("expected duplicate-parameter error")
	}
}
