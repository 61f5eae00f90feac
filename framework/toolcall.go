package framework

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParsedToolCall is a tool invocation extracted from model output. Arguments
// are literal values only; positional and keyword arguments are kept apart
// so tools can map them onto their declared parameters.
type ParsedToolCall struct {
	Name       string
	Positional []interface{}
	Keyword    map[string]interface{}
}

// ParseToolCall parses a single `name(arg1, "arg2", kw=value)` invocation.
// The grammar accepts identifiers for the tool name and literal values
// (single- or double-quoted strings with backslash escapes, integers,
// floats, true/false/none) for arguments. Arbitrary expressions, nesting,
// and calls inside arguments are rejected.
func ParseToolCall(input string) (*ParsedToolCall, error) {
	lex := &toolCallLexer{input: input}
	lex.skipSpace()
	name, err := lex.ident()
	if err != nil {
		return nil, err
	}
	if err := lex.expect('('); err != nil {
		return nil, err
	}
	call := &ParsedToolCall{Name: name, Keyword: map[string]interface{}{}}
	lex.skipSpace()
	if lex.peek() == ')' {
		lex.next()
		return call, lex.expectEnd()
	}
	for {
		lex.skipSpace()
		// Keyword arguments look like ident '=' literal; disambiguate by
		// scanning ahead for the '='.
		if key, ok := lex.tryKeyword(); ok {
			value, err := lex.literal()
			if err != nil {
				return nil, err
			}
			call.Keyword[key] = value
		} else {
			value, err := lex.literal()
			if err != nil {
				return nil, err
			}
			call.Positional = append(call.Positional, value)
		}
		lex.skipSpace()
		switch lex.peek() {
		case ',':
			lex.next()
		case ')':
			lex.next()
			return call, lex.expectEnd()
		default:
			return nil, fmt.Errorf("tool call: expected ',' or ')' at offset %d", lex.pos)
		}
	}
}

// toolCallLexer is a minimal hand-rolled tokenizer for the call grammar.
type toolCallLexer struct {
	input string
	pos   int
}

func (l *toolCallLexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *toolCallLexer) next() byte {
	c := l.peek()
	l.pos++
	return c
}

func (l *toolCallLexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *toolCallLexer) expect(c byte) error {
	l.skipSpace()
	if l.peek() != c {
		return fmt.Errorf("tool call: expected %q at offset %d", string(c), l.pos)
	}
	l.next()
	return nil
}

// expectEnd ensures nothing but whitespace follows the closing paren.
func (l *toolCallLexer) expectEnd() error {
	l.skipSpace()
	if l.pos < len(l.input) {
		return fmt.Errorf("tool call: trailing input at offset %d", l.pos)
	}
	return nil
}

func (l *toolCallLexer) ident() (string, error) {
	start := l.pos
	for l.pos < len(l.input) {
		c := rune(l.input[l.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			l.pos++
			continue
		}
		break
	}
	if l.pos == start {
		return "", fmt.Errorf("tool call: expected identifier at offset %d", start)
	}
	return l.input[start:l.pos], nil
}

// tryKeyword consumes `ident =` when present and returns the key. On any
// mismatch the lexer position is restored so the caller can parse a
// positional literal instead.
func (l *toolCallLexer) tryKeyword() (string, bool) {
	save := l.pos
	key, err := l.ident()
	if err != nil {
		l.pos = save
		return "", false
	}
	l.skipSpace()
	if l.peek() != '=' {
		l.pos = save
		return "", false
	}
	l.next()
	l.skipSpace()
	return key, true
}

func (l *toolCallLexer) literal() (interface{}, error) {
	l.skipSpace()
	c := l.peek()
	switch {
	case c == '"' || c == '\'':
		return l.stringLiteral()
	case c == '-' || (c >= '0' && c <= '9'):
		return l.numberLiteral()
	default:
		word, err := l.ident()
		if err != nil {
			return nil, fmt.Errorf("tool call: expected literal at offset %d", l.pos)
		}
		switch strings.ToLower(word) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "none", "null":
			return nil, nil
		}
		return nil, fmt.Errorf("tool call: bare word %q is not a literal", word)
	}
}

func (l *toolCallLexer) stringLiteral() (string, error) {
	quote := l.next()
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.next()
		if c == '\\' {
			esc := l.next()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '"', '\'':
				sb.WriteByte(esc)
			case 0:
				return "", fmt.Errorf("tool call: unterminated escape at offset %d", l.pos)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			continue
		}
		if c == quote {
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
	return "", fmt.Errorf("tool call: unterminated string starting with %q", string(quote))
}

func (l *toolCallLexer) numberLiteral() (interface{}, error) {
	start := l.pos
	if l.peek() == '-' {
		l.next()
	}
	seenDot := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	text := l.input[start:l.pos]
	if seenDot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("tool call: bad number %q", text)
		}
		return f, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, fmt.Errorf("tool call: bad number %q", text)
	}
	return n, nil
}
