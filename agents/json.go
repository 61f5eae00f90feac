// Package agents contains the planning and execution core: the structured
// planner, the ReAct task loop, the response quality layer, the completion
// verifier, and the orchestrating engine that drives a run from description
// to delivered workspace.
package agents

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the JSON payload out of a model response, trying fenced
// ```json blocks first, then plain fences, then the outermost brace or
// bracket pair. It returns the empty string when nothing JSON-shaped is
// present so callers can fall back instead of unmarshalling garbage.
func ExtractJSON(raw string) string {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(raw, fence)
		if start < 0 {
			continue
		}
		rest := raw[start+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if candidate != "" {
			return candidate
		}
	}
	if snippet := bracketSpan(raw, '{', '}'); snippet != "" {
		return snippet
	}
	return bracketSpan(raw, '[', ']')
}

// bracketSpan returns the substring between the first open and last close
// delimiter, or empty when the pair is absent or inverted.
func bracketSpan(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}

// DecodeJSON extracts and unmarshals in one step. The error reports whether
// extraction or decoding failed so quality evaluation can tell "no JSON at
// all" apart from "JSON present but malformed".
func DecodeJSON(raw string, out interface{}) error {
	snippet := ExtractJSON(raw)
	if snippet == "" {
		return errNoJSON
	}
	return json.Unmarshal([]byte(snippet), out)
}

type jsonError string

func (e jsonError) Error() string { return string(e) }

const errNoJSON = jsonError("no JSON payload found in response")
