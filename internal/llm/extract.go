package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencePattern         = regexp.MustCompile("(?i)```(?:json)?")
	leadInPattern        = regexp.MustCompile(`(?i)^\s*Here.*?:`)
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// Extraction is the outcome of ExtractJSON. Object is nil when the response
// carried no parseable JSON object, in which case Text holds the cleaned reply.
type Extraction struct {
	Object map[string]any
	Raw    json.RawMessage
	Text   string
}

// Structured reports whether a JSON object was recovered.
func (e Extraction) Structured() bool { return e.Object != nil }

// Decode unmarshals the recovered object into v.
func (e Extraction) Decode(v any) error {
	if !e.Structured() {
		return fmt.Errorf("response is unstructured")
	}
	return json.Unmarshal(e.Raw, v)
}

// ExtractJSON recovers the first JSON object embedded in a model reply.
// It strips code fences and surrounding prose and tolerates trailing commas.
func ExtractJSON(raw string) Extraction {
	cleaned := CleanResponse(raw)

	candidate, ok := firstObject(cleaned)
	if !ok {
		return Extraction{Text: cleaned}
	}
	candidate = trailingCommaPattern.ReplaceAllString(candidate, "$1")

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return Extraction{Text: cleaned}
	}
	return Extraction{Object: obj, Raw: json.RawMessage(candidate), Text: cleaned}
}

// CleanResponse removes markdown fences, a leading "Here is ...:" lead-in and
// surrounding whitespace.
func CleanResponse(raw string) string {
	text := fencePattern.ReplaceAllString(raw, "")
	text = leadInPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// firstObject returns the first balanced {...} block, ignoring braces inside strings.
// An unbalanced reply falls back to the span ending at the last closing brace.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
