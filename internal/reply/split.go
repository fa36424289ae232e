package reply

import (
	"encoding/json"
	"strings"
)

// Segments is the result of separating prose from an embedded JSON object.
type Segments struct {
	Prose   string
	Payload string
	// Found reports whether Payload holds a valid JSON object.
	Found bool
	// Candidate reports whether any balanced {...} span was seen, valid or not.
	Candidate bool
}

// Split locates the first complete, valid JSON object in raw. Braces that
// appear in prose, inside JSON strings, or in balanced spans that are not
// valid JSON do not affect the result.
func Split(raw string) Segments {
	start, end, candidate := findPayload(raw)
	if start < 0 {
		return Segments{Prose: cleanProse(raw), Candidate: candidate}
	}

	prose := cleanProse(raw[:start])
	if after := cleanProse(raw[end:]); after != "" {
		if prose != "" {
			prose += "\n\n"
		}
		prose += after
	}
	return Segments{
		Prose:     prose,
		Payload:   raw[start:end],
		Found:     true,
		Candidate: true,
	}
}

// findPayload returns the half-open byte range of the first valid JSON object.
func findPayload(text string) (int, int, bool) {
	candidate := false
	offset := 0
	for offset < len(text) {
		rel := strings.IndexByte(text[offset:], '{')
		if rel < 0 {
			break
		}
		start := offset + rel
		end := matchBrace(text, start)
		if end < 0 {
			offset = start + 1
			continue
		}
		candidate = true
		if json.Valid([]byte(text[start : end+1])) {
			return start, end + 1, true
		}
		// Skip the whole invalid span so a nested object is never mistaken
		// for the payload.
		offset = end + 1
	}
	return -1, -1, candidate
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i
			}
		}
	}
	return -1
}

func cleanProse(text string) string {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	// Models sometimes label the trailing block with a bare "json" line.
	lowered := strings.ToLower(cleaned)
	switch {
	case lowered == "json":
		return ""
	case strings.HasSuffix(lowered, "\njson"):
		cleaned = strings.TrimSpace(cleaned[:len(cleaned)-len("json")])
	}
	return cleaned
}
