package gemini

import (
	"regexp"
	"strings"
)

// Substituted when the model produced no bulleted lines: consumers must never
// see an empty key-point list.
var placeholderKeyPoints = []string{
	"Key insights extracted",
	"Important information highlighted",
	"Main concepts identified",
}

var (
	numberedLine = regexp.MustCompile(`^\d+\.`)
	// One leading marker character, then optional whitespace. A single
	// character only, so "1." keeps its dot. Downstream consumers were
	// built against this exact stripping and it stays as is.
	listMarker = regexp.MustCompile(`^[•\-*\d+.]\s*`)
)

// parseGenerated splits a free-form model response into a summary body and a
// list of key points. A line mentioning "key point" or containing a bullet
// glyph, hyphen, or asterisk switches the scan into key-point mode; from then
// on, list-marker lines become key points and everything else is dropped.
// Lines before the switch join with single spaces into the summary.
func parseGenerated(text string) (string, []string) {
	var summary strings.Builder
	var keyPoints []string
	inKeyPoints := false

	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), "key point") ||
			strings.Contains(line, "•") ||
			strings.Contains(line, "-") ||
			strings.Contains(line, "*") {
			inKeyPoints = true
		}

		if !inKeyPoints {
			summary.WriteString(line)
			summary.WriteString(" ")
		} else if strings.TrimSpace(line) != "" && isListLine(line) {
			keyPoints = append(keyPoints, strings.TrimSpace(listMarker.ReplaceAllString(line, "")))
		}
	}

	body := strings.TrimSpace(summary.String())
	if body == "" {
		// Nothing before the first bullet: fall back to the raw response.
		body = text
	}
	if len(keyPoints) == 0 {
		keyPoints = append([]string(nil), placeholderKeyPoints...)
	}

	return body, keyPoints
}

func isListLine(line string) bool {
	return strings.Contains(line, "•") ||
		strings.Contains(line, "-") ||
		strings.Contains(line, "*") ||
		numberedLine.MatchString(line)
}
