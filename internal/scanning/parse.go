package scanning

import (
	"regexp"
	"strings"
)

// preamblePattern matches a chatty first line such as "Here is the text from the receipt:"
var preamblePattern = regexp.MustCompile(`(?i)^(?:sure[,!.]?\s*)?here(?:'s| is| are)\b.*:$`)

// cleanTranscript strips markdown code fences and a leading preamble from an
// LLM transcription and normalizes line endings. The receipt text itself is
// left alone so the field extractor sees what the model read.
func cleanTranscript(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && preamblePattern.MatchString(strings.TrimSpace(lines[0])) {
		lines = lines[1:]
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Opening fence may carry a language, e.g. ```text
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
