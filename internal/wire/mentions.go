package wire

import "regexp"

// Tool mentions in free text. Catches the phrasings clients actually use
// when asking for a tool by name: "use the foo tool", "call the foo tool",
// "run the `foo` tool", "with the foo tool".
var toolMentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:use|call|run|invoke|with)\s+the\s+` + "`?" + `([A-Za-z0-9][A-Za-z0-9._-]*)` + "`?" + `\s+tool\b`),
	regexp.MustCompile(`(?i)\btool\s+(?:named|called)\s+` + "`?" + `([A-Za-z0-9][A-Za-z0-9._-]*)` + "`?"),
}

func extractToolMentions(text string) []string {
	var names []string

	for _, pattern := range toolMentionPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			names = append(names, match[1])
		}
	}

	return names
}
