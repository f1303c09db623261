package llm

import (
	"regexp"
	"strings"
)

const assistantPrefix = "ASSISTANT:"

// Trailing notes the model appends after the script, matched to the end of
// the text.
var notePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\n\n\(Note:.*`),
	regexp.MustCompile(`(?is)\n\nNote:.*`),
	regexp.MustCompile(`(?is)\n\n\[Note:.*`),
	regexp.MustCompile(`(?is)\n\n--.*`),
	regexp.MustCompile(`(?is)\n\nWord count:.*`),
}

var (
	emphasisWords = []string{"crazy", "insane", "wild", "suddenly", "shocking", "unbelievable"}
	pausePhrases  = []string{"but then", "suddenly", "that's when", "and then"}
)

// FormatScript strips a role prefix and trailing notes from a model reply,
// then adds emphasis markers and pauses for the narrator when the model used
// none.
func FormatScript(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToUpper(text), assistantPrefix) {
		text = strings.TrimSpace(text[len(assistantPrefix):])
	}

	for _, re := range notePatterns {
		text = re.ReplaceAllString(text, "")
	}

	if !strings.Contains(text, "*") {
		lower := strings.ToLower(text)
		for _, word := range emphasisWords {
			if !strings.Contains(lower, word) {
				continue
			}
			text = strings.ReplaceAll(text, word, "*"+word+"*")
			title := strings.ToUpper(word[:1]) + word[1:]
			text = strings.ReplaceAll(text, title, "*"+title+"*")
		}
	}

	if !strings.Contains(text, ",") {
		lower := strings.ToLower(text)
		for _, phrase := range pausePhrases {
			if strings.Contains(lower, phrase) {
				text = strings.ReplaceAll(text, phrase, ", "+phrase)
			}
		}
	}

	return strings.TrimSpace(text)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
