package conversation

import "unicode/utf8"

// SnippetLength is the maximum rune length of a Citation snippet.
const SnippetLength = 300

// Citation is the provenance record for one retrieved piece of evidence.
type Citation struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// Snippet truncates text to SnippetLength runes.
func Snippet(text string) string {
	if utf8.RuneCountInString(text) <= SnippetLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:SnippetLength])
}

// CloneCitations copies cs so the result can be modified independently.
func CloneCitations(cs []Citation) []Citation {
	if cs == nil {
		return nil
	}
	out := make([]Citation, len(cs))
	copy(out, cs)
	return out
}
