package router

import (
	"strings"
	"unicode"
)

// AliasSource lists alternate names for a subject.
type AliasSource interface {
	Aliases(name string) []string
}

// normalize folds case and drops whitespace and punctuation.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func namesFor(candidate string, aliases AliasSource) []string {
	names := []string{candidate}
	if aliases != nil {
		names = append(names, aliases.Aliases(candidate)...)
	}
	return names
}

// ResolveSubject picks the subject for a turn. An extracted subject is kept
// only when it names a known candidate. Otherwise the user input is matched
// against candidate names and aliases by containment in either direction,
// then a lone candidate is assumed, then the previous subject carries over.
// The result is always a candidate, previous, or empty.
func ResolveSubject(extracted, userInput string, candidates []string, aliases AliasSource, previous string) string {
	if extracted != "" {
		for _, c := range candidates {
			if c == extracted {
				return c
			}
		}
		want := normalize(extracted)
		if want != "" {
			for _, c := range candidates {
				for _, name := range namesFor(c, aliases) {
					if normalize(name) == want {
						return c
					}
				}
			}
		}
	}

	if match := containmentMatch(userInput, candidates, aliases); match != "" {
		return match
	}

	if len(candidates) == 1 {
		return candidates[0]
	}

	return previous
}

// containmentMatch returns the candidate whose name (or alias) best overlaps
// the input. Longer matched names win so "명동교자 본점" beats "명동교자".
func containmentMatch(userInput string, candidates []string, aliases AliasSource) string {
	input := normalize(userInput)
	if input == "" {
		return ""
	}

	var (
		best    string
		bestLen int
	)
	for _, c := range candidates {
		for _, name := range namesFor(c, aliases) {
			n := normalize(name)
			if n == "" {
				continue
			}
			if strings.Contains(input, n) || strings.Contains(n, input) {
				if len(n) > bestLen {
					best, bestLen = c, len(n)
				}
			}
		}
	}
	return best
}
