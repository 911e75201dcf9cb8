package query

import "strings"

// normalize lower-cases s and treats underscores as spaces.
func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
}

// MatchFact finds the stored fact a free-text phrase refers to.
//
// An exact match after normalization wins. Otherwise the first name in the
// given order is accepted where either string contains the other, or a word
// of one occurs inside the other. Callers pass names sorted so the choice is
// stable.
func MatchFact(phrase string, names []string) (string, bool) {
	p := normalize(phrase)
	if p == "" {
		return "", false
	}
	for _, name := range names {
		if normalize(name) == p {
			return name, true
		}
	}
	for _, name := range names {
		if similar(p, normalize(name)) {
			return name, true
		}
	}
	return "", false
}

func similar(a, b string) bool {
	if b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return anyWordIn(a, b) || anyWordIn(b, a)
}

func anyWordIn(words, text string) bool {
	for _, w := range strings.Fields(words) {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
