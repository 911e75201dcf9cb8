package condition

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokComma
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits an expression into words, commas and parentheses.
// Whitespace only separates words; it never produces a token.
func tokenize(text string) []token {
	var tokens []token
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{kind: tokWord, text: current.String()})
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r == ',' || r == ';':
			flush()
			tokens = append(tokens, token{kind: tokComma, text: ","})
		case r == '(':
			flush()
			tokens = append(tokens, token{kind: tokOpen, text: "("})
		case r == ')':
			flush()
			tokens = append(tokens, token{kind: tokClose, text: ")"})
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}

	// Don't forget the last word
	flush()

	return tokens
}
