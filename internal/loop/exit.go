package loop

import (
	"strings"
	"unicode"
)

var DefaultExitKeywords = []string{"exit", "stop", "goodbye", "shut down"}

// ExitMatcher matches whole words, case-insensitively, so "nonstop" or
// "exiting" do not end the loop. Multi-word keywords match as a phrase.
type ExitMatcher struct {
	phrases [][]string
}

func NewExitMatcher(keywords ...string) *ExitMatcher {
	if len(keywords) == 0 {
		keywords = DefaultExitKeywords
	}

	m := &ExitMatcher{}
	for _, k := range keywords {
		if words := tokenize(k); len(words) > 0 {
			m.phrases = append(m.phrases, words)
		}
	}
	return m
}

func (m *ExitMatcher) Match(text string) bool {
	words := tokenize(text)
	for _, p := range m.phrases {
		if containsPhrase(words, p) {
			return true
		}
	}
	return false
}

func containsPhrase(words, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		ok := true
		for j := range phrase {
			if words[i+j] != phrase[j] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
