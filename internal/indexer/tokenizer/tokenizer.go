// Package tokenizer provides text tokenisation for the ranking engine.
// It lower-cases input and splits on non-alphanumeric boundaries. An
// Analyzer can additionally remove English stop-words and apply the
// Snowball stemmer; the default analyzer does neither.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

const (
	AnalyzerSimple  = "simple"
	AnalyzerEnglish = "english"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token represents a single normalised term and its position in the
// token stream.
type Token struct {
	Term     string
	Position int
}

// Analyzer controls the filters applied after splitting.
type Analyzer struct {
	Name      string
	StopWords bool
	Stem      bool
}

// Default keeps every alphanumeric run as-is (lower-cased).
var Default = Analyzer{Name: AnalyzerSimple}

// English drops stop-words and reduces terms to their Snowball stem.
var English = Analyzer{Name: AnalyzerEnglish, StopWords: true, Stem: true}

// ByName resolves a configured analyzer name. An empty name selects Default.
func ByName(name string) (Analyzer, error) {
	switch strings.ToLower(name) {
	case "", AnalyzerSimple:
		return Default, nil
	case AnalyzerEnglish:
		return English, nil
	default:
		return Analyzer{}, fmt.Errorf("unknown analyzer %q", name)
	}
}

// Tokenize breaks text into lower-cased Tokens using the Default analyzer.
func Tokenize(text string) []Token {
	return Default.Tokenize(text)
}

// Terms returns only the term sequence of Tokenize(text).
func Terms(text string) []string {
	return Default.Terms(text)
}

// Tokenize breaks text into Tokens. Repeated terms are kept, in order.
func (a Analyzer) Tokenize(text string) []Token {
	words := split(text)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		term, ok := a.filter(word)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Terms returns the term sequence produced by Tokenize.
func (a Analyzer) Terms(text string) []string {
	tokens := a.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// Normalize maps a single user-supplied term onto its indexed form. It
// returns "" unless the input yields exactly one term.
func (a Analyzer) Normalize(term string) string {
	terms := a.Terms(term)
	if len(terms) != 1 {
		return ""
	}
	return terms[0]
}

func (a Analyzer) filter(word string) (string, bool) {
	if a.StopWords {
		if _, isStop := stopWords[word]; isStop {
			return "", false
		}
	}
	if a.Stem {
		word = english.Stem(word, false)
	}
	return word, word != ""
}

func split(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
