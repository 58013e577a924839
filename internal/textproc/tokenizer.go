package textproc

import (
	"regexp"
	"strings"
)

// wordPattern uses RE2's ASCII word class: a token is a run of [0-9A-Za-z_].
// Letters outside ASCII end a token, so "café" yields "caf".
var wordPattern = regexp.MustCompile(`\b\w+\b`)

// minKeywordLength is the exclusive lower bound on token length for keyword
// and summary frequency tables.
const minKeywordLength = 3

// Tokenizer splits text into lowercase word tokens. Input may be any UTF-8,
// but only ASCII letters, digits and underscores form words; accented and
// non-Latin letters act as separators.
type Tokenizer struct {
	lexicon *Lexicon
}

// NewTokenizer returns a Tokenizer that filters stopwords from lex.
// A nil lexicon selects DefaultLexicon.
func NewTokenizer(lex *Lexicon) *Tokenizer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Tokenizer{lexicon: lex}
}

// Words returns every word token in order, lowercased, without filtering.
func (t *Tokenizer) Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// LongWords returns tokens longer than three characters. Stopwords are kept.
func (t *Tokenizer) LongWords(text string) []string {
	words := t.Words(text)
	out := words[:0]
	for _, w := range words {
		if len(w) > minKeywordLength {
			out = append(out, w)
		}
	}
	return out
}

// Extract returns tokens longer than three characters that are not
// stopwords, in document order.
func (t *Tokenizer) Extract(text string) []string {
	words := t.Words(text)
	out := words[:0]
	for _, w := range words {
		if len(w) > minKeywordLength && !t.lexicon.IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// frequencies counts tokens, also returning the distinct tokens in the order
// they were first seen.
func frequencies(tokens []string) (map[string]int, []string) {
	counts := make(map[string]int, len(tokens))
	var order []string
	for _, tok := range tokens {
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}
	return counts, order
}
