// Package textproc implements the deterministic text algorithms metered by
// the engine: keyword ranking, lexicon sentiment scoring and extractive
// summarization.
//
// Everything here is pure. Word lists are carried by an immutable Lexicon
// value that callers pass in, so tests and deployments can substitute their
// own lists without touching package state.
package textproc

import (
	"sort"
	"strings"
)

// Lexicon holds the fixed word lists used by the algorithms. A Lexicon is
// never mutated after construction and is safe for concurrent use.
type Lexicon struct {
	stopwords map[string]struct{}
	positive  map[string]struct{}
	negative  map[string]struct{}
}

// LexiconSpec is the plain-data form of a Lexicon, as read from a file.
type LexiconSpec struct {
	Stopwords []string `yaml:"stopwords" toml:"stopwords"`
	Positive  []string `yaml:"positive" toml:"positive"`
	Negative  []string `yaml:"negative" toml:"negative"`
}

var defaultStopwords = []string{
	// articles and determiners
	"a", "an", "the", "this", "that", "these", "those",
	// conjunctions
	"and", "or", "but", "nor", "so", "yet", "for",
	// prepositions
	"in", "on", "at", "to", "from", "by", "with", "about", "into", "over",
	"after", "before", "under", "of",
	// auxiliary verbs
	"is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having",
	"do", "does", "did",
	"will", "would", "shall", "should", "can", "could", "may", "might", "must",
	// pronouns
	"i", "you", "he", "she", "it", "we", "they", "them", "their", "there",
	"what", "which", "when", "where", "who", "whom", "while", "then", "than",
	"also", "just", "very", "some", "such", "only", "other",
}

var defaultPositive = []string{
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"awesome", "love", "loved", "like", "liked", "happy", "best", "brilliant",
	"perfect", "beautiful", "nice", "pleasant", "enjoy", "enjoyed",
	"delightful", "superb", "outstanding", "positive", "impressive",
	"helpful", "recommend",
}

var defaultNegative = []string{
	"bad", "terrible", "awful", "horrible", "worst", "hate", "hated",
	"dislike", "poor", "disappointing", "disappointed", "sad", "angry",
	"ugly", "boring", "broken", "useless", "annoying", "negative", "fail",
	"failed", "failure", "problem", "wrong", "slow", "difficult",
}

var defaultLexicon = NewLexicon(LexiconSpec{
	Stopwords: defaultStopwords,
	Positive:  defaultPositive,
	Negative:  defaultNegative,
})

// DefaultLexicon returns the built-in English word lists.
func DefaultLexicon() *Lexicon {
	return defaultLexicon
}

// NewLexicon builds an immutable Lexicon. Words are lowercased and trimmed;
// blanks are dropped.
func NewLexicon(spec LexiconSpec) *Lexicon {
	return &Lexicon{
		stopwords: toSet(spec.Stopwords),
		positive:  toSet(spec.Positive),
		negative:  toSet(spec.Negative),
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether word is in the stopword list.
func (l *Lexicon) IsStopword(word string) bool {
	_, ok := l.stopwords[word]
	return ok
}

// IsPositive reports exact whole-word membership in the positive list.
func (l *Lexicon) IsPositive(word string) bool {
	_, ok := l.positive[word]
	return ok
}

// IsNegative reports exact whole-word membership in the negative list.
func (l *Lexicon) IsNegative(word string) bool {
	_, ok := l.negative[word]
	return ok
}

// Spec returns a sorted copy of the word lists.
func (l *Lexicon) Spec() LexiconSpec {
	return LexiconSpec{
		Stopwords: sortedKeys(l.stopwords),
		Positive:  sortedKeys(l.positive),
		Negative:  sortedKeys(l.negative),
	}
}

// Overlap returns words present in both the positive and negative lists.
// A non-empty result means the lexicon cancels itself out for those words.
func (l *Lexicon) Overlap() []string {
	var out []string
	for w := range l.positive {
		if _, ok := l.negative[w]; ok {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
