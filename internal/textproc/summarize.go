package textproc

import (
	"regexp"
	"sort"
	"strings"
)

// SummarySentences is the number of sentences an extractive summary keeps.
const SummarySentences = 3

var sentenceTerminator = regexp.MustCompile(`[.!?]+`)

// Summarizer selects the highest-scoring sentences of a text.
type Summarizer struct {
	tokens *Tokenizer
}

// NewSummarizer returns a Summarizer. Sentence scoring ignores the stopword
// list, so lex only matters for tokenization.
func NewSummarizer(lex *Lexicon) *Summarizer {
	return &Summarizer{tokens: NewTokenizer(lex)}
}

// Sentences splits text on terminal punctuation and drops empty fragments.
func Sentences(text string) []string {
	parts := sentenceTerminator.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type scoredSentence struct {
	index int
	text  string
	score int
}

// Summarize returns the three sentences whose words are most frequent across
// the whole text, in their original order, joined with ". " and ending in a
// period. Texts of three sentences or fewer are returned unchanged.
func (s *Summarizer) Summarize(text string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}

	sentences := Sentences(text)
	if len(sentences) <= SummarySentences {
		return text, nil
	}

	freq, _ := frequencies(s.tokens.LongWords(text))
	scored := make([]scoredSentence, len(sentences))
	for i, sent := range sentences {
		total := 0
		for _, w := range s.tokens.LongWords(sent) {
			total += freq[w]
		}
		scored[i] = scoredSentence{index: i, text: sent, score: total}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	top := scored[:SummarySentences]
	sort.Slice(top, func(i, j int) bool {
		return top[i].index < top[j].index
	})

	picked := make([]string, len(top))
	for i, ss := range top {
		picked[i] = ss.text
	}
	return strings.Join(picked, ". ") + ".", nil
}
