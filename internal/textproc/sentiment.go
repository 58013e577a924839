package textproc

import (
	"math"

	"wordsmith/internal/types"
)

// Label thresholds on the normalized score.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// SentimentScorer assigns a polarity score in [-1, 1] by counting lexicon
// hits. Matching is exact whole-word equality on lowercased tokens.
type SentimentScorer struct {
	lexicon *Lexicon
	tokens  *Tokenizer
}

// NewSentimentScorer returns a scorer backed by lex. A nil lexicon selects
// DefaultLexicon.
func NewSentimentScorer(lex *Lexicon) *SentimentScorer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &SentimentScorer{lexicon: lex, tokens: NewTokenizer(lex)}
}

// Score computes the sentiment of text. The raw score (positive minus
// negative hits) is divided by one tenth of the word count, floored at 1, so
// long texts need proportionally more hits to move the score.
func (s *SentimentScorer) Score(text string) (types.SentimentResult, error) {
	if err := requireText(text); err != nil {
		return types.SentimentResult{}, err
	}

	words := s.tokens.Words(text)
	var pos, neg int
	for _, w := range words {
		if s.lexicon.IsPositive(w) {
			pos++
		}
		if s.lexicon.IsNegative(w) {
			neg++
		}
	}

	raw := float64(pos - neg)
	scale := math.Max(1, float64(len(words))/10)
	score := clamp(raw/scale, -1, 1)

	return types.SentimentResult{
		Label:    labelFor(score),
		Score:    score,
		Positive: pos,
		Negative: neg,
		Words:    len(words),
	}, nil
}

func labelFor(score float64) types.SentimentLabel {
	switch {
	case score > positiveThreshold:
		return types.SentimentPositive
	case score < negativeThreshold:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
