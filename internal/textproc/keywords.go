package textproc

import (
	"sort"

	"wordsmith/internal/types"
)

// DefaultMaxKeywords is used when the caller passes limit <= 0.
const DefaultMaxKeywords = 10

// KeywordRanker ranks the non-stopword tokens of a text by frequency.
type KeywordRanker struct {
	tokens *Tokenizer
}

// NewKeywordRanker returns a ranker using lex for stopword filtering.
func NewKeywordRanker(lex *Lexicon) *KeywordRanker {
	return &KeywordRanker{tokens: NewTokenizer(lex)}
}

// Rank returns up to limit keywords, most frequent first. Ties keep the order
// in which the words first appear.
func (r *KeywordRanker) Rank(text string, limit int) ([]string, error) {
	ranked, err := r.RankWithCounts(text, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ranked))
	for i, kc := range ranked {
		out[i] = kc.Word
	}
	return out, nil
}

// RankWithCounts is Rank with each keyword's frequency attached.
func (r *KeywordRanker) RankWithCounts(text string, limit int) ([]types.KeywordCount, error) {
	if err := requireText(text); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}

	counts, order := frequencies(r.tokens.Extract(text))
	ranked := make([]types.KeywordCount, len(order))
	for i, w := range order {
		ranked[i] = types.KeywordCount{Word: w, Count: counts[w]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
