package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fiveSentences = "Go makes concurrency simple. Channels connect goroutines together. " +
	"The weather was cold yesterday. Goroutines and channels make concurrency simple in Go. Lunch was fine."

func TestSummarizer_FiveSentenceScenario(t *testing.T) {
	s := NewSummarizer(nil)

	got, err := s.Summarize(fiveSentences)
	require.NoError(t, err)

	assert.Equal(t,
		"Go makes concurrency simple. Channels connect goroutines together. Goroutines and channels make concurrency simple in Go.",
		got)

	original := Sentences(fiveSentences)
	picked := Sentences(got)
	require.Len(t, picked, 3)

	last := -1
	for _, p := range picked {
		idx := indexOf(original, p)
		require.GreaterOrEqual(t, idx, 0, "sentence %q not in source", p)
		assert.Greater(t, idx, last, "sentences out of document order")
		last = idx
	}
}

func TestSummarizer_TiesFavourEarlierSentences(t *testing.T) {
	s := NewSummarizer(nil)

	got, err := s.Summarize("Alpha beta. Gamma delta. Epsilon zeta. Theta iota. Kappa lambda.")
	require.NoError(t, err)

	assert.Equal(t, "Alpha beta. Gamma delta. Epsilon zeta.", got)
}

func TestSummarizer_ShortTextUnchanged(t *testing.T) {
	s := NewSummarizer(nil)

	for _, text := range []string{
		"Just one sentence",
		"First point! Second point?",
		"One. Two. Three.",
		"Trailing dots... and more dots... end",
	} {
		got, err := s.Summarize(text)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestSummarizer_NeverMoreThanThreeSentences(t *testing.T) {
	s := NewSummarizer(nil)
	texts := append([]string{
		fiveSentences,
		strings.Repeat("Queues buffer work for workers! ", 12),
		"Why stop? Keep going. Never settle! Build things. Ship often. Learn fast?",
	}, sampleTexts...)

	for _, text := range texts {
		got, err := s.Summarize(text)
		require.NoError(t, err)

		want := len(Sentences(text))
		if want > 3 {
			want = 3
		}
		assert.LessOrEqual(t, len(Sentences(got)), want, text)
	}
}

func TestSentences_DropsEmptyFragments(t *testing.T) {
	assert.Equal(t, []string{"Hi", "Really", "Yes"}, Sentences("Hi!! Really?? . Yes."))
	assert.Empty(t, Sentences("...!?"))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
