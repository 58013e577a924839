package textproc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex := DefaultLexicon()

	for _, w := range []string{"love", "amazing", "wonderful", "good", "great", "excellent"} {
		assert.True(t, lex.IsPositive(w), w)
	}
	for _, w := range []string{"the", "and", "is", "were"} {
		assert.True(t, lex.IsStopword(w), w)
	}
	assert.True(t, lex.IsNegative("terrible"))
	assert.Empty(t, lex.Overlap())
}

func TestNewLexicon_NormalizesWords(t *testing.T) {
	lex := NewLexicon(LexiconSpec{Positive: []string{"  Shiny ", ""}, Negative: []string{"DULL"}})

	assert.True(t, lex.IsPositive("shiny"))
	assert.True(t, lex.IsNegative("dull"))
	assert.Equal(t, []string{"shiny"}, lex.Spec().Positive)
}

func TestLexicon_Overlap(t *testing.T) {
	lex := NewLexicon(LexiconSpec{Positive: []string{"sick", "good"}, Negative: []string{"sick", "bad"}})

	assert.Equal(t, []string{"sick"}, lex.Overlap())
}

func TestLoadLexiconFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("positive:\n  - stellar\n  - crisp\n"), 0o600))

	lex, err := LoadLexiconFile(path)
	require.NoError(t, err)

	assert.True(t, lex.IsPositive("stellar"))
	assert.False(t, lex.IsPositive("good"))
	// Lists absent from the file fall back to the defaults.
	assert.True(t, lex.IsNegative("terrible"))
	assert.True(t, lex.IsStopword("the"))
}

func TestLoadLexiconFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.toml")
	doc := "stopwords = [\"foo\"]\nnegative = [\"laggy\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	lex, err := LoadLexiconFile(path)
	require.NoError(t, err)

	assert.True(t, lex.IsStopword("foo"))
	assert.False(t, lex.IsStopword("the"))
	assert.True(t, lex.IsNegative("laggy"))
	assert.True(t, lex.IsPositive("good"))
}

func TestLoadLexiconFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLexiconFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "words.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{}`), 0o600))
	_, err = LoadLexiconFile(bad)
	assert.ErrorContains(t, err, "unsupported lexicon format")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("positive: [unterminated"), 0o600))
	_, err = LoadLexiconFile(broken)
	assert.Error(t, err)
}
