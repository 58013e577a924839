package textproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadLexiconFile reads word lists from a YAML (.yaml, .yml) or TOML (.toml)
// file. Lists missing from the file are taken from the default lexicon, so an
// override file may replace only the sentiment words.
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	spec, err := ParseLexicon(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse lexicon file %s: %w", path, err)
	}
	return NewLexicon(spec), nil
}

// ParseLexicon decodes a lexicon document. ext selects the format and must be
// one of ".yaml", ".yml" or ".toml".
func ParseLexicon(data []byte, ext string) (LexiconSpec, error) {
	var spec LexiconSpec
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return LexiconSpec{}, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &spec); err != nil {
			return LexiconSpec{}, err
		}
	default:
		return LexiconSpec{}, fmt.Errorf("unsupported lexicon format %q", ext)
	}

	defaults := defaultLexicon.Spec()
	if len(spec.Stopwords) == 0 {
		spec.Stopwords = defaults.Stopwords
	}
	if len(spec.Positive) == 0 {
		spec.Positive = defaults.Positive
	}
	if len(spec.Negative) == 0 {
		spec.Negative = defaults.Negative
	}
	return spec, nil
}
