package analytics

import (
	"context"
	"fmt"
	"time"

	"wordsmith/internal/billing"
	"wordsmith/internal/textproc"
	"wordsmith/internal/types"
)

// Summary request bounds. They validate input only; the summarizer always
// returns the top sentences.
const (
	MinSummaryLength     = 50
	MaxSummaryLength     = 1000
	DefaultSummaryLength = 200
	MaxKeywordsLimit     = 100
)

// KeywordsInput is a keyword extraction request.
type KeywordsInput struct {
	Text        string
	MaxKeywords int
}

// KeywordsResult is returned by ExtractKeywords.
type KeywordsResult struct {
	Keywords []string             `json:"keywords"`
	Counts   []types.KeywordCount `json:"counts"`
	Usage    *types.UsageRecord   `json:"usage,omitempty"`
}

// ExtractKeywords ranks the most frequent content words in the text.
func (s *Service) ExtractKeywords(ctx context.Context, actor types.Actor, in KeywordsInput) (KeywordsResult, error) {
	if err := requireActor(actor); err != nil {
		return KeywordsResult{}, err
	}
	if err := requireText(in.Text); err != nil {
		return KeywordsResult{}, err
	}
	if in.MaxKeywords < 0 || in.MaxKeywords > MaxKeywordsLimit {
		return KeywordsResult{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParameter,
			fmt.Sprintf("max_keywords must be between 1 and %d", MaxKeywordsLimit),
			nil,
			map[string]any{"field": "max_keywords", "value": in.MaxKeywords},
		)
	}

	st, err := s.authorize(ctx, actor, types.CapabilityKeywordExtraction, contentLength(in.Text))
	if err != nil {
		return KeywordsResult{}, err
	}

	start := time.Now()
	counts, err := s.keywords.RankWithCounts(in.Text, in.MaxKeywords)
	if err != nil {
		return KeywordsResult{}, err
	}
	keywords := make([]string, len(counts))
	for i, kc := range counts {
		keywords[i] = kc.Word
	}
	s.logger.DebugContext(ctx, "keywords extracted",
		"user_id", actor.ID,
		"keywords", len(keywords),
		"duration_ms", elapsedMillis(start),
	)

	result := KeywordsResult{Keywords: keywords, Counts: counts}
	if rec, ok := s.record(ctx, actor, types.CapabilityKeywordExtraction, st.period); ok {
		result.Usage = &rec
	}
	return result, nil
}

// SentimentOutput is returned by AnalyzeSentiment.
type SentimentOutput struct {
	types.SentimentResult
	Usage *types.UsageRecord `json:"usage,omitempty"`
}

// AnalyzeSentiment scores the text against the lexicon.
func (s *Service) AnalyzeSentiment(ctx context.Context, actor types.Actor, text string) (SentimentOutput, error) {
	if err := requireActor(actor); err != nil {
		return SentimentOutput{}, err
	}
	if err := requireText(text); err != nil {
		return SentimentOutput{}, err
	}

	st, err := s.authorize(ctx, actor, types.CapabilitySentimentAnalysis, contentLength(text))
	if err != nil {
		return SentimentOutput{}, err
	}

	res, err := s.sentiment.Score(text)
	if err != nil {
		return SentimentOutput{}, err
	}

	out := SentimentOutput{SentimentResult: res}
	if rec, ok := s.record(ctx, actor, types.CapabilitySentimentAnalysis, st.period); ok {
		out.Usage = &rec
	}
	return out, nil
}

// SummaryInput is a summarization request. MaxLength, Type and Language are
// validated and echoed back but do not change the algorithm.
type SummaryInput struct {
	Text      string
	MaxLength int
	Type      types.SummaryType
	Language  string
}

// SummaryResult is returned by Summarize.
type SummaryResult struct {
	Summary        string             `json:"summary"`
	Type           types.SummaryType  `json:"type"`
	MaxLength      int                `json:"max_length"`
	Language       string             `json:"language,omitempty"`
	SentenceCount  int                `json:"sentence_count"`
	OriginalLength int                `json:"original_length"`
	Usage          *types.UsageRecord `json:"usage,omitempty"`
}

// Summarize returns the most representative sentences of the text.
func (s *Service) Summarize(ctx context.Context, actor types.Actor, in SummaryInput) (SummaryResult, error) {
	if err := requireActor(actor); err != nil {
		return SummaryResult{}, err
	}
	if err := requireText(in.Text); err != nil {
		return SummaryResult{}, err
	}
	in, err := normalizeSummaryInput(in)
	if err != nil {
		return SummaryResult{}, err
	}

	st, err := s.authorize(ctx, actor, types.CapabilitySummarization, contentLength(in.Text))
	if err != nil {
		return SummaryResult{}, err
	}

	summary, err := s.summarizer.Summarize(in.Text)
	if err != nil {
		return SummaryResult{}, err
	}

	result := SummaryResult{
		Summary:        summary,
		Type:           in.Type,
		MaxLength:      in.MaxLength,
		Language:       in.Language,
		SentenceCount:  len(textproc.Sentences(summary)),
		OriginalLength: contentLength(in.Text),
	}
	if rec, ok := s.record(ctx, actor, types.CapabilitySummarization, st.period); ok {
		result.Usage = &rec
	}
	return result, nil
}

func normalizeSummaryInput(in SummaryInput) (SummaryInput, error) {
	if in.MaxLength == 0 {
		in.MaxLength = DefaultSummaryLength
	}
	if in.MaxLength < MinSummaryLength || in.MaxLength > MaxSummaryLength {
		return in, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParameter,
			fmt.Sprintf("max_length must be between %d and %d", MinSummaryLength, MaxSummaryLength),
			nil,
			map[string]any{"field": "max_length", "value": in.MaxLength},
		)
	}
	switch in.Type {
	case "":
		in.Type = types.SummaryAbstractive
	case types.SummaryExtractive, types.SummaryAbstractive:
	default:
		return in, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParameter,
			"type must be extractive or abstractive",
			nil,
			map[string]any{"field": "type", "value": string(in.Type)},
		)
	}
	return in, nil
}

// GenerationDecision is returned by AuthorizeGeneration.
type GenerationDecision struct {
	Allowed          bool             `json:"allowed"`
	Period           types.PeriodKey  `json:"period"`
	PlanType         types.PlanType   `json:"plan_type"`
	Limits           types.PlanLimits `json:"limits"`
	ContentGenerated int64            `json:"content_generated"`
	ContentRemaining int              `json:"content_remaining"`
}

// AuthorizeGeneration checks whether the caller may generate a piece of
// content of the given length. Nothing is recorded; callers report a
// completed generation through RecordGeneration.
func (s *Service) AuthorizeGeneration(ctx context.Context, actor types.Actor, length int) (GenerationDecision, error) {
	if err := requireActor(actor); err != nil {
		return GenerationDecision{}, err
	}
	if length < 0 {
		return GenerationDecision{}, types.NewAppError(
			types.ErrCodeValidationInvalidParameter,
			"content_length must not be negative",
			nil,
		)
	}

	st, err := s.authorize(ctx, actor, types.CapabilityContentGeneration, length)
	if err != nil {
		return GenerationDecision{}, err
	}
	return GenerationDecision{
		Allowed:          true,
		Period:           st.period,
		PlanType:         st.subscription.EffectivePlan(),
		Limits:           st.limits,
		ContentGenerated: st.usage.ContentGenerated,
		ContentRemaining: billing.ContentRemaining(st.limits, st.usage),
	}, nil
}

// GenerationRecord is returned by RecordGeneration.
type GenerationRecord struct {
	Recorded bool               `json:"recorded"`
	Period   types.PeriodKey    `json:"period"`
	Usage    *types.UsageRecord `json:"usage,omitempty"`
}

// RecordGeneration counts one completed content generation. The content
// has already been delivered, so a ledger failure is queued for replay and
// reported as Recorded=false rather than as an error.
func (s *Service) RecordGeneration(ctx context.Context, actor types.Actor) (GenerationRecord, error) {
	if err := requireActor(actor); err != nil {
		return GenerationRecord{}, err
	}
	period := s.ledger.CurrentPeriod()
	out := GenerationRecord{Period: period}
	if rec, ok := s.record(ctx, actor, types.CapabilityContentGeneration, period); ok {
		out.Recorded = true
		out.Usage = &rec
	}
	return out, nil
}
