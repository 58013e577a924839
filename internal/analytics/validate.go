package analytics

import (
	"strings"

	"wordsmith/internal/types"
)

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingText,
			"text is required",
			nil,
			map[string]any{"field": "text"},
		)
	}
	return nil
}
