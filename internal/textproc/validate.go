package textproc

import (
	"strings"

	"wordsmith/internal/types"
)

// errMissingText is returned for empty or whitespace-only input.
func errMissingText() error {
	return types.NewAppError(types.ErrCodeValidationMissingText, "text is required", nil)
}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errMissingText()
	}
	return nil
}
