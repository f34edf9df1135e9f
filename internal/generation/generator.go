package generation

import "context"

// TextGenerator turns a prompt into generated text.
type TextGenerator interface {
	// GenerateText returns the model output for prompt. Errors wrap one of
	// the sentinels in errors.go so callers can classify them with errors.Is.
	GenerateText(ctx context.Context, prompt string) (string, error)
}
