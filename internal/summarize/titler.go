package summarize

import (
	"context"
	"strings"
)

// Titler produces a short title for a chapter's text.
type Titler interface {
	Title(ctx context.Context, text string) (string, error)
}

// FallbackTitler titles chapters locally, for deployments without
// summarizer credentials.
type FallbackTitler struct {
	Words int
}

func (f FallbackTitler) Title(ctx context.Context, text string) (string, error) {
	return FallbackTitle(text, f.Words), nil
}

// FallbackTitle is the deterministic degradation used when the external
// summarizer fails: the first n words of the text.
func FallbackTitle(text string, n int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "Untitled"
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
