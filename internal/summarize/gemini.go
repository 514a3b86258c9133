package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const titlePrompt = `You are labeling chapters of a spoken-word recording. Write a short title (at most eight words) for the transcript excerpt below. Reply with the title only, no quotes, no punctuation at the end.

Excerpt:
---
%s
---`

// GeminiTitler generates chapter titles through the Gemini API, rotating
// through the configured keys when one is rate limited.
type GeminiTitler struct {
	apiKeys    []string
	currentKey int
	model      string
	mu         sync.Mutex
}

// NewGeminiTitler builds a titler over the supplied API keys.
func NewGeminiTitler(apiKeys []string, model string) (*GeminiTitler, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiTitler{apiKeys: apiKeys, model: model}, nil
}

// Title asks Gemini for a short chapter title. Rotates API keys on
// 429 / quota errors; any other failure is returned to the caller, which
// degrades to FallbackTitle.
func (g *GeminiTitler) Title(ctx context.Context, text string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prompt := fmt.Sprintf(titlePrompt, text)

	var lastErr error
	for range g.apiKeys {
		key := g.apiKeys[g.currentKey]

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				log.Printf("Gemini key %d rate limited, rotating", g.currentKey+1)
				g.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var out string
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					out += part.Text
				}
			}
			if title := cleanTitle(out); title != "" {
				return title, nil
			}
		}

		return "", fmt.Errorf("empty response from gemini")
	}

	return "", fmt.Errorf("all api keys exhausted: %w", lastErr)
}

func (g *GeminiTitler) rotateKey() {
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
}

// cleanTitle strips the wrapping the model sometimes adds.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
