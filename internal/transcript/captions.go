package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// CaptionClient pulls existing caption tracks from the timedtext endpoint.
// No audio download is needed; the provider works off the media id alone.
type CaptionClient struct {
	endpoint string
	client   *http.Client
}

// NewCaptionClient creates the fallback caption provider.
func NewCaptionClient(endpoint string, timeout time.Duration) *CaptionClient {
	if endpoint == "" {
		endpoint = "https://video.google.com/timedtext"
	}
	return &CaptionClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// timedTextResponse mirrors the json3 caption format: events carrying
// millisecond offsets and text segments.
type timedTextResponse struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segments   []struct {
			Text string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Fetch tries each preferred language as a native track first, then falls
// back to any available track translated into the first preference. When
// no track exists in any form it fails with types.ErrCaptionsUnavailable.
func (cc *CaptionClient) Fetch(ctx context.Context, mediaID string, languages []string) ([]types.Utterance, error) {
	for _, lang := range languages {
		utterances, err := cc.fetchTrack(ctx, mediaID, lang, "")
		if err != nil {
			log.Printf("Caption track %s/%s unavailable: %v", mediaID, lang, err)
			continue
		}
		if len(utterances) > 0 {
			return utterances, nil
		}
	}

	available, err := cc.listLanguages(ctx, mediaID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCaptionsUnavailable, err)
	}
	if len(available) == 0 {
		return nil, types.ErrCaptionsUnavailable
	}

	target := languages[0]
	utterances, err := cc.fetchTrack(ctx, mediaID, available[0], target)
	if err != nil {
		return nil, fmt.Errorf("%w: translate %s to %s: %v", types.ErrCaptionsUnavailable, available[0], target, err)
	}
	if len(utterances) == 0 {
		return nil, types.ErrCaptionsUnavailable
	}

	return utterances, nil
}

// fetchTrack downloads one caption track, optionally translated via tlang.
func (cc *CaptionClient) fetchTrack(ctx context.Context, mediaID, lang, tlang string) ([]types.Utterance, error) {
	params := url.Values{}
	params.Set("v", mediaID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")
	if tlang != "" {
		params.Set("tlang", tlang)
	}

	body, err := cc.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var payload timedTextResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("caption decode: %w", err)
	}

	var utterances []types.Utterance
	for _, ev := range payload.Events {
		var parts []string
		for _, seg := range ev.Segments {
			parts = append(parts, seg.Text)
		}
		text := strings.TrimSpace(strings.Join(parts, ""))
		if text == "" {
			continue
		}
		start := float64(ev.StartMs) / 1000
		utterances = append(utterances, types.Utterance{
			Text:  text,
			Start: start,
			End:   start + float64(ev.DurationMs)/1000,
		})
	}

	return utterances, nil
}

// listLanguages returns the language codes of the tracks the provider has
// for this media id.
func (cc *CaptionClient) listLanguages(ctx context.Context, mediaID string) ([]string, error) {
	params := url.Values{}
	params.Set("v", mediaID)
	params.Set("type", "list")
	params.Set("fmt", "json3")

	body, err := cc.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tracks []struct {
			LanguageCode string `json:"languageCode"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("track list decode: %w", err)
	}

	langs := make([]string, 0, len(payload.Tracks))
	for _, tr := range payload.Tracks {
		langs = append(langs, tr.LanguageCode)
	}

	return langs, nil
}

func (cc *CaptionClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cc.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := cc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption provider status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("caption read: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty caption response")
	}

	return body, nil
}
