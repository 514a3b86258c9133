package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// SpeechClient submits audio to the remote speech-to-text provider.
type SpeechClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSpeechClient creates a client for the primary transcription provider.
func NewSpeechClient(endpoint, apiKey string, timeout time.Duration) *SpeechClient {
	return &SpeechClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// speechResponse is the provider's transcript payload.
type speechResponse struct {
	Utterances []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"utterances"`
}

// Transcribe uploads the audio file and returns its utterances. An HTTP
// 429 surfaces as types.ErrRateLimited so the adapter can back off and
// retry; every other non-2xx status is terminal for this provider.
func (sc *SpeechClient) Transcribe(ctx context.Context, audioPath, language string) ([]types.Utterance, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer audio.Close()

	reqURL := fmt.Sprintf("%s?language=%s", sc.endpoint, language)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, audio)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", sc.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status 429", types.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech provider status %d: %s", resp.StatusCode, string(body))
	}

	var payload speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("speech decode: %w", err)
	}

	utterances := make([]types.Utterance, len(payload.Utterances))
	for i, u := range payload.Utterances {
		utterances[i] = types.Utterance{Text: u.Text, Start: u.Start, End: u.End}
	}

	return utterances, nil
}
