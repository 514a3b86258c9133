// Package media derives stable task ids from source URLs and resolves
// display metadata through an oEmbed endpoint.
package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeriveID maps a media URL to a stable identifier. Known YouTube URL
// shapes resolve to the canonical video id so that every spelling of the
// same video hits the same task record; anything else is hashed.
func DeriveID(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	if id := youtubeVideoID(trimmed); id != "" {
		return id
	}

	sum := sha1.Sum([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// youtubeVideoID extracts the video id from watch, short-link, shorts,
// embed and live URLs. Returns "" when the URL is not recognizably YouTube.
func youtubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch host {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				return rest
			}
		}
	}

	return ""
}

// Metadata carries the display fields of a media source.
type Metadata struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// MetadataClient resolves title and thumbnail through an oEmbed endpoint.
type MetadataClient struct {
	endpoint string
	client   *http.Client
}

// NewMetadataClient builds a resolver against the given oEmbed endpoint.
func NewMetadataClient(endpoint string, timeout time.Duration) *MetadataClient {
	if endpoint == "" {
		endpoint = "https://www.youtube.com/oembed"
	}
	return &MetadataClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Resolve fetches oEmbed metadata for a media URL. Callers treat failure
// as non-fatal; the analysis proceeds with empty fields.
func (mc *MetadataClient) Resolve(ctx context.Context, rawURL string) (Metadata, error) {
	reqURL := fmt.Sprintf("%s?format=json&url=%s", mc.endpoint, url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Metadata{}, err
	}

	resp, err := mc.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("oembed status %d", resp.StatusCode)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Metadata{}, fmt.Errorf("oembed decode: %w", err)
	}

	return meta, nil
}
