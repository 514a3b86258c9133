package chapters

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// Draft is an untitled chapter: the accumulated text of one segment and
// the start time of its first utterance.
type Draft struct {
	StartSeconds float64
	Text         string
}

// Segment walks the utterances in order and groups them into chapters of
// roughly targetSeconds each. A chapter closes once the elapsed time since
// its first utterance reaches the target; the final partial chapter is
// always emitted. Zero utterances produce zero drafts.
func Segment(utterances []types.Utterance, targetSeconds float64) []Draft {
	var drafts []Draft
	var parts []string
	var chapterStart float64
	open := false

	for _, u := range utterances {
		if !open {
			chapterStart = u.Start
			open = true
		}

		parts = append(parts, u.Text)

		if u.End-chapterStart >= targetSeconds {
			drafts = append(drafts, Draft{
				StartSeconds: chapterStart,
				Text:         strings.TrimSpace(strings.Join(parts, " ")),
			})
			parts = parts[:0]
			open = false
		}
	}

	if open && len(parts) > 0 {
		drafts = append(drafts, Draft{
			StartSeconds: chapterStart,
			Text:         strings.TrimSpace(strings.Join(parts, " ")),
		})
	}

	return drafts
}

// FormatTimestamp renders seconds as "HH:MM:SS".
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
