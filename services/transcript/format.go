package transcript

import (
	"fmt"
	"io"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/pkg/errors"
)

// FormatTimestamp renders seconds as HH:MM:SS after truncating the fraction.
// Negative and NaN input render as 00:00:00. Hours past 99 keep all their digits.
func FormatTimestamp(seconds float64) string {
	if !(seconds > 0) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Normalize joins cues as "[HH:MM:SS] text" lines in the order given.
func Normalize(cues []Cue) string {
	lines := make([]string, 0, len(cues))
	for _, cue := range cues {
		lines = append(lines, "["+FormatTimestamp(cue.Start)+"] "+cue.Text)
	}
	return strings.Join(lines, "\n")
}

func hasText(cues []Cue) bool {
	for _, cue := range cues {
		if strings.TrimSpace(cue.Text) != "" {
			return true
		}
	}
	return false
}

// ParseCues reads an SRT or WebVTT document into cues.
func ParseCues(r io.Reader, format string) ([]Cue, error) {
	var (
		subs *astisub.Subtitles
		err  error
	)

	switch format {
	case "srt":
		subs, err = astisub.ReadFromSRT(r)
	case "vtt":
		subs, err = astisub.ReadFromWebVTT(r)
	default:
		return nil, errors.Errorf("unsupported cue format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", format)
	}

	cues := make([]Cue, 0, len(subs.Items))
	for _, item := range subs.Items {
		var parts []string
		for _, line := range item.Lines {
			for _, li := range line.Items {
				if text := strings.TrimSpace(li.Text); text != "" {
					parts = append(parts, text)
				}
			}
		}
		if len(parts) == 0 {
			continue
		}
		cues = append(cues, Cue{
			Start: item.StartAt.Seconds(),
			Text:  strings.Join(parts, " "),
		})
	}

	return cues, nil
}
