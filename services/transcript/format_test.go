package transcript

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59.9, "00:00:59"},
		{60, "00:01:00"},
		{65, "00:01:05"},
		{3661, "01:01:01"},
		{12.3, "00:00:12"},
		{86399.99, "23:59:59"},
		{360000, "100:00:00"},
		{-5, "00:00:00"},
		{math.NaN(), "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatTimestampMonotonic(t *testing.T) {
	prev := FormatTimestamp(0)
	for s := 0.5; s < 400000; s += 997.3 {
		cur := FormatTimestamp(s)
		if len(cur) == len(prev) && cur < prev {
			t.Fatalf("FormatTimestamp not monotonic: %q after %q", cur, prev)
		}
		prev = cur
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(nil))
	assert.Equal(t,
		"[00:00:05] b\n[00:00:01] a\n[00:00:05] b",
		Normalize([]Cue{{5, "b"}, {1, "a"}, {5, "b"}}),
		"order is kept and duplicates are not removed",
	)
}

func TestParseCuesWebVTT(t *testing.T) {
	vtt := `WEBVTT

00:00:02.000 --> 00:00:03.000
first line

00:01:00.000 --> 00:01:01.000
second
part
`
	cues, err := ParseCues(strings.NewReader(vtt), "vtt")
	require.NoError(t, err)
	require.Len(t, cues, 2)
	assert.InDelta(t, 2.0, cues[0].Start, 1e-9)
	assert.Equal(t, "first line", cues[0].Text)
	assert.Equal(t, "second part", cues[1].Text)
	assert.Equal(t, "[00:00:02] first line\n[00:01:00] second part", Normalize(cues))
}

func TestParseCuesUnknownFormat(t *testing.T) {
	_, err := ParseCues(strings.NewReader(""), "json")
	assert.Error(t, err)
}

func TestSelectStream(t *testing.T) {
	_, ok := SelectStream(nil)
	assert.False(t, ok)

	got, ok := SelectStream(audioAndVideoStreams())
	require.True(t, ok)
	assert.Equal(t, "251", got.ID)

	got, ok = SelectStream([]Stream{{ID: "22"}, {ID: "18"}})
	require.True(t, ok)
	assert.Equal(t, "22", got.ID)
}

func TestSubtypeFromMime(t *testing.T) {
	tests := map[string]string{
		`audio/webm; codecs="opus"`:   "webm",
		`audio/mp4; codecs="mp4a.40.2"`: "mp4",
		"video/3gpp":                  "3gpp",
		"garbage":                     "",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SubtypeFromMime(in), in)
	}
}
