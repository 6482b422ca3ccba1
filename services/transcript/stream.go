package transcript

import "strings"

// SelectStream picks the first audio-only stream, else the first stream of any kind.
func SelectStream(streams []Stream) (Stream, bool) {
	for _, s := range streams {
		if s.AudioOnly {
			return s, true
		}
	}
	if len(streams) > 0 {
		return streams[0], true
	}
	return Stream{}, false
}

// SubtypeFromMime returns the container subtype of a MIME type, e.g. "webm" for
// `audio/webm; codecs="opus"`.
func SubtypeFromMime(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	_, subtype, found := strings.Cut(strings.TrimSpace(base), "/")
	if !found {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(subtype))
}
