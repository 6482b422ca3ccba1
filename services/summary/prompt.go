package summary

import (
	"context"
	"fmt"
)

const promptTemplate = `You are given the transcript of a video. Lines may start with a [HH:MM:SS] timestamp.

Write a summary in Markdown:
- Start with a two or three sentence overview of what the video is about.
- Follow with the main points as a bulleted list, in the order they appear.
- When the transcript has timestamps, put the timestamp of the moment a point starts in front of it, like "[00:04:12]".
- Call out any novel or unique ideas the video presents.
- The transcript may come from speech recognition. Correct obvious spelling mistakes where the intended word is clear from context.
- Keep names, numbers and technical terms as spoken unless they are clearly misrecognized.
- Do not add information that is not in the transcript.

Transcript:
%s`

// BuildPrompt returns the full prompt sent to the model for transcript.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}

// PromptOnly returns the prompt instead of a summary, for use with an external model.
type PromptOnly struct{}

func (PromptOnly) Summarize(ctx context.Context, transcript string) (string, error) {
	return BuildPrompt(transcript), nil
}

func (PromptOnly) Model() string {
	return "prompt-only"
}
