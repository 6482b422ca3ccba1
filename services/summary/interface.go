package summary

import (
	"context"
)

// Client turns a transcript into a summary.
type Client interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	// Model names what produced the summary; stored alongside it.
	Model() string
}

type Config struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	// BaseURL overrides the API endpoint.
	BaseURL string
}
