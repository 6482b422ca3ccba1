package summary

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Gemini summarizes with the Gemini API.
type Gemini struct {
	client *genai.Client
	config Config
	logger *logrus.Logger
}

func NewGemini(ctx context.Context, cfg Config, logger *logrus.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini model is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &Gemini{client: client, config: cfg, logger: logger}, nil
}

func (g *Gemini) Model() string {
	return g.config.Model
}

func (g *Gemini) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("transcript is empty")
	}

	genConfig := &genai.GenerateContentConfig{}
	if g.config.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(g.config.Temperature))
	}
	if g.config.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(g.config.MaxOutputTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(BuildPrompt(transcript)), genConfig)
	if err != nil {
		return "", errors.Wrap(err, "generate content")
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	summary := strings.TrimSpace(text.String())
	if summary == "" {
		return "", errors.New("gemini returned no text")
	}

	g.logger.WithFields(logrus.Fields{
		"model":             g.config.Model,
		"transcript_length": len(transcript),
		"summary_length":    len(summary),
	}).Info("Summary generated")

	return summary, nil
}
