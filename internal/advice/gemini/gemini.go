// Package gemini implements advice.Generator on the Google generative
// language API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	genai "google.golang.org/api/generativelanguage/v1beta"

	"finance/internal/advice"
)

const DefaultModel = "gemini-2.5-flash"

type Client struct {
	svc     *genai.Service
	model   string
	timeout time.Duration
}

var _ advice.Generator = (*Client)(nil)

type Config struct {
	APIKey string
	// Model defaults to DefaultModel. The "models/" prefix is optional.
	Model string
	// Timeout bounds a single call; zero means the caller's context only.
	Timeout time.Duration
}

// New creates a client. Extra options are appended after the API key, which
// lets tests point the client at a local endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("missing API key")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	svc, err := genai.NewService(ctx, append([]goption.ClientOption{goption.WithAPIKey(key)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}
	return &Client{svc: svc, model: model, timeout: cfg.Timeout}, nil
}

// Generate sends prompt as a single user turn and returns the text parts of
// the first candidate joined together. No candidates yields "".
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &genai.GenerateContentRequest{
		Contents: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
	}
	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return firstCandidateText(resp), nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
