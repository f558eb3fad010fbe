package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrNoKeys is returned when the client has no API key to try.
var ErrNoKeys = errors.New("no gemini api keys configured")

// GenerateFunc performs one GenerateContent call with a single key.
type GenerateFunc func(ctx context.Context, apiKey, model string, contents []*genai.Content) (string, error)

// Generate sends parts as one user turn. Keys are rotated on 429 / quota
// errors; any other error is returned at once.
func (c *implClient) Generate(ctx context.Context, parts ...*genai.Part) (string, error) {
	if len(c.apiKeys) == 0 {
		return "", ErrNoKeys
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var lastErr error
	for range len(c.apiKeys) {
		idx, key := c.key()

		text, err := c.generate(ctx, key, c.model, contents)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRateLimited(err) {
			return "", fmt.Errorf("generate content: %w", err)
		}

		c.logger.Warn(ctx, "Key %d rate limited, rotating...", idx+1)
		c.rotateKey(idx)
		lastErr = err
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

// IsRateLimited reports whether err looks like a Gemini quota rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func (c *implClient) key() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentKey, c.apiKeys[c.currentKey]
}

// rotateKey advances past idx unless another caller already did.
func (c *implClient) rotateKey(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentKey == idx {
		c.currentKey = (c.currentKey + 1) % len(c.apiKeys)
	}
}

func generateContent(ctx context.Context, apiKey, model string, contents []*genai.Content) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return result.Text(), nil
}
