package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/glowface/pointgate/internal/config"
	"go.uber.org/zap"
)

const (
	textModel  = "gemini-2.0-flash"
	imageModel = "gemini-2.0-flash-exp-image-generation"
)

// GeminiClient talks to a Gemini-compatible generateContent endpoint.
type GeminiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewGeminiClient(cfg config.Config, log *zap.Logger) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimRight(cfg.GenerationBaseURL, "/"),
		apiKey:  cfg.GenerationAPIKey,
		http:    &http.Client{Timeout: cfg.GenerationTimeout},
		log:     log.Named("generation.gemini"),
	}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig map[string]any    `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) SuggestText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, textModel, generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return strings.TrimSpace(part.Text), nil
			}
		}
	}
	return "", ErrUpstream
}

func (c *GeminiClient) EditImage(ctx context.Context, prompt, imageBase64 string) (string, error) {
	resp, err := c.generate(ctx, imageModel, generateRequest{
		Contents: []generateContent{{Parts: []generatePart{
			{Text: prompt},
			{InlineData: &inlineData{MimeType: "image/png", Data: imageBase64}},
		}}},
		GenerationConfig: map[string]any{"responseModalities": []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return fmt.Sprintf("data:%s;base64,%s", part.InlineData.MimeType, part.InlineData.Data), nil
			}
		}
	}
	return "", ErrUpstream
}

func (c *GeminiClient) generate(ctx context.Context, model string, body generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("upstream rejected generate request",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &out, nil
}
