package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImagePart is an inline image attached to a generation request.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

// GenerateConfig selects the model endpoint for one call.
type GenerateConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// GeminiClient talks to the Generative Language REST API directly. The
// streaming path relays SSE chunks to the caller as they arrive.
type GeminiClient struct {
	httpClient *http.Client
}

func NewGeminiClient() *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func buildRequestBody(cfg GenerateConfig, systemPrompt, userPrompt string, images []ImagePart) ([]byte, error) {
	parts := make([]geminiPart, 0, len(images)+1)
	if strings.TrimSpace(userPrompt) != "" {
		parts = append(parts, geminiPart{Text: userPrompt})
	}
	for _, img := range images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MIMEType: mime,
				Data:     base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty llm request")
	}

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature: cfg.Temperature,
			TopP:        0.95,
			TopK:        64,
		},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal llm request failed: %w", err)
	}
	return body, nil
}

func (c *GeminiClient) endpoint(cfg GenerateConfig, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model, method)
}

func (c *GeminiClient) Complete(
	ctx context.Context,
	cfg GenerateConfig,
	systemPrompt, userPrompt string,
	images []ImagePart,
) (string, error) {
	body, err := buildRequestBody(cfg, systemPrompt, userPrompt, images)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(cfg, "generateContent"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build llm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read llm response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	text := joinParts(parsed)
	if text == "" {
		return "", fmt.Errorf("empty llm candidates")
	}
	return text, nil
}

// StreamComplete issues a streamGenerateContent call and forwards every text
// chunk to onChunk as it arrives. Returns the concatenated full text.
func (c *GeminiClient) StreamComplete(
	ctx context.Context,
	cfg GenerateConfig,
	systemPrompt, userPrompt string,
	images []ImagePart,
	onChunk func(chunk string) error,
) (string, error) {
	body, err := buildRequestBody(cfg, systemPrompt, userPrompt, images)
	if err != nil {
		return "", err
	}

	url := c.endpoint(cfg, "streamGenerateContent") + "?alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build llm stream request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm stream status %d: %s", resp.StatusCode, string(raw))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		text := joinParts(chunk)
		if text == "" {
			continue
		}

		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan llm stream failed: %w", err)
	}
	return full.String(), nil
}

func joinParts(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}
