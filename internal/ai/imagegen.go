package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ImageEditClient calls a Gemini image-generation model through the genai
// SDK. The REST client in this package handles text; image output needs the
// TEXT+IMAGE response modalities the SDK exposes.
type ImageEditClient struct {
	client *genai.Client
	model  string
}

func NewImageEditClient(ctx context.Context, apiKey, model string) (*ImageEditClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client failed: %w", err)
	}
	return &ImageEditClient{client: client, model: model}, nil
}

// EditResult is one generated revision: the edited image plus the model's
// description of the changes it made.
type EditResult struct {
	ImageData []byte
	MIMEType  string
	Text      string
}

// EditImage sends the photo and an editing instruction to the image model
// and returns the edited image with its change description.
func (c *ImageEditClient) EditImage(
	ctx context.Context,
	imageData []byte,
	imageMIMEType string,
	instruction string,
	systemInstruction string,
) (*EditResult, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{
					MIMEType: imageMIMEType,
					Data:     imageData,
				}},
				{Text: instruction},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("image edit request failed: %w", err)
	}

	result := &EditResult{}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				result.ImageData = part.InlineData.Data
				result.MIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				result.Text += part.Text
			}
		}
	}

	if result.ImageData == nil {
		return nil, fmt.Errorf("no image in edit response")
	}
	return result, nil
}
