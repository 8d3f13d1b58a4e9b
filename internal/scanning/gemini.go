package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

const geminiTimeout = 30 * time.Second

// Gemini implements Scanner and TextRecognizer using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini instance.
// The caller owns the returned client and must Close it.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ScanReceipt asks the model for the purchased items on a receipt
func (g *Gemini) ScanReceipt(imageData []byte, contentType string) ([]parsing.LineItem, error) {
	text, err := g.generate(imageData, contentType, itemsPrompt)
	if err != nil {
		return nil, err
	}

	items, err := parseItemsJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt items: %w", err)
	}
	return items, nil
}

// RecognizeText asks the model for the raw printed lines of a receipt
func (g *Gemini) RecognizeText(imageData []byte, contentType string) ([]Fragment, error) {
	text, err := g.generate(imageData, contentType, fragmentsPrompt)
	if err != nil {
		return nil, err
	}

	fragments, err := parseFragmentsJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing text fragments: %w", err)
	}
	return fragments, nil
}

// generate sends the image and prompt and returns the concatenated text parts
func (g *Gemini) generate(imageData []byte, contentType, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiTimeout)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects the format suffix ("png"), not the MIME type
	resp, err := g.model.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
