package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

const (
	ollamaTimeout       = 120 * time.Second
	ollamaSystemMessage = "You are an expert at reading grocery receipts. You must carefully read all text in images and extract accurate information."
)

// Ollama implements Scanner and TextRecognizer using a local Ollama server
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama instance.
// Vision models that read receipts reasonably well include llava:1.6,
// qwen2-vl:7b and bakllava.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	return NewOllamaWithClient(baseURL, modelName, &http.Client{Timeout: ollamaTimeout})
}

// NewOllamaWithClient creates a new Ollama instance with a custom HTTP client
func NewOllamaWithClient(baseURL string, modelName string, client *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client:  client,
	}, nil
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ScanReceipt asks the model for the purchased items on a receipt
func (o *Ollama) ScanReceipt(imageData []byte, contentType string) ([]parsing.LineItem, error) {
	text, err := o.chat(imageData, contentType, itemsPrompt)
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
func (o *Ollama) RecognizeText(imageData []byte, contentType string) ([]Fragment, error) {
	text, err := o.chat(imageData, contentType, fragmentsPrompt)
	if err != nil {
		return nil, err
	}

	fragments, err := parseFragmentsJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing text fragments: %w", err)
	}
	return fragments, nil
}

// chat sends one non-streaming chat request with the image attached to the user message
func (o *Ollama) chat(imageData []byte, contentType, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ollamaTimeout)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: ollamaSystemMessage},
			{
				Role:    "user",
				Content: prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
		Options: ollamaOptions{Temperature: 0.1},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return chatResp.Message.Content, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
