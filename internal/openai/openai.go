package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

// DefaultURL is the chat completions endpoint.
const DefaultURL = "https://api.openai.com/v1/chat/completions"

// OpenAI is a provider for OpenAI
type OpenAI struct {
	url string
}

// New returns a new OpenAI provider
func New() *OpenAI {
	url := os.Getenv("OPENAI_URL")
	if url == "" {
		url = DefaultURL
	}
	return &OpenAI{url: url}
}

// ExtractText extracts text from the given prompt using OpenAI
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var messages []map[string]interface{}
	if config.System != "" {
		messages = append(messages, map[string]interface{}{"role": "system", "content": config.System})
	}
	content := []map[string]interface{}{{"type": "text", "text": config.Prompt}}
	for _, doc := range config.Documents {
		dataURL := "data:" + doc.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
		if doc.MIMEType == "application/pdf" {
			content = append(content, map[string]interface{}{
				"type": "file",
				"file": map[string]string{"filename": "document.pdf", "file_data": dataURL},
			})
			continue
		}
		content = append(content, map[string]interface{}{
			"type":      "image_url",
			"image_url": map[string]string{"url": dataURL},
		})
	}
	messages = append(messages, map[string]interface{}{"role": "user", "content": content})

	body := map[string]interface{}{
		"model":       config.Model,
		"messages":    messages,
		"temperature": config.Temperature,
	}
	if config.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}
