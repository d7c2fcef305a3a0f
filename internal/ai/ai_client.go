package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"invoicepilot/internal/config"
	"invoicepilot/internal/logger"
	"invoicepilot/internal/model"
	"invoicepilot/internal/service"
)

type aiClient struct {
	provider   string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

func NewAIClient(apiKey string, logger *logger.Logger) service.AIClient {
	provider := config.GetEnv("AI_PROVIDER", "gemini")
	baseURL := getBaseURL(provider)

	return &aiClient{
		provider:   provider,
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// getBaseURL returns the appropriate API base URL based on the provider
func getBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	default:
		return "https://api.openai.com/v1"
	}
}

// getModel returns the appropriate model based on the provider
func getModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "gpt-4o"
	}
}

// OpenAI/DeepSeek API request/response structures
type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Gemini API request/response structures
type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiCandidateContent `json:"content"`
	FinishReason string                 `json:"finishReason"`
}

type geminiCandidateContent struct {
	Parts []geminiPart `json:"parts"`
}

// extractionPrompt instructs the model to return only a JSON object matching
// the ExtractedInvoice shape, with empty-string/0/empty-object defaults for
// anything it cannot find. The parties objects must always be present.
const extractionPrompt = `You are an expert data extraction AI. Your task is to analyze the following raw text from an invoice and extract its information into a structured JSON object.

The desired JSON structure is as follows. Do not add any fields that are not in this structure.
If a value is not found, use an empty string "" for string fields, 0 for number fields, or an empty object for nested address/tax schemas. The 'items' array can be empty if no line items are found. The 'parties' objects (supplier, customer) must always be present.

{
  "metadata": {
    "number": "string",
    "date": "string (YYYY-MM-DD format)",
    "dueDate": "string (YYYY-MM-DD format)",
    "currency": "string (e.g., INR, USD)"
  },
  "parties": {
    "supplier": { "name": "string", "taxInfo": { "gstin": "string" }, "address": { "line1": "string", "city": "string", "state": "string", "country": "string" } },
    "customer": { "name": "string", "taxInfo": { "gstin": "string" }, "address": { "line1": "string", "city": "string", "state": "string", "country": "string" } }
  },
  "amounts": {
    "subtotal": "number",
    "tax": { "total": "number" },
    "total": "number (this is the final grand total)"
  },
  "items": [
    {
      "description": "string",
      "quantity": "number",
      "rate": "number",
      "amount": "number"
    }
  ]
}

Here is the raw text from the invoice:
---
%s
---

Please provide only the JSON object as the output, without any additional commentary or explanations.`

func (a *aiClient) ExtractInvoice(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, errors.New("raw text for extraction cannot be empty")
	}

	prompt := fmt.Sprintf(extractionPrompt, rawText)

	var response string
	var err error
	switch a.provider {
	case ProviderGemini:
		response, err = a.generateWithGemini(ctx, prompt)
	default:
		response, err = a.generateWithOpenAIStyle(ctx, prompt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract invoice data: %w", err)
	}

	extracted, err := ParseExtractedInvoice(response)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Extracted invoice #" + extracted.Metadata.Number)
	return extracted, nil
}

// ParseExtractedInvoice strips markdown code fences the model sometimes wraps
// its output in and decodes the strict invoice shape.
func ParseExtractedInvoice(response string) (*model.ExtractedInvoice, error) {
	jsonText := strings.ReplaceAll(response, "```json", "")
	jsonText = strings.ReplaceAll(jsonText, "```", "")
	jsonText = strings.TrimSpace(jsonText)

	extracted := &model.ExtractedInvoice{}
	if err := json.Unmarshal([]byte(jsonText), extracted); err != nil {
		return nil, fmt.Errorf("model response did not match invoice schema: %w", err)
	}
	return extracted, nil
}

// generateWithOpenAIStyle sends the prompt to an OpenAI/DeepSeek style API
func (a *aiClient) generateWithOpenAIStyle(ctx context.Context, prompt string) (string, error) {
	request := chatCompletionRequest{
		Model: getModel(a.provider),
		Messages: []message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	resp, err := a.makeRequest(ctx, request)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from AI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// generateWithGemini sends the prompt to the Google Gemini API
func (a *aiClient) generateWithGemini(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{
						Text: prompt,
					},
				},
			},
		},
	}

	resp, err := a.makeGeminiRequest(ctx, request)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	if len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in Gemini response")
	}

	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// makeRequest makes an HTTP request to the OpenAI/DeepSeek AI API
func (a *aiClient) makeRequest(ctx context.Context, request chatCompletionRequest) (*chatCompletionResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := a.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &chatResp, nil
}

// makeGeminiRequest makes an HTTP request to the Google Gemini API
func (a *aiClient) makeGeminiRequest(ctx context.Context, request geminiRequest) (*geminiResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	modelName := getModel(a.provider)
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, modelName, a.apiKey)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Gemini API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &geminiResp, nil
}
