package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ctxlab/internal/types"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is the model used when the config leaves it unset.
	DefaultModel = "gemini-3-flash-preview"
)

// GeminiConfig configures the raw HTTP Gemini client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// GeminiClient talks to the Gemini REST API directly. It implements both
// types.LLMClient (generateContent with function calling) and
// types.TokenCounter (the countTokens probe the accounting layer needs).
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
	log             *zap.Logger
}

// NewGeminiClient creates a client, filling defaults for unset fields.
func NewGeminiClient(config GeminiConfig, log *zap.Logger) *GeminiClient {
	if log == nil {
		log = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(config.Model) == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = 8192
	}
	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         config.BaseURL,
		model:           config.Model,
		maxOutputTokens: config.MaxOutputTokens,
		httpClient:      &http.Client{Timeout: config.Timeout},
		log:             log,
	}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Gemini REST wire types. The API uses camelCase field names.

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type countTokensRequest struct {
	GenerateContentRequest geminiRequest `json:"generateContentRequest"`
}

type countTokensResponse struct {
	TotalTokens int `json:"totalTokens"`
	Error       *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// CompleteWithTools sends the full transcript with tool declarations and
// returns the model's text, any requested tool calls, and verified usage.
func (c *GeminiClient) CompleteWithTools(ctx context.Context, systemPrompt string, messages []types.ChatMessage, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	reqBody := c.buildRequest(systemPrompt, messages, tools)
	reqBody.GenerationConfig = &geminiGenerationConfig{
		Temperature:     1.0,
		MaxOutputTokens: c.maxOutputTokens,
	}

	start := time.Now()
	var geminiResp geminiResponse
	if err := c.post(ctx, "generateContent", reqBody, &geminiResp); err != nil {
		return nil, err
	}
	if geminiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", geminiResp.Error.Message)
	}

	result := &types.LLMToolResponse{
		Usage: types.UsageMetadata{
			InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
			OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  geminiResp.UsageMetadata.TotalTokenCount,
		},
	}
	if len(geminiResp.Candidates) > 0 {
		candidate := geminiResp.Candidates[0]
		result.StopReason = candidate.FinishReason
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				result.ToolCalls = append(result.ToolCalls, types.ToolCall{
					ID:    fmt.Sprintf("call_%d", len(result.ToolCalls)),
					Name:  part.FunctionCall.Name,
					Input: part.FunctionCall.Args,
				})
			}
		}
		result.Text = strings.TrimSpace(text.String())
	}

	c.log.Debug("generateContent completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("input_tokens", result.Usage.InputTokens),
		zap.Int("output_tokens", result.Usage.OutputTokens),
		zap.Int("tool_calls", len(result.ToolCalls)))
	return result, nil
}

// CountTokens returns the exact input cost of a hypothetical request via
// the countTokens endpoint. This is the measurement probe behind every
// "measured" figure in the breakdowns.
func (c *GeminiClient) CountTokens(ctx context.Context, systemPrompt string, messages []types.ChatMessage, tools []types.ToolDefinition) (int, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("API key not configured")
	}

	reqBody := countTokensRequest{GenerateContentRequest: c.buildRequest(systemPrompt, messages, tools)}
	var countResp countTokensResponse
	if err := c.post(ctx, "countTokens", reqBody, &countResp); err != nil {
		return 0, err
	}
	if countResp.Error != nil {
		return 0, fmt.Errorf("API error: %s", countResp.Error.Message)
	}
	return countResp.TotalTokens, nil
}

func (c *GeminiClient) buildRequest(systemPrompt string, messages []types.ChatMessage, tools []types.ToolDefinition) geminiRequest {
	req := geminiRequest{Contents: toGeminiContents(messages)}
	if systemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	if len(tools) > 0 {
		declarations := make([]geminiFunctionDeclaration, len(tools))
		for i, t := range tools {
			declarations[i] = geminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			}
		}
		req.Tools = []geminiTool{{FunctionDeclarations: declarations}}
	}
	return req
}

func toGeminiContents(messages []types.ChatMessage) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		var parts []geminiPart
		if msg.Text != "" {
			parts = append(parts, geminiPart{Text: msg.Text})
		}
		for _, call := range msg.ToolCalls {
			parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
				Name: call.Name,
				Args: call.Input,
			}})
		}
		for _, result := range msg.ToolResults {
			parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
				Name:     result.Name,
				Response: map[string]any{"result": result.Content},
			}})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, geminiContent{Role: msg.Role, Parts: parts})
	}
	return contents
}

func (c *GeminiClient) post(ctx context.Context, method string, reqBody, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s?key=%s", c.baseURL, c.model, method, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
