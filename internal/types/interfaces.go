package types

import "context"

// LLMClient defines the model round-trip boundary the engines depend on.
// Implementations must report verified token usage for every call.
type LLMClient interface {
	// CompleteWithTools sends a full transcript with tool definitions and
	// returns the model's response, which may request tool invocations.
	CompleteWithTools(ctx context.Context, systemPrompt string, messages []ChatMessage, tools []ToolDefinition) (*LLMToolResponse, error)
}

// TokenCounter is the token-counting probe boundary. Probe failures are
// recoverable: callers degrade to coarser attribution, never to estimates.
type TokenCounter interface {
	// CountTokens returns the exact input token cost of a hypothetical
	// request built from the given components.
	CountTokens(ctx context.Context, systemPrompt string, messages []ChatMessage, tools []ToolDefinition) (int, error)
}

// ChatMessage is one entry in a conversation transcript.
type ChatMessage struct {
	Role        string       `json:"role"` // "user" or "model"
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`   // model turns only
	ToolResults []ToolResult `json:"tool_results,omitempty"` // user turns only
}

// ToolDefinition describes a tool the LLM can invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall is a tool invocation requested by the LLM.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult carries one executed tool's output back to the model.
type ToolResult struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UsageMetadata captures verified token usage from the provider.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMToolResponse contains the text response and any tool calls from one
// model round, with the round's verified usage.
type LLMToolResponse struct {
	Text       string        `json:"text"`
	ToolCalls  []ToolCall    `json:"tool_calls"`
	StopReason string        `json:"stop_reason"`
	Usage      UsageMetadata `json:"usage"`
}
