package classifier

import "encoding/json"

// Wire types for the Anthropic Messages API.

type apiRequest struct {
	Model      string        `json:"model"`
	MaxTokens  int           `json:"max_tokens"`
	System     string        `json:"system,omitempty"`
	Messages   []apiMessage  `json:"messages"`
	Tools      []apiTool     `json:"tools,omitempty"`
	ToolChoice *apiToolChoice `json:"tool_choice,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type apiToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type apiResponse struct {
	Content    []apiContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
	Usage      apiUsage          `json:"usage"`
}

type apiContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// classificationSchema constrains the model to emit one judgment per
// message via forced tool use.
const classificationSchema = `{
	"type": "object",
	"properties": {
		"classifications": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"email_uid": {"type": "integer", "description": "UID of the email being classified"},
					"category": {"type": "string", "description": "Category name from the available categories"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1},
					"reasoning": {"type": "string", "description": "Brief explanation of the classification"}
				},
				"required": ["email_uid", "category", "confidence", "reasoning"]
			}
		}
	},
	"required": ["classifications"]
}`

const suggestionSchema = `{
	"type": "object",
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Short snake_case name for the category"},
					"description": {"type": "string", "description": "What emails this category would match"},
					"suggested_action": {"type": "string", "enum": ["none", "flag", "move", "trash", "archive"]},
					"example_uids": {"type": "array", "items": {"type": "integer"}},
					"reasoning": {"type": "string", "description": "Why this category would be useful"}
				},
				"required": ["name", "description", "suggested_action", "reasoning"]
			}
		}
	},
	"required": ["suggestions"]
}`
