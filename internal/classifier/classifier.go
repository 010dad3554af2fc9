// Package classifier obtains categorical judgments for message batches
// from the Claude Messages API, using forced tool use for structured
// output.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/mail-triage/internal/model"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
	defaultAPIURL    = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"

	// Structured JSON output costs roughly 100 tokens per message plus
	// fixed overhead.
	tokensPerMessage = 100
	tokenOverhead    = 256
)

// Usage reports token consumption for one API call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns combined input and output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Classifier calls the Claude API to classify message batches. It is
// stateless between calls.
type Classifier struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	logger    *zap.Logger

	// APIURL is overridable for tests.
	APIURL string
}

// New creates a classifier for the given API key and model. Empty model
// or non-positive maxTokens fall back to defaults.
func New(apiKey, modelName string, maxTokens int, logger *zap.Logger) *Classifier {
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		client:    &http.Client{},
		logger:    logger,
		APIURL:    defaultAPIURL,
	}
}

// Model returns the model name this classifier targets.
func (c *Classifier) Model() string { return c.model }

// Classify submits a batch of message summaries and returns one judgment
// per message as reported by the model, plus token usage. The request
// instructs the model to cover every message in the batch; missing
// entries simply produce no judgment for that message.
func (c *Classifier) Classify(
	ctx context.Context,
	messages []model.MessageSummary,
	rules []model.CategoryRule,
	systemPrompt string,
) ([]model.Judgment, Usage, error) {
	if len(messages) == 0 {
		return nil, Usage{}, nil
	}

	userMsg, err := buildUserMessage(messages)
	if err != nil {
		return nil, Usage{}, err
	}

	maxTokens := c.maxTokens
	if need := len(messages)*tokensPerMessage + tokenOverhead; need > maxTokens {
		maxTokens = need
	}

	resp, err := c.call(ctx, apiRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    buildSystemPrompt(systemPrompt, rules),
		Messages:  []apiMessage{{Role: "user", Content: userMsg}},
		Tools: []apiTool{{
			Name:        "record_classifications",
			Description: "Record the category classification for each email in the batch.",
			InputSchema: json.RawMessage(classificationSchema),
		}},
		ToolChoice: &apiToolChoice{Type: "tool", Name: "record_classifications"},
	})
	if err != nil {
		return nil, Usage{}, err
	}

	var result struct {
		Classifications []model.Judgment `json:"classifications"`
	}
	if err := decodeToolInput(resp, "record_classifications", &result); err != nil {
		return nil, usageOf(resp), err
	}

	c.logger.Debug("batch classified",
		zap.Int("messages", len(messages)),
		zap.Int("judgments", len(result.Classifications)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	return result.Classifications, usageOf(resp), nil
}

// SuggestCategories asks the model for new categories that would improve
// the rule table, given the batch and how it was resolved. Suggestions
// are advisory; nothing applies them automatically.
func (c *Classifier) SuggestCategories(
	ctx context.Context,
	messages []model.MessageSummary,
	rules []model.CategoryRule,
	actions []model.ResolvedAction,
	suggestionsPrompt string,
) ([]model.CategorySuggestion, Usage, error) {
	var system strings.Builder
	system.WriteString("You are an email triage assistant. The user has these existing categories:\n")
	for _, r := range rules {
		fmt.Fprintf(&system, "- %s: %s\n", r.Name, r.Description)
	}
	system.WriteString("\n")
	system.WriteString(strings.TrimSpace(suggestionsPrompt))
	system.WriteString("\n\nOnly suggest categories that are clearly distinct from the existing ones. ")
	system.WriteString("If the existing categories already cover everything well, return an empty list.")

	userMsg, err := buildUserMessage(messages)
	if err != nil {
		return nil, Usage{}, err
	}

	byUID := model.MessagesByUID(messages)
	type classified struct {
		UID        uint32  `json:"uid"`
		Subject    string  `json:"subject"`
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	lines := make([]classified, 0, len(actions))
	for _, a := range actions {
		subject := "?"
		if msg, ok := byUID[a.EmailUID]; ok {
			subject = msg.Subject
		}
		lines = append(lines, classified{
			UID:        a.EmailUID,
			Subject:    subject,
			Category:   a.Category,
			Confidence: a.Confidence,
			Reasoning:  a.Reasoning,
		})
	}
	classifiedJSON, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return nil, Usage{}, fmt.Errorf("encoding classifications: %w", err)
	}

	resp, err := c.call(ctx, apiRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    system.String(),
		Messages: []apiMessage{{
			Role: "user",
			Content: userMsg +
				"\n\nHere is how these emails were classified:\n\n" +
				string(classifiedJSON),
		}},
		Tools: []apiTool{{
			Name:        "record_suggestions",
			Description: "Record suggested new triage categories.",
			InputSchema: json.RawMessage(suggestionSchema),
		}},
		ToolChoice: &apiToolChoice{Type: "tool", Name: "record_suggestions"},
	})
	if err != nil {
		return nil, Usage{}, err
	}

	var result struct {
		Suggestions []model.CategorySuggestion `json:"suggestions"`
	}
	if err := decodeToolInput(resp, "record_suggestions", &result); err != nil {
		return nil, usageOf(resp), err
	}
	return result.Suggestions, usageOf(resp), nil
}

// Ping verifies the API key with a minimal request.
func (c *Classifier) Ping(ctx context.Context) error {
	_, err := c.call(ctx, apiRequest{
		Model:     c.model,
		MaxTokens: 16,
		Messages:  []apiMessage{{Role: "user", Content: "Say 'ok'"}},
	})
	return err
}

// call performs one Messages API request.
func (c *Classifier) call(ctx context.Context, reqBody apiRequest) (*apiResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.APIURL, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

// buildSystemPrompt appends the category table and coverage instruction
// to the user's base prompt.
func buildSystemPrompt(base string, rules []model.CategoryRule) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(base))
	sb.WriteString("\n\nAvailable categories:\n")
	for _, r := range rules {
		fmt.Fprintf(&sb, "- %s: %s\n", r.Name, r.Description)
	}
	sb.WriteString("\nFor each email, assign exactly one category, a confidence score (0-1),\n")
	sb.WriteString("and a brief reasoning. Return results for ALL emails in the batch.")
	return sb.String()
}

// buildUserMessage renders the batch as a JSON array of summaries.
func buildUserMessage(messages []model.MessageSummary) (string, error) {
	payload, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding message batch: %w", err)
	}
	return "Classify the following emails:\n\n" + string(payload), nil
}

// decodeToolInput extracts the forced tool call's input from a response.
func decodeToolInput(resp *apiResponse, toolName string, v any) error {
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == toolName {
			if err := json.Unmarshal(block.Input, v); err != nil {
				return fmt.Errorf("decoding %s output: %w", toolName, err)
			}
			return nil
		}
	}
	return fmt.Errorf("response contains no %s tool call", toolName)
}

func usageOf(resp *apiResponse) Usage {
	return Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
}
