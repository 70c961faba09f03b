package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/mcqengine/internal/model"
)

var (
	titleTmpl = template.Must(template.New("title").Parse(`New {{.Type}} test: {{.Title}}`))
	bodyTmpl  = template.Must(template.New("body").Parse(
		`A new {{.Type}} test "{{.Title}}" with {{.NumQuestions}} questions has been published.` +
			`{{if .Batches}} It is addressed to batches {{.Batches}}.{{end}}` +
			` Check your test list to take it.`))
)

type templateData struct {
	Type         model.TestType
	Title        string
	NumQuestions int
	Batches      string
}

func dataFor(t model.Test, batchCodes []string) templateData {
	return templateData{
		Type:         t.Type,
		Title:        t.Title,
		NumQuestions: len(t.Questions),
		Batches:      strings.Join(batchCodes, ", "),
	}
}

// TemplateComposer renders a fixed announcement text.
type TemplateComposer struct{}

// Compose implements Composer.
func (TemplateComposer) Compose(_ context.Context, t model.Test, batchCodes []string) (string, string, error) {
	d := dataFor(t, batchCodes)
	var title, body bytes.Buffer
	if err := titleTmpl.Execute(&title, d); err != nil {
		return "", "", err
	}
	if err := bodyTmpl.Execute(&body, d); err != nil {
		return "", "", err
	}
	return title.String(), body.String(), nil
}

// DefaultLLMTimeout bounds one announcement call when no timeout is given.
const DefaultLLMTimeout = 5 * time.Second

// LLMComposer asks an OpenAI-compatible endpoint to word the announcement.
// It falls back to the template when the call fails, times out or returns
// nothing usable.
type LLMComposer struct {
	api      *openai.Client
	model    string
	timeout  time.Duration
	fallback TemplateComposer
}

// NewLLMComposer creates an LLMComposer. A timeout <= 0 means DefaultLLMTimeout.
func NewLLMComposer(baseURL, apiKey, modelName string, timeout time.Duration) *LLMComposer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	return &LLMComposer{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

type llmAnnouncement struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Compose implements Composer.
func (c *LLMComposer) Compose(ctx context.Context, t model.Test, batchCodes []string) (string, string, error) {
	out, err := c.compose(ctx, t, batchCodes)
	if err != nil {
		slog.Warn("LLM announcement failed, using template", "test_id", t.ID, "error", err)
		return c.fallback.Compose(ctx, t, batchCodes)
	}
	return out.Title, out.Message, nil
}

func (c *LLMComposer) compose(ctx context.Context, t model.Test, batchCodes []string) (llmAnnouncement, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(t, batchCodes)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.5,
	})
	if err != nil {
		return llmAnnouncement{}, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llmAnnouncement{}, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var out llmAnnouncement
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return llmAnnouncement{}, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Message = strings.TrimSpace(out.Message)
	if out.Title == "" || out.Message == "" {
		return llmAnnouncement{}, fmt.Errorf("LLM response missing title or message")
	}
	return out, nil
}

func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You write short announcements for students of a college.\n")
	sb.WriteString("Never reveal question content or answers.\n")
	sb.WriteString("Keep the message under 60 words.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"title": "<short title>", "message": "<announcement text>"}`)
	sb.WriteString("\n")
	return sb.String()
}

// buildUserPrompt describes the test without its questions.
func buildUserPrompt(t model.Test, batchCodes []string) string {
	var sb strings.Builder
	sb.WriteString("TEST TITLE: " + t.Title + "\n")
	sb.WriteString("TEST TYPE: " + string(t.Type) + "\n")
	sb.WriteString(fmt.Sprintf("QUESTIONS: %d\n", len(t.Questions)))
	if len(batchCodes) > 0 {
		sb.WriteString("BATCHES: " + strings.Join(batchCodes, ", ") + "\n")
	}
	return sb.String()
}
