// Package llm answers venue questions with an OpenAI-compatible chat model through eino.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/greenoffice/leadchat/pkg/knowledge"
)

const (
	answerMaxTokens      = 250
	acknowledgeMaxTokens = 200
)

// ErrEmptyCompletion is returned when the model replies with no text.
var ErrEmptyCompletion = errors.New("model returned no content")

// Config selects and tunes the chat model.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Responder implements knowledge.Responder.
type Responder struct {
	chat        model.BaseChatModel
	facts       []string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// New builds an OpenAI chat model from cfg. facts ground the system prompt.
func New(ctx context.Context, cfg Config, facts []string) (*Responder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	mc := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	if cfg.BaseURL != "" {
		mc.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens > 0 {
		mc.MaxTokens = &cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		mc.Temperature = &cfg.Temperature
	}

	chat, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("llm: create chat model: %w", err)
	}
	return NewWithModel(chat, facts, cfg), nil
}

// NewWithModel wraps an existing chat model.
func NewWithModel(chat model.BaseChatModel, facts []string, cfg Config) *Responder {
	return &Responder{
		chat:        chat,
		facts:       facts,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Answer replies to a free-text venue question.
func (r *Responder) Answer(ctx context.Context, query string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(knowledgePrompt(r.facts)),
		schema.UserMessage(query),
	}
	return r.generate(ctx, msgs, answerMaxTokens)
}

// Acknowledge writes a short reply to an answer given during the questionnaire.
func (r *Responder) Acknowledge(ctx context.Context, req knowledge.EnhanceRequest) (string, error) {
	history := req.History
	if len(history) > knowledge.HistoryWindow {
		history = history[len(history)-knowledge.HistoryWindow:]
	}
	user := fmt.Sprintf("Question context: %s\nUser response: %s\nRecent conversation:\n%s\n\n"+
		"Please provide a helpful response that acknowledges their input and provides relevant information about Green Office Villas.",
		req.QuestionContext, req.Answer, strings.Join(history, "\n"))

	msgs := []*schema.Message{
		schema.SystemMessage(acknowledgePrompt(r.facts)),
		schema.UserMessage(user),
	}
	return r.generate(ctx, msgs, acknowledgeMaxTokens)
}

func (r *Responder) generate(ctx context.Context, msgs []*schema.Message, limit int) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if r.maxTokens > 0 && r.maxTokens < limit {
		limit = r.maxTokens
	}
	opts := []model.Option{model.WithMaxTokens(limit)}
	if r.temperature > 0 {
		opts = append(opts, model.WithTemperature(r.temperature))
	}

	resp, err := r.chat.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func factList(facts []string) string {
	var b strings.Builder
	for _, f := range facts {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return b.String()
}

func knowledgePrompt(facts []string) string {
	return "You are a knowledgeable assistant for Green Office Villas, an eco-friendly retreat venue. " +
		"Answer questions accurately based on these facts:\n\n" + factList(facts) +
		"\nKeep responses concise (under 200 words) and helpful. " +
		"If you don't have specific information, suggest they contact the team for details."
}

func acknowledgePrompt(facts []string) string {
	return "You are a helpful assistant for Green Office Villas, an eco-friendly retreat venue.\n\n" +
		"Key facts:\n" + factList(facts) +
		"\nYour role is to provide helpful, concise responses that guide users through the retreat planning process. " +
		"Keep responses under 150 words and always maintain a professional, friendly tone."
}
