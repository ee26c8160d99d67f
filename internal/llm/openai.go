package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"doc-splitter/pkg/config"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerOpenAI = "openai"

// chatCompleter is satisfied by *openai.Client.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI implements Client against any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client    chatCompleter
	model     string
	retry     RetryConfig
	templates *Templates
	logger    *zap.Logger
}

var _ Client = (*OpenAI)(nil)

func NewOpenAI(cfg *config.LLMConfig, templates *Templates, logger *zap.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.OpenAI.Model,
		retry:     RetryConfig{MaxRetries: cfg.MaxRetries, BaseDelay: time.Second, MaxDelay: 20 * time.Second},
		templates: templates,
		logger:    logger,
	}
}

func (o *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	text, err := o.complete(ctx, msgs)
	observe(providerOpenAI, kindChat, start, err)
	return text, err
}

// ChatWithVision inlines the images as base64 data URLs next to the prompt.
func (o *OpenAI) ChatWithVision(ctx context.Context, prompt string, images [][]byte, systemPrompt string) (string, error) {
	start := time.Now()

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	var msgs []openai.ChatCompletionMessage
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})

	text, err := o.complete(ctx, msgs)
	observe(providerOpenAI, kindVision, start, err)
	return text, err
}

func (o *OpenAI) PromptTemplate(name string, vars map[string]any) (string, error) {
	return o.templates.Render(name, vars)
}

func (o *OpenAI) Close() error { return nil }

func (o *OpenAI) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	return RetryWithBackoff(ctx, o.retry, func() (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return ExtractText(responseContent(resp.Choices[0].Message)), nil
	}, IsRetryable)
}

func responseContent(msg openai.ChatCompletionMessage) ResponseContent {
	if len(msg.MultiContent) == 0 {
		return PlainText(msg.Content)
	}
	blocks := make(Blocks, 0, len(msg.MultiContent))
	for _, p := range msg.MultiContent {
		blocks = append(blocks, ContentBlock{Type: string(p.Type), Text: p.Text})
	}
	return blocks
}

func dataURL(image []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))
}

// classifyOpenAIError maps go-openai errors onto the package sentinels.
func classifyOpenAIError(err error) error {
	status := 0
	msg := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case status >= 500:
		return fmt.Errorf("%s: %w", msg, ErrServer)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out: %w", ErrTimeout)
	}
	return fmt.Errorf("openai request failed: %w", err)
}
