package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/callscore/internal/domain/ai"
)

const (
	defaultModel     = "gpt-4.1-mini"
	defaultMaxTokens = 4000
)

// Options tune the chat completion request.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
	Timeout     time.Duration
}

type Client struct {
	*openai.Client
	opts Options
}

func NewClient(apiKey string, opts Options) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), opts: opts}
}

// Complete sends the instruction as the system message and the payload as
// the user message, and returns the raw reply text.
func (c *Client) Complete(ctx context.Context, r ai.Request) (string, error) {
	req := newChatRequest(c.opts, r)

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyReply
	}

	return resp.Choices[0].Message.Content, nil
}

func newChatRequest(opts Options, r ai.Request) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.Instruction},
			{Role: openai.ChatMessageRoleUser, Content: r.Payload},
		},
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens and the default temperature
	if isReasoningModel(opts.Model) {
		req.MaxCompletionTokens = opts.MaxTokens
	} else {
		req.MaxTokens = opts.MaxTokens
		req.Temperature = opts.Temperature
	}
	return req
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}
