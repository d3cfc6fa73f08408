package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/examinaite/examinaite/internal/llm/prompts"
	"github.com/examinaite/examinaite/internal/model"
)

// API is the subset of the OpenAI-compatible client used here.
// *openai.Client satisfies it.
type API interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// RetryPolicy bounds the attempts of one Generate call.
type RetryPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration // fixed delay between attempts
	Timeout     time.Duration // per attempt
}

// DefaultRetryPolicy returns 3 attempts, 2s apart, each limited to 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, RetryDelay: 2 * time.Second, Timeout: 60 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.RetryDelay < 0 {
		p.RetryDelay = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	return p
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api         API
	model       string
	temperature float32
	policy      RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p.normalized() }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Client) { c.temperature = t }
}

// New creates a new LLM client talking to baseURL.
func New(baseURL, apiKey, modelName string, opts ...Option) (*Client, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return NewWithAPI(openai.NewClientWithConfig(config), modelName, opts...)
}

// NewWithAPI creates a client on top of an existing API implementation.
func NewWithAPI(api API, modelName string, opts ...Option) (*Client, error) {
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	c := &Client{
		api:         api,
		model:       modelName,
		temperature: 0.7,
		policy:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Policy returns the retry policy in effect.
func (c *Client) Policy() RetryPolicy { return c.policy }

// Ping checks that the endpoint answers and serves the configured model.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == c.model {
			return nil
		}
	}
	slog.Warn("configured model not listed by endpoint", "model", c.model, "available", len(list.Models))
	return nil
}

// Generate sends the prompt and returns a result matching shape. Timeouts,
// unparsable JSON, shape mismatches and API failures are retried with a fixed
// delay up to the policy's attempt limit; after that an *ExhaustedRetriesError
// wrapping the last failure is returned. A cancelled ctx stops immediately.
// Nothing is returned unless an attempt fully succeeds.
func (c *Client) Generate(ctx context.Context, p prompts.Prompt, shape *Shape) (*model.GenerationResult, error) {
	if shape == nil {
		shape = GenerationShape(0)
	}
	policy := c.policy

	attempt := 0
	op := func() (*model.GenerationResult, error) {
		attempt++
		slog.Debug("generation attempt", "attempt", attempt, "max", policy.MaxAttempts, "model", c.model)
		res, err := c.attempt(ctx, p, shape, policy.Timeout)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return res, err
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("generation attempt failed, retrying", "attempt", attempt, "retry_in", next, "error", err)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.RetryDelay), uint64(policy.MaxAttempts-1)),
		ctx,
	)
	res, err := backoff.RetryNotifyWithData(op, b, notify)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("generation cancelled after %d attempts: %w", attempt, ctx.Err())
	}
	if IsRetryable(err) {
		slog.Error("generation failed", "attempts", attempt, "error", err)
		return nil, &ExhaustedRetriesError{Attempts: attempt, Last: err}
	}
	return nil, err
}

func (c *Client) attempt(ctx context.Context, p prompts.Prompt, shape *Shape, timeout time.Duration) (*model.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.temperature,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: timeout, Err: err}
		}
		return nil, &APIError{Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ParseError{Err: errors.New("LLM returned no choices")}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return shape.Decode(raw)
}
