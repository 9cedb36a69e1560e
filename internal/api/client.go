package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"enginebench/internal/loadgen"

	"github.com/sashabaranov/go-openai"
)

// Client issues chat-completion requests against one OpenAI-style engine
// endpoint. One client is bound to one base URL; a comparison uses one
// client per engine.
type Client struct {
	oai      *openai.Client
	endpoint string
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &Client{
		oai:      openai.NewClientWithConfig(config),
		endpoint: baseURL,
	}
}

// Endpoint returns the base URL this client is bound to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do sends one chat-completion request built from spec and reports what it
// observed. Failures are returned as *loadgen.RequestError so the runner
// can record the sample's error kind.
func (c *Client) Do(ctx context.Context, spec loadgen.RequestSpec, index int) (loadgen.RequestResult, error) {
	request := openai.ChatCompletionRequest{
		Model: spec.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: spec.PromptFor(index),
			},
		},
		MaxTokens:   spec.MaxTokens,
		Temperature: spec.Temperature,
		TopP:        spec.TopP,
	}

	if spec.Stream {
		return c.doStream(ctx, request)
	}
	return c.doOnce(ctx, request)
}

func (c *Client) doOnce(ctx context.Context, request openai.ChatCompletionRequest) (loadgen.RequestResult, error) {
	response, err := c.oai.CreateChatCompletion(ctx, request)
	if err != nil {
		return loadgen.RequestResult{}, classify(err)
	}
	return loadgen.RequestResult{
		CompletionTokens: response.Usage.CompletionTokens,
	}, nil
}

func (c *Client) doStream(ctx context.Context, request openai.ChatCompletionRequest) (loadgen.RequestResult, error) {
	start := time.Now()

	request.Stream = true
	request.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.oai.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return loadgen.RequestResult{}, classify(err)
	}
	defer stream.Close()

	var (
		result loadgen.RequestResult
		usage  *openai.Usage
		chunks int
	)

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, classify(err)
		}

		if len(response.Choices) > 0 && response.Choices[0].Delta.Content != "" {
			if !result.HasTTFT {
				result.TTFT = time.Since(start)
				result.HasTTFT = true
			}
			chunks++
		}
		if response.Usage != nil {
			usage = response.Usage
		}
	}

	// Prefer the server-reported token count; fall back to one token per
	// content chunk when the stream carried no usage record.
	if usage != nil {
		result.CompletionTokens = usage.CompletionTokens
	} else {
		result.CompletionTokens = chunks
	}

	return result, nil
}

// FirstAvailableModel returns the first model the endpoint advertises.
func (c *Client) FirstAvailableModel(ctx context.Context) (string, error) {
	list, err := c.oai.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list models: %w", err)
	}
	if len(list.Models) == 0 {
		return "", errors.New("no models available")
	}
	return list.Models[0].ID, nil
}

// classify maps a go-openai error onto the sample error kinds.
func classify(err error) *loadgen.RequestError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &loadgen.RequestError{Kind: loadgen.ErrHTTP, Status: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &loadgen.RequestError{Kind: loadgen.ErrHTTP, Status: reqErr.HTTPStatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &loadgen.RequestError{Kind: loadgen.ErrTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &loadgen.RequestError{Kind: loadgen.ErrCanceled, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &loadgen.RequestError{Kind: loadgen.ErrTimeout, Err: err}
		}
		return &loadgen.RequestError{Kind: loadgen.ErrConnection, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &loadgen.RequestError{Kind: loadgen.ErrMalformed, Err: err}
	}

	return &loadgen.RequestError{Kind: loadgen.ErrConnection, Err: err}
}
