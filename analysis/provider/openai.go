package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/theimaginaryfoundation/mood-journal/analysis"
)

const (
	DefaultModel               = "gpt-4o-mini"
	DefaultEmbeddingModel      = openai.EmbeddingModelTextEmbedding3Small
	DefaultEmbeddingDimensions = 256
)

// NewClient builds an OpenAI client with the SDK's own retry loop disabled, so every
// transport failure reaches the caller after a single attempt.
func NewClient(apiKey string, opts ...option.RequestOption) *openai.Client {
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := openai.NewClient(all...)
	return &client
}

// OpenAICompleter sends prompts to the Responses API.
type OpenAICompleter struct {
	Client *openai.Client
	Model  string

	// Retry, when set, retries rate-limit and server errors. Leave nil for extraction.
	Retry *RetryPolicy
}

var _ analysis.Completer = (*OpenAICompleter)(nil)

func (c *OpenAICompleter) Complete(ctx context.Context, req analysis.CompletionRequest) (string, error) {
	if c.Client == nil {
		return "", errors.New("openAICompleter: client is nil")
	}
	if c.Model == "" {
		return "", errors.New("openAICompleter: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:       c.Model,
		Temperature: openai.Float(req.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	call := func(ctx context.Context) (*responses.Response, error) {
		return c.Client.Responses.New(ctx, params)
	}
	var (
		resp *responses.Response
		err  error
	)
	if c.Retry != nil {
		resp, err = CallWithRetry(ctx, *c.Retry, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}

// OpenAIEmbedder encodes texts with the Embeddings API.
type OpenAIEmbedder struct {
	Client     *openai.Client
	Model      string
	Dimensions int
	Logger     *slog.Logger
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Client == nil {
		return nil, errors.New("openAIEmbedder: client is nil")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := e.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	params := openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.Dimensions))
	}

	start := time.Now()
	resp, err := e.Client.Embeddings.New(ctx, params)
	if err != nil {
		logger.Error("openai_embed_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	data := append([]openai.Embedding(nil), resp.Data...)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}

	logger.Debug("openai_embed_completed",
		slog.Int("text_count", len(texts)),
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// RetryPolicy lists the waits before each retry; the number of attempts is len(waits)+1.
type RetryPolicy struct {
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration
}

// DefaultRetryPolicy waits long enough for a per-minute rate limit window to reset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second},
		ServerErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second},
	}
}

// CallWithRetry retries call on rate-limit and server errors according to policy.
// Other errors, and cancellation of ctx while waiting, return immediately.
func CallWithRetry[T any](ctx context.Context, policy RetryPolicy, call func(context.Context) (T, error)) (T, error) {
	rateLimitAttempts, serverAttempts := 0, 0
	for {
		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err) && rateLimitAttempts < len(policy.RateLimitWaits):
			wait = policy.RateLimitWaits[rateLimitAttempts]
			rateLimitAttempts++
		case isServerError(err) && serverAttempts < len(policy.ServerErrorWaits):
			wait = policy.ServerErrorWaits[serverAttempts]
			serverAttempts++
		default:
			var zero T
			return zero, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
