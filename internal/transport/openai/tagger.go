package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/metrics"
)

const (
	kindText  = "text"
	kindImage = "image"
)

// Tagger is a tag extraction provider using the OpenAI-compatible chat completions API.
// Text goes to the text model, inline images to the vision model.
type Tagger struct {
	client      *openai.Client
	textModel   string
	visionModel string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// Config holds the extraction provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Extraction domain.ExtractionConfig
	Logger     *zap.Logger
}

// NewTagger creates an OpenAI-compatible tag extraction provider.
func NewTagger(cfg *Config) *Tagger {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tagger{
		client:      openai.NewClientWithConfig(clientCfg),
		textModel:   cfg.Extraction.TextModel,
		visionModel: cfg.Extraction.VisionModel,
		maxTokens:   cfg.Extraction.MaxTokens,
		temperature: cfg.Extraction.Temperature,
		logger:      logger,
	}
}

// TagText implements domain.TextTagger.
func (t *Tagger) TagText(ctx context.Context, text string) (domain.TextTagResult, error) {
	req := t.request(t.textModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: textSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: text},
	})

	content, usage, err := t.complete(ctx, kindText, req)
	if err != nil {
		return domain.TextTagResult{}, err
	}

	bundle, err := decodeBundle(content)
	if err != nil {
		metrics.ExtractionErrorsTotal.WithLabelValues(kindText, t.textModel, "malformed").Inc()
		return domain.TextTagResult{}, err
	}

	return domain.TextTagResult{
		Bundle:       bundle,
		PromptTokens: usage.PromptTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil
}

// TagImage implements domain.ImageTagger. Only inline image bytes are sent to the provider.
func (t *Tagger) TagImage(ctx context.Context, img domain.ImageRef) (domain.ImageTagResult, error) {
	if !img.HasData() {
		return domain.ImageTagResult{}, fmt.Errorf("image %q has no inline data: %w", img.Label(), domain.ErrExtractionFailed)
	}

	req := t.request(t.visionModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: imageSystemPrompt},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: imageUserPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    img.DataURI(),
						Detail: openai.ImageURLDetailLow,
					},
				},
			},
		},
	})

	content, usage, err := t.complete(ctx, kindImage, req)
	if err != nil {
		return domain.ImageTagResult{}, err
	}

	analysis, err := decodeAnalysis(content)
	if err != nil {
		metrics.ExtractionErrorsTotal.WithLabelValues(kindImage, t.visionModel, "malformed").Inc()
		return domain.ImageTagResult{}, err
	}

	return domain.ImageTagResult{
		Analysis:     analysis,
		PromptTokens: usage.PromptTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (t *Tagger) HealthCheck(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (t *Tagger) request(model string, msgs []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   t.maxTokens,
		Temperature: t.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

// complete sends the request and returns the first choice content with transport-level metrics.
func (t *Tagger) complete(
	ctx context.Context, kind string, req openai.ChatCompletionRequest,
) (string, openai.Usage, error) {
	start := time.Now()

	resp, err := t.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(kind, req.Model, "error").Inc()
		metrics.ExtractionErrorsTotal.WithLabelValues(kind, req.Model, "api_error").Inc()
		return "", openai.Usage{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.ExtractionRequestsTotal.WithLabelValues(kind, req.Model, "error").Inc()
		metrics.ExtractionErrorsTotal.WithLabelValues(kind, req.Model, "empty_response").Inc()
		return "", openai.Usage{}, fmt.Errorf("empty completion response: %w", domain.ErrMalformedResponse)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(kind, req.Model, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(kind, req.Model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.ExtractionTokensTotal.WithLabelValues(kind, req.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ExtractionTokensTotal.WithLabelValues(kind, req.Model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	t.logger.Debug("extraction completed",
		zap.String("kind", kind),
		zap.String("model", req.Model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, resp.Usage, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrExtractionFailed.
func parseAPIError(err error) error {
	wrap := domain.ErrExtractionFailed

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("extraction API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("extraction API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("extraction API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("extraction request aborted: %w: %w", err, wrap)
	}

	return fmt.Errorf("extraction request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
