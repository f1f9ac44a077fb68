// Package ocr turns an identity document image into structured fields
// using a hosted multimodal chat model.
package ocr

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/logger"
)

// Extractor reads identity fields from image bytes.
// Implementations must not retain the image after returning.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*domain.Extraction, error)
}

const (
	defaultModel     = "gpt-4o"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1024
)

// Config holds configuration for the OpenAI extractor
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string        // Optional, OpenAI compatible endpoints and tests
	Timeout    time.Duration // HTTP timeout for the single request
	MaxTokens  int
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIExtractor sends the image and a fixed prompt to a chat completions model
type OpenAIExtractor struct {
	client    openai.Client
	model     string
	maxTokens int
	log       *logger.Logger
}

// NewOpenAIExtractor creates an extractor. SDK retries are disabled so each
// upload results in exactly one upstream request.
func NewOpenAIExtractor(cfg Config, log *logger.Logger) *OpenAIExtractor {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIExtractor{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log.WithComponent("ocr"),
	}
}

// Extract implements Extractor
func (e *OpenAIExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*domain.Extraction, error) {
	start := time.Now()

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxTokens: openai.Int(int64(e.maxTokens)),
	})
	if err != nil {
		mapped := mapUpstreamError(err)
		e.log.Warn().
			Err(err).
			Str("code", mapped.Code).
			Dur("duration", time.Since(start)).
			Msg("ocr request failed")
		return nil, mapped
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	extraction, err := ParseReply(text)
	if err != nil {
		e.log.Warn().Err(err).Int("reply_length", len(text)).Msg("ocr reply rejected")
		return nil, err
	}

	e.log.Info().
		Str("model", e.model).
		Dur("duration", time.Since(start)).
		Int64("total_tokens", resp.Usage.TotalTokens).
		Msg("ocr completed")

	return extraction, nil
}

// mapUpstreamError converts SDK and transport errors into 503 AppErrors
func mapUpstreamError(err error) *errors.AppError {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return errors.Unavailable("OCR_AUTH_FAILED", "ocr.auth_failed").WithCause(err)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return errors.Unavailable("OCR_RATE_LIMITED", "ocr.rate_limited").WithCause(err)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return errors.Unavailable("OCR_UNAVAILABLE", "ocr.unavailable").WithCause(err)
		default:
			return errors.Unavailable("OCR_REQUEST_FAILED", "ocr.request_failed").WithCause(err)
		}
	}
	return errors.Unavailable("OCR_UNAVAILABLE", "ocr.unavailable").WithCause(err)
}

var _ Extractor = (*OpenAIExtractor)(nil)
