// Package ai wraps the generative-model API behind the two narrow operations
// the pipeline needs: text embedding and reference-scaffold inference.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/pkg/errors"
)

// scaffoldPrompt instructs the model to answer with machine-parseable JSON.
// The downstream parser still tolerates prose around the object.
const scaffoldPrompt = `You are a medicinal chemistry assistant. Given a natural-language description of desired compounds, reply with up to three well-known reference compounds whose scaffolds best match the description.

Reply with ONLY a JSON object of the form {"canonical_names": ["name1", "name2"]}. Use lowercase common names. If no reference compound applies, reply {"canonical_names": []}.`

// summaryPrompt rewrites the templated compound summary into fluent prose for
// embedding.  The model must not invent properties.
const summaryPrompt = `You are a chemistry writing assistant. Rewrite the given compound fact sheet as one fluent paragraph of at most 80 words. Keep every stated fact, add nothing, and do not speculate.`

const embedBatchConcurrency = 10

// Client is the concrete embedder and scaffold inferrer backed by an
// OpenAI-compatible endpoint.  It is safe for concurrent use.
type Client struct {
	api         *openai.Client
	embedModel  string
	inferModel  string
	callTimeout time.Duration
	logger      logging.Logger
}

// NewClient validates credentials and builds the API client.  BaseURL allows
// pointing at any OpenAI-compatible service.
func NewClient(cfg config.AIConfig, logger logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeCredentialMissing,
			"AI API key is not configured; set MOLKIT_AI_API_KEY or run 'molkit config set-api-key'")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		api:         openai.NewClientWithConfig(oc),
		embedModel:  cfg.EmbedModel,
		inferModel:  cfg.InferModel,
		callTimeout: timeout,
		logger:      logger.Named("ai"),
	}, nil
}

// Embed returns the L2-normalizable embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "cannot embed empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embedding request")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embedding response carried no data")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedBatch embeds texts concurrently, preserving input order.  One failed
// text fails the whole batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedBatchConcurrency)

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := c.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Infer asks the model for reference compound names matching the query and
// returns the raw completion text for downstream parsing.
func (c *Client) Infer(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.inferModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scaffoldPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInferenceFailed, "scaffold inference request")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrCodeInferenceFailed, "inference response carried no choices")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("scaffold inference complete",
		logging.Int("chars", len(content)),
		logging.String("model", c.inferModel))
	return content, nil
}

// Summarize rewrites a templated fact sheet into prose.  Callers fall back to
// the template when this errors.
func (c *Client) Summarize(ctx context.Context, factSheet string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.inferModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: factSheet},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInferenceFailed, "summary request")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrCodeInferenceFailed, "summary response carried no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
