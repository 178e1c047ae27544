// Package llmx wraps an OpenAI-compatible endpoint (OpenAI, Ollama, vLLM)
// behind small embedding and generation interfaces, with client-side rate
// limiting. It knows nothing about road safety; callers own the prompts.
package llmx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Embedder turns text into vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds connection settings for the OpenAI-compatible endpoint.
type Config struct {
	BaseURL        string
	Token          string // "none" works for local services without auth
	Model          string
	EmbeddingModel string
	// RequestsPerSec caps outbound calls; zero means no limit.
	RequestsPerSec float64
	Burst          int
}

// Client implements Embedder and Generator against one endpoint.
type Client struct {
	model    llms.Model
	embedder embeddings.Embedder
	limiter  *rate.Limiter
	log      *slog.Logger
}

// New builds a Client from cfg.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("llmx: init client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("llmx: init embedder: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	return &Client{
		model:    llm,
		embedder: emb,
		limiter:  limiter,
		log:      log.With("component", "llmx"),
	}, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		c.log.Error("embed query failed", "err", err)
		return nil, fmt.Errorf("llmx: embed query: %w", err)
	}
	return vec, nil
}

// EmbedDocuments embeds a batch of documents.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vecs, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		c.log.Error("embed documents failed", "count", len(texts), "err", err)
		return nil, fmt.Errorf("llmx: embed %d documents: %w", len(texts), err)
	}
	return vecs, nil
}

// Generate completes a single prompt with deterministic settings.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(0.0))
	if err != nil {
		c.log.Error("generation failed", "err", err)
		return "", fmt.Errorf("llmx: generate: %w", err)
	}
	return out, nil
}
