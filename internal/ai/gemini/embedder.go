package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
)

const defaultEmbeddingModel = "text-embedding-004"

type embedContenter interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder computes text embeddings with the Gemini embedding models.
type Embedder struct {
	models embedContenter
	model  string
	logger *zap.Logger
}

// NewEmbedder creates an Embedder on top of an existing genai client.
func NewEmbedder(client *genai.Client, model string, log *zap.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	return &Embedder{
		models: client.Models,
		model:  model,
		logger: logger.WithCommonFields(log, Provider, model),
	}, nil
}

// Embed returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if e == nil || e.models == nil {
		return nil, fmt.Errorf("gemini embedder is not initialized: %w", outreach.ErrCapabilityUnavailable)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errors.New("cannot embed empty text")
		}
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", got, len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("gemini api returned an empty embedding at index %d", i)
		}
		vectors[i] = embedding.Values
	}

	if e.logger != nil {
		e.logger.Debug("gemini embeddings computed", zap.Int("count", len(vectors)), zap.Int("dimensions", len(vectors[0])))
	}
	return vectors, nil
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}
