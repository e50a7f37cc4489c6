package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"studytube/shared/config"
)

// GeminiEmbedder computes query embeddings with the Gemini embedding
// API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

func NewGeminiEmbedder(cfg *config.Config) (*GeminiEmbedder, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.AI.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:     client,
		model:      cfg.AI.EmbeddingModel,
		dimensions: int32(cfg.AI.EmbeddingDimensions),
	}, nil
}

// Embed returns the embedding vector for text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(g.dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return result.Embeddings[0].Values, nil
}
