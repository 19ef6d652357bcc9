// Package embedding generates vector embeddings for component descriptions,
// used to rank few-shot retrieval candidates semantically.
package embedding

import (
	"context"
	"fmt"
	"math"

	"voltcat/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// Config holds embedding engine configuration.
type Config struct {
	// Provider: "none" or "genai"
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"` // Default: "gemini-embedding-001"
}

// NewEngine creates an embedding engine based on configuration. Provider
// "none" returns a nil engine and no error: retrieval then stays on the
// lexical path.
func NewEngine(cfg Config) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	switch cfg.Provider {
	case "", "none":
		logging.EmbeddingDebug("Embedding disabled, retrieval stays lexical")
		return nil, nil
	case "genai":
		logging.Embedding("Initializing GenAI embedding engine: model=%s", cfg.Model)
		engine, err := NewGenAIEngine(cfg.APIKey, cfg.Model)
		if err != nil {
			logging.Get(logging.CategoryEmbedding).Error("Failed to create embedding engine: %v", err)
			return nil, err
		}
		logging.Embedding("Embedding engine ready: name=%s, dimensions=%d", engine.Name(), engine.Dimensions())
		return engine, nil
	default:
		err := fmt.Errorf("unsupported embedding provider: %s (use 'none' or 'genai')", cfg.Provider)
		logging.Get(logging.CategoryEmbedding).Error("Unsupported embedding provider: %s", cfg.Provider)
		return nil, err
	}
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical, 0 means orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		aMagnitude += float64(a[i] * a[i])
		bMagnitude += float64(b[i] * b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}
