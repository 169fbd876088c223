package driven

import "context"

// EmbeddingService generates vector embeddings from text via a batched,
// rate-limited external call.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - OpenAI-compatible local servers (Ollama, LM Studio)
type EmbeddingService interface {
	// EmbedBatch generates embeddings for the given texts, same length
	// and order. Requests are batched up to a provider limit to bound
	// external call count; transient failures are retried with
	// exponential backoff. Exhaustion maps to domain.ErrEmbeddingFailed
	// for the affected batch only.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	// Fixed per model version; must match the index store metadata.
	Dimensions() int

	// ModelName returns the embedding model tag. A change of tag
	// invalidates all stored vectors and forces a full re-index.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
