package ports

import (
	"context"
	"io"

	"github.com/docforge/docqa/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, chunkCount int) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents. Save reports the number of bytes
// written.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into retrieval units. The chunk sequence is
// deterministic for identical input.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text. Implementations degrade
// to deterministic fallback vectors when the backend is unavailable and mark
// those results so callers can observe the quality loss.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]domain.Embedding, error)
	EmbedQuery(ctx context.Context, text string) (domain.Embedding, error)
}

// VectorIndex persists chunk vectors and serves similarity queries.
// Upsert is idempotent by entry ID. Query reports similarity in [0,1],
// descending, ties broken by lower chunk ordinal then document id; a
// non-empty documentID restricts results to that document.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []domain.IndexEntry) error
	Query(ctx context.Context, vector []float32, k int, documentID string) ([]domain.RetrievedChunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	Count(ctx context.Context) (int, error)
}

// AnswerGenerator creates the final user-facing answer from ranked context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
}
