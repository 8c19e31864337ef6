package ports

import (
	"context"
	"io"

	"github.com/docforge/docqa/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous indexing of an
// uploaded document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// QuestionAnswerer answers natural-language questions from indexed documents.
// An empty documentID queries the whole index; a non-empty one scopes the
// retrieval to that document.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, topK int, documentID string) (*domain.Answer, error)
	Search(ctx context.Context, question string, topK int, documentID string) ([]domain.RetrievedChunk, error)
}

// DocumentManager is the inbound read/delete model for document records.
type DocumentManager interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
}
