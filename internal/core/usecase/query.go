package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docforge/docqa/internal/core/domain"
	"github.com/docforge/docqa/internal/core/ports"
)

// NoAnswerText is returned when retrieval finds nothing relevant.
const NoAnswerText = "I don't have enough information to answer this question."

const defaultTopK = 5

type QueryUseCase struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.AnswerGenerator
	topK      int
}

// NewQueryUseCase wires retrieval and generation. topK is the number of
// chunks retrieved when the caller does not specify one; non-positive values
// fall back to defaultTopK.
func NewQueryUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.AnswerGenerator,
	topK int,
) *QueryUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &QueryUseCase{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
	}
}

// Ask retrieves the chunks most similar to the question and generates an
// answer grounded in them. An empty result set is an answerable outcome,
// not an error: the caller gets a fixed no-answer text with zero confidence.
func (uc *QueryUseCase) Ask(ctx context.Context, question string, topK int, documentID string) (*domain.Answer, error) {
	chunks, err := uc.retrieve(ctx, question, topK, documentID)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		return &domain.Answer{
			Text:       NoAnswerText,
			Sources:    []string{},
			Confidence: 0,
			Chunks:     []domain.RetrievedChunk{},
		}, nil
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:       answerText,
		Sources:    sourceDocumentIDs(chunks),
		Confidence: confidence(chunks),
		Chunks:     chunks,
	}, nil
}

// Search exposes retrieval without answer generation.
func (uc *QueryUseCase) Search(ctx context.Context, question string, topK int, documentID string) ([]domain.RetrievedChunk, error) {
	return uc.retrieve(ctx, question, topK, documentID)
}

func (uc *QueryUseCase) retrieve(ctx context.Context, question string, topK int, documentID string) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("question is required"))
	}
	if topK <= 0 {
		topK = uc.topK
	}

	embedding, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := uc.index.Query(ctx, embedding.Vector, topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	return dedupeChunks(chunks), nil
}

// dedupeChunks keeps the first occurrence per (document, ordinal), which is
// the highest ranked one since results arrive sorted.
func dedupeChunks(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	type key struct {
		documentID string
		ordinal    int
	}
	seen := make(map[key]struct{}, len(chunks))
	out := chunks[:0]
	for _, chunk := range chunks {
		k := key{chunk.DocumentID, chunk.ChunkIndex}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, chunk)
	}
	return out
}

// sourceDocumentIDs lists the distinct documents backing the answer, in
// first-seen rank order. Ids rather than filenames: filenames are not unique
// across documents, and callers join sources back to document records.
func sourceDocumentIDs(chunks []domain.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.DocumentID]; ok {
			continue
		}
		seen[chunk.DocumentID] = struct{}{}
		sources = append(sources, chunk.DocumentID)
	}
	return sources
}

// confidence blends the best match with the average over all matches, so a
// single strong hit among weak ones still reads as moderately confident.
func confidence(chunks []domain.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	top := chunks[0].Score
	var sum float64
	for _, chunk := range chunks {
		sum += chunk.Score
	}
	mean := sum / float64(len(chunks))

	score := 0.7*top + 0.3*mean
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
