package domain

import "strconv"

// Embedding is a fixed-dimension vector for one text span. Degraded marks a
// deterministic fallback vector produced while the embedding backend was
// unavailable; it lives in the same similarity space as real vectors.
type Embedding struct {
	Vector   []float32
	Degraded bool
}

// IndexEntry is the persisted unit of the vector index, unique by ID.
// ID follows the "{document_id}_{ordinal}" scheme so re-indexing a document
// replaces its entries instead of duplicating them.
type IndexEntry struct {
	ID          string
	DocumentID  string
	Filename    string
	ChunkIndex  int
	TotalChunks int
	Text        string
	Vector      []float32
}

// ChunkID builds the canonical index entry identifier for a document chunk.
func ChunkID(documentID string, ordinal int) string {
	return documentID + "_" + strconv.Itoa(ordinal)
}

type RetrievedChunk struct {
	DocumentID  string  `json:"document_id"`
	Filename    string  `json:"filename"`
	Text        string  `json:"text"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
	Score       float64 `json:"score"`
}

type Answer struct {
	Text       string           `json:"text"`
	Sources    []string         `json:"sources"`
	Confidence float64          `json:"confidence"`
	Chunks     []RetrievedChunk `json:"chunks"`
}
