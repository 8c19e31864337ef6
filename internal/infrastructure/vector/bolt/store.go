// Package bolt implements the vector index port on an embedded bbolt file.
// Vectors are kept in an in-memory cache for brute-force cosine search and
// persisted as JSON so the index survives restarts without an external
// service.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/docforge/docqa/internal/core/domain"
)

var bucketEntries = []byte("entries")

type Store struct {
	db        *bbolt.DB
	dimension int

	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	vector      []float32
	text        string
	documentID  string
	filename    string
	chunkIndex  int
	totalChunks int
}

type storedEntry struct {
	Vector      []float32 `json:"v"`
	Text        string    `json:"text"`
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
}

func NewStore(path string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "open vector store",
			fmt.Errorf("dimension must be positive, got %d", dimension))
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "open vector store", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "create entries bucket", err)
	}

	store := &Store{
		db:        db,
		dimension: dimension,
		cache:     make(map[string]cachedEntry),
	}
	if err := store.loadCache(); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "load vector store", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadCache() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			s.cache[string(k)] = cachedEntry{
				vector:      stored.Vector,
				text:        stored.Text,
				documentID:  stored.DocumentID,
				filename:    stored.Filename,
				chunkIndex:  stored.ChunkIndex,
				totalChunks: stored.TotalChunks,
			}
			return nil
		})
	})
}

func (s *Store) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		if len(entry.Vector) != s.dimension {
			return domain.WrapError(domain.ErrConfiguration, "upsert",
				fmt.Errorf("entry %s has dimension %d, index expects %d", entry.ID, len(entry.Vector), s.dimension))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, entry := range entries {
			data, err := json.Marshal(storedEntry{
				Vector:      entry.Vector,
				Text:        entry.Text,
				DocumentID:  entry.DocumentID,
				Filename:    entry.Filename,
				ChunkIndex:  entry.ChunkIndex,
				TotalChunks: entry.TotalChunks,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(entry.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "upsert entries", err)
	}

	for _, entry := range entries {
		s.cache[entry.ID] = cachedEntry{
			vector:      entry.Vector,
			text:        entry.Text,
			documentID:  entry.DocumentID,
			filename:    entry.Filename,
			chunkIndex:  entry.ChunkIndex,
			totalChunks: entry.TotalChunks,
		}
	}
	return nil
}

func (s *Store) Query(_ context.Context, vector []float32, k int, documentID string) ([]domain.RetrievedChunk, error) {
	if len(vector) != s.dimension {
		return nil, domain.WrapError(domain.ErrConfiguration, "query",
			fmt.Errorf("query dimension %d, index expects %d", len(vector), s.dimension))
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]domain.RetrievedChunk, 0, len(s.cache))
	for _, entry := range s.cache {
		if documentID != "" && entry.documentID != documentID {
			continue
		}
		scored = append(scored, domain.RetrievedChunk{
			DocumentID:  entry.documentID,
			Filename:    entry.filename,
			Text:        entry.text,
			ChunkIndex:  entry.chunkIndex,
			TotalChunks: entry.totalChunks,
			Score:       clampScore(cosineSimilarity(vector, entry.vector)),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].ChunkIndex != scored[j].ChunkIndex {
			return scored[i].ChunkIndex < scored[j].ChunkIndex
		}
		return scored[i].DocumentID < scored[j].DocumentID
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteByDocument removes every entry of the document in one write
// transaction, so concurrent queries see either all of its entries or none.
func (s *Store) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, 8)
	for id, entry := range s.cache {
		if entry.documentID == documentID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "delete by document", err)
	}

	for _, id := range ids {
		delete(s.cache, id)
	}
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
