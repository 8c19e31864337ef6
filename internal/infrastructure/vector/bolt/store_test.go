package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/docforge/docqa/internal/core/domain"
)

func newTestStore(t *testing.T, dimension int) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "vectors.db"), dimension)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStoreRejectsBadDimension(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "vectors.db"), 0)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUpsertAndQuery(t *testing.T) {
	store := newTestStore(t, 3)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.IndexEntry{
		{ID: "d1_0", DocumentID: "d1", Filename: "a.txt", ChunkIndex: 0, TotalChunks: 2, Text: "alpha", Vector: []float32{1, 0, 0}},
		{ID: "d1_1", DocumentID: "d1", Filename: "a.txt", ChunkIndex: 1, TotalChunks: 2, Text: "beta", Vector: []float32{0, 1, 0}},
		{ID: "d2_0", DocumentID: "d2", Filename: "b.txt", ChunkIndex: 0, TotalChunks: 1, Text: "gamma", Vector: []float32{0.9, 0.1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Query(ctx, []float32{1, 0, 0}, 2, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "alpha" {
		t.Fatalf("expected best match alpha, got %q", got[0].Text)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("expected descending scores, got %v then %v", got[0].Score, got[1].Score)
	}
	if got[0].Score < 0 || got[0].Score > 1 {
		t.Fatalf("score out of range: %v", got[0].Score)
	}
	if got[0].Filename != "a.txt" || got[0].TotalChunks != 2 {
		t.Fatalf("unexpected metadata: %+v", got[0])
	}
}

func TestQueryScopedToDocument(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.IndexEntry{
		{ID: "d1_0", DocumentID: "d1", Text: "one", Vector: []float32{1, 0}},
		{ID: "d2_0", DocumentID: "d2", Text: "two", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Query(ctx, []float32{1, 0}, 10, "d2")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "d2" {
		t.Fatalf("expected only d2 results, got %+v", got)
	}
}

func TestQueryTieBreaksByOrdinalThenDocument(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.IndexEntry{
		{ID: "zz_1", DocumentID: "zz", ChunkIndex: 1, Text: "c", Vector: []float32{1, 0}},
		{ID: "bb_0", DocumentID: "bb", ChunkIndex: 0, Text: "b", Vector: []float32{1, 0}},
		{ID: "aa_0", DocumentID: "aa", ChunkIndex: 0, Text: "a", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Query(ctx, []float32{1, 0}, 3, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	order := []string{got[0].DocumentID, got[1].DocumentID, got[2].DocumentID}
	want := []string{"aa", "bb", "zz"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()

	entry := domain.IndexEntry{ID: "d1_0", DocumentID: "d1", Text: "v1", Vector: []float32{1, 0}}
	if err := store.Upsert(ctx, []domain.IndexEntry{entry}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	entry.Text = "v2"
	if err := store.Upsert(ctx, []domain.IndexEntry{entry}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after re-upsert, got %d", count)
	}

	got, err := store.Query(ctx, []float32{1, 0}, 1, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].Text != "v2" {
		t.Fatalf("expected updated text, got %q", got[0].Text)
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	store := newTestStore(t, 3)

	err := store.Upsert(context.Background(), []domain.IndexEntry{
		{ID: "d1_0", DocumentID: "d1", Vector: []float32{1, 0}},
	})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDeleteByDocument(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.IndexEntry{
		{ID: "d1_0", DocumentID: "d1", Vector: []float32{1, 0}},
		{ID: "d1_1", DocumentID: "d1", Vector: []float32{0, 1}},
		{ID: "d2_0", DocumentID: "d2", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.DeleteByDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after delete, got %d", count)
	}

	got, err := store.Query(ctx, []float32{1, 0}, 10, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "d2" {
		t.Fatalf("expected only d2 to remain, got %+v", got)
	}

	// deleting an absent document is not an error
	if err := store.DeleteByDocument(ctx, "missing"); err != nil {
		t.Fatalf("DeleteByDocument missing: %v", err)
	}
}

func TestEntriesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	store, err := NewStore(path, 2)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = store.Upsert(ctx, []domain.IndexEntry{
		{ID: "d1_0", DocumentID: "d1", Filename: "a.txt", ChunkIndex: 0, TotalChunks: 1, Text: "persisted", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Query(ctx, []float32{1, 0}, 1, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Text != "persisted" || got[0].Filename != "a.txt" {
		t.Fatalf("expected persisted entry after reopen, got %+v", got)
	}
}
