package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/docforge/docqa/internal/core/domain"
)

var errNotFound = errors.New("not found")

type fakeRepo struct {
	docs          map[string]*domain.Document
	createErr     error
	getErr        error
	updateErr     error
	statusHistory []domain.DocumentStatus
	lastError     string
	chunkCounts   map[string]int
	deleted       []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:        make(map[string]*domain.Document),
		chunkCounts: make(map[string]int),
	}
}

func (f *fakeRepo) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errNotFound)
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeRepo) List(_ context.Context, limit, offset int) ([]*domain.Document, error) {
	out := make([]*domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", errNotFound)
	}
	doc.Status = status
	doc.Error = errMessage
	f.statusHistory = append(f.statusHistory, status)
	f.lastError = errMessage
	return nil
}

func (f *fakeRepo) SetChunkCount(_ context.Context, id string, count int) error {
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "set chunk count", errNotFound)
	}
	doc.ChunkCount = count
	f.chunkCounts[id] = count
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", errNotFound)
	}
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeObjectStorage struct {
	files   map[string][]byte
	saveErr error
	removed []string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{files: make(map[string][]byte)}
}

func (f *fakeObjectStorage) Save(_ context.Context, path string, body io.Reader) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}
	f.files[path] = data
	return int64(len(data)), nil
}

func (f *fakeObjectStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, errNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Remove(_ context.Context, path string) error {
	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ *domain.Document) (string, error) {
	return f.text, f.err
}

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Split(_ string) []string {
	return f.chunks
}

type fakeEmbedder struct {
	queryVector []float32
	err         error
	dimension   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([]domain.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	dim := f.dimension
	if dim == 0 {
		dim = 4
	}
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		out[i] = domain.Embedding{Vector: make([]float32, dim)}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) (domain.Embedding, error) {
	if f.err != nil {
		return domain.Embedding{}, f.err
	}
	return domain.Embedding{Vector: f.queryVector}, nil
}

type fakeIndex struct {
	entries    []domain.IndexEntry
	deleted    []string
	results    []domain.RetrievedChunk
	upsertErr  error
	deleteErr  error
	queryErr   error
	lastQueryK int
	lastDocID  string
}

func (f *fakeIndex) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int, documentID string) ([]domain.RetrievedChunk, error) {
	f.lastQueryK = k
	f.lastDocID = documentID
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakeIndex) Count(_ context.Context) (int, error) {
	return len(f.entries), nil
}

type fakeGenerator struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, question string, _ []domain.RetrievedChunk) (string, error) {
	f.asked = append(f.asked, question)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
