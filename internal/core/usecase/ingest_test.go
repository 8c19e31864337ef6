package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docforge/docqa/internal/core/domain"
)

func TestUploadCreatesPendingDocumentAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeObjectStorage()
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "report one.txt", "text/plain", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if doc.ID == "" {
		t.Fatalf("expected generated id")
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}
	if doc.SizeBytes != int64(len("content")) {
		t.Fatalf("expected size from storage, got %d", doc.SizeBytes)
	}
	if !strings.Contains(doc.StoragePath, doc.ID) || !strings.Contains(doc.StoragePath, "report_one.txt") {
		t.Fatalf("unexpected storage path %q", doc.StoragePath)
	}

	if _, ok := repo.docs[doc.ID]; !ok {
		t.Fatalf("document metadata not persisted")
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected one published event for %s, got %v", doc.ID, queue.published)
	}
}

func TestUploadRejectsEmptyFilename(t *testing.T) {
	uc := NewIngestDocumentUseCase(newFakeRepo(), newFakeObjectStorage(), &fakeQueue{})

	_, err := uc.Upload(context.Background(), "   ", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestUploadFailsWhenStorageFails(t *testing.T) {
	storage := newFakeObjectStorage()
	storage.saveErr = errors.New("disk full")
	repo := newFakeRepo()
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	_, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.docs) != 0 {
		t.Fatalf("no metadata should be written when storage fails")
	}
	if len(queue.published) != 0 {
		t.Fatalf("no event should be published when storage fails")
	}
}

func TestUploadFailsWhenPublishFails(t *testing.T) {
	queue := &fakeQueue{publishErr: errors.New("nats down")}
	uc := NewIngestDocumentUseCase(newFakeRepo(), newFakeObjectStorage(), queue)

	_, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error when publish fails")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"simple.txt":        "simple.txt",
		"with space.pdf":    "with_space.pdf",
		"../../../etc/pass": "pass",
		"отчёт.txt":         "_____.txt",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
