package usecase

import (
	"context"
	"fmt"

	"github.com/docforge/docqa/internal/core/domain"
	"github.com/docforge/docqa/internal/core/ports"
)

const defaultListLimit = 50

type ManageDocumentsUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	index   ports.VectorIndex
}

func NewManageDocumentsUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	index ports.VectorIndex,
) *ManageDocumentsUseCase {
	return &ManageDocumentsUseCase{
		repo:    repo,
		storage: storage,
		index:   index,
	}
}

func (uc *ManageDocumentsUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *ManageDocumentsUseCase) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.List(ctx, limit, offset)
}

// Delete removes the document everywhere: index entries first so searches
// stop returning its chunks, then the stored file, then the metadata row.
// An unknown id fails before anything is touched.
func (uc *ManageDocumentsUseCase) Delete(ctx context.Context, id string) error {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.index.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete index entries: %w", err)
	}
	if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("remove stored file: %w", err)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	return nil
}
