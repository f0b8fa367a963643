package repository

import (
	"context"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// FaceRepositoryInterface defines operations for face data access
type FaceRepositoryInterface interface {
	Upsert(ctx context.Context, face *domain.Face) error
	Delete(ctx context.Context, username, name string) error
	ListNames(ctx context.Context, username string) ([]string, error)
	GetEmbedding(ctx context.Context, username, name string) ([]float32, error)
	Ping(ctx context.Context) error
}

var _ FaceRepositoryInterface = (*FaceRepository)(nil)
