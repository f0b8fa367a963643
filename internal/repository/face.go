package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

type FaceRepository struct {
	pool PgxPool
}

func NewFaceRepository(pool PgxPool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// Upsert stores a face, replacing image and embedding when the name is
// already enrolled for the user
func (r *FaceRepository) Upsert(ctx context.Context, face *domain.Face) error {
	query := `
		INSERT INTO faces (id, username, name, image, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (username, name) DO UPDATE
		SET image = EXCLUDED.image, embedding = EXCLUDED.embedding, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	if face.ID == uuid.Nil {
		face.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		face.ID,
		face.Username,
		face.Name,
		face.Image,
		pgvector.NewVector(face.Embedding),
	).Scan(&face.ID, &face.CreatedAt, &face.UpdatedAt)

	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrBadRequest.WithError(fmt.Errorf("face id collision: %w", err))
		case isCheckViolation(err):
			return domain.ErrInvalidName.WithError(err)
		}
		return fmt.Errorf("upsert face: %w", err)
	}

	return nil
}

func (r *FaceRepository) Delete(ctx context.Context, username, name string) error {
	query := `
		DELETE FROM faces
		WHERE username = $1 AND name = $2
	`

	result, err := r.pool.Exec(ctx, query, username, name)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrFaceNotFound
	}

	return nil
}

// ListNames returns the user's enrolled names in alphabetical order
func (r *FaceRepository) ListNames(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT name
		FROM faces
		WHERE username = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("list face names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan face name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face names: %w", err)
	}

	return names, nil
}

func (r *FaceRepository) GetEmbedding(ctx context.Context, username, name string) ([]float32, error) {
	query := `
		SELECT embedding
		FROM faces
		WHERE username = $1 AND name = $2
	`

	var embedding pgvector.Vector
	err := r.pool.QueryRow(ctx, query, username, name).Scan(&embedding)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get face embedding: %w", err)
	}

	return embedding.Slice(), nil
}

// Ping reports whether the database answers
func (r *FaceRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
