// Package posts declares the persistence contract for blog posts and its
// PostgreSQL implementation.
package posts

import (
	"context"

	"github.com/dmitrijs2005/gophblog/internal/server/models"
)

// Repository defines post persistence. Lookups return common.ErrorNotFound when
// the id does not resolve. Lists are ordered newest first.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, error)
	CountPublished(ctx context.Context) (int, error)
	ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*models.Post, error)
	CountByAuthor(ctx context.Context, authorID int64) (int, error)
	Update(ctx context.Context, post *models.Post) (*models.Post, error)
	SetCoverKey(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) error
}
