package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/server/media"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
)

// newCoverKey is a seam for tests.
var newCoverKey = media.NewCoverKey

// PostService manages posts and their cover images.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   media.Presigner
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, presigner media.Presigner) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		presigner:   presigner,
	}
}

// Create stores a post authored by caller. Posts are published unless the
// input says otherwise.
func (s *PostService) Create(ctx context.Context, caller *models.User, in models.NewPost) (*models.Post, error) {
	if caller == nil {
		return nil, common.ErrorUnauthorized
	}

	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}

	p, err := s.repomanager.Posts(s.db).Create(ctx, &models.Post{
		Title:       in.Title,
		Content:     in.Content,
		IsPublished: published,
		AuthorID:    caller.ID,
	})
	if err != nil {
		return nil, wrapUnexpected(err, "POST_CREATE_FAILED", "insert post")
	}

	p.Author = &models.Author{
		ID:        caller.ID,
		Email:     caller.Email,
		FirstName: caller.FirstName,
		LastName:  caller.LastName,
		IsActive:  caller.IsActive,
	}
	return p, nil
}

// FindAll pages through published posts, newest first.
func (s *PostService) FindAll(ctx context.Context, page models.Page) (*models.PageResult[*models.Post], error) {
	return s.page(ctx, page, "list published posts", func(ctx context.Context, tx dbx.DBTX, limit, offset int) ([]*models.Post, int, error) {
		repo := s.repomanager.Posts(tx)
		items, err := repo.ListPublished(ctx, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		total, err := repo.CountPublished(ctx)
		return items, total, err
	})
}

// FindByAuthor pages through every post of one author, drafts included.
func (s *PostService) FindByAuthor(ctx context.Context, authorID int64, page models.Page) (*models.PageResult[*models.Post], error) {
	return s.page(ctx, page, "list author posts", func(ctx context.Context, tx dbx.DBTX, limit, offset int) ([]*models.Post, int, error) {
		repo := s.repomanager.Posts(tx)
		items, err := repo.ListByAuthor(ctx, authorID, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		total, err := repo.CountByAuthor(ctx, authorID)
		return items, total, err
	})
}

type pageFunc func(ctx context.Context, tx dbx.DBTX, limit, offset int) ([]*models.Post, int, error)

// page runs the list and the count in one read-only snapshot so they agree.
func (s *PostService) page(ctx context.Context, page models.Page, operation string, fetch pageFunc) (*models.PageResult[*models.Post], error) {
	page = page.Normalize()
	res := &models.PageResult[*models.Post]{Page: page.Page, Limit: page.Limit}

	err := dbx.WithTx(ctx, s.db, dbx.ReadOnlySnapshot, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res.Items, res.Total, err = fetch(ctx, tx, page.Limit, page.Offset())
		return err
	})
	if err != nil {
		return nil, wrapUnexpected(err, "POST_LIST_FAILED", operation)
	}
	return res, nil
}

// FindOne returns a post by id, drafts included.
func (s *PostService) FindOne(ctx context.Context, id int64) (*models.Post, error) {
	p, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, wrapUnexpected(err, "POST_LOOKUP_FAILED", "find post")
	}
	return p, nil
}

// Update applies a partial update for the post's author. The author itself
// cannot change.
func (s *PostService) Update(ctx context.Context, caller *models.User, id int64, in models.UpdatePost) (*models.Post, error) {
	var updated *models.Post
	err := s.withOwnedPost(ctx, caller, id, "update", func(ctx context.Context, tx dbx.DBTX, p *models.Post) error {
		in.Apply(p)
		var err error
		updated, err = s.repomanager.Posts(tx).Update(ctx, p)
		return err
	})
	if err != nil {
		return nil, wrapUnexpected(err, "POST_UPDATE_FAILED", "update post")
	}
	return updated, nil
}

// Remove deletes the caller's post.
func (s *PostService) Remove(ctx context.Context, caller *models.User, id int64) error {
	err := s.withOwnedPost(ctx, caller, id, "delete", func(ctx context.Context, tx dbx.DBTX, p *models.Post) error {
		return s.repomanager.Posts(tx).Delete(ctx, p.ID)
	})
	return wrapUnexpected(err, "POST_DELETE_FAILED", "delete post")
}

// PresignCoverUpload allocates a new cover key for the author's post and
// returns a URL the client PUTs the image to.
func (s *PostService) PresignCoverUpload(ctx context.Context, caller *models.User, id int64) (*models.PresignedURL, error) {
	var res *models.PresignedURL
	err := s.withOwnedPost(ctx, caller, id, "update", func(ctx context.Context, tx dbx.DBTX, p *models.Post) error {
		key := newCoverKey(p.ID)
		url, expiresAt, err := s.presigner.PresignPut(ctx, key)
		if err != nil {
			return err
		}
		if err := s.repomanager.Posts(tx).SetCoverKey(ctx, p.ID, key); err != nil {
			return err
		}
		res = &models.PresignedURL{Key: key, URL: url, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, wrapUnexpected(err, "COVER_PRESIGN_FAILED", "presign cover upload")
	}
	return res, nil
}

// PresignCoverDownload returns a URL for the stored cover. A post without a
// cover is NotFound.
func (s *PostService) PresignCoverDownload(ctx context.Context, id int64) (*models.PresignedURL, error) {
	p, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CoverKey == nil {
		return nil, fmt.Errorf("%w: post %d has no cover", common.ErrorNotFound, id)
	}

	url, expiresAt, err := s.presigner.PresignGet(ctx, *p.CoverKey)
	if err != nil {
		return nil, wrapUnexpected(err, "COVER_PRESIGN_FAILED", "presign cover download")
	}
	return &models.PresignedURL{Key: *p.CoverKey, URL: url, ExpiresAt: expiresAt}, nil
}

// withOwnedPost locks the post, checks that caller authored it and runs fn in
// the same transaction. A failed check rolls back before anything is written.
func (s *PostService) withOwnedPost(ctx context.Context, caller *models.User, id int64, action string,
	fn func(ctx context.Context, tx dbx.DBTX, p *models.Post) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repomanager.Posts(tx).GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := assertOwner(p.AuthorID, caller, action); err != nil {
			return err
		}
		return fn(ctx, tx, p)
	})
}
