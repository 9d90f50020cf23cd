package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
)

// UserService is the credential store: account lookup, creation and the
// self-only account mutations.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
}

// NewUserService constructs a UserService using repositories and a password hasher.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
	}
}

// FindByEmail matches the address exactly; no case folding or trimming.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		return nil, wrapUnexpected(err, "USER_LOOKUP_FAILED", "find user by email")
	}
	return u, nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetUserByID(ctx, id)
	if err != nil {
		return nil, wrapUnexpected(err, "USER_LOOKUP_FAILED", "find user by id")
	}
	return u, nil
}

// Create registers an account. A taken email yields common.ErrorConflict
// whether it is caught by the pre-check or by the unique index.
func (s *UserService) Create(ctx context.Context, in models.NewUser) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: user with this email already exists", common.ErrorConflict)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, wrapUnexpected(err, "USER_CREATE_FAILED", "check email")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, wrapUnexpected(err, "PASSWORD_HASH_FAILED", "hash password")
	}

	u, err := repo.Create(ctx, &models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, wrapUnexpected(err, "USER_CREATE_FAILED", "insert user")
	}
	return u, nil
}

// FindAll returns one page of users, newest first.
func (s *UserService) FindAll(ctx context.Context, page models.Page) (*models.PageResult[models.PublicUser], error) {
	page = page.Normalize()
	res := &models.PageResult[models.PublicUser]{Page: page.Page, Limit: page.Limit}

	err := dbx.WithTx(ctx, s.db, dbx.ReadOnlySnapshot, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		users, err := repo.List(ctx, page.Limit, page.Offset())
		if err != nil {
			return err
		}
		res.Total, err = repo.Count(ctx)
		if err != nil {
			return err
		}

		res.Items = make([]models.PublicUser, 0, len(users))
		for _, u := range users {
			res.Items = append(res.Items, u.Public())
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnexpected(err, "USER_LIST_FAILED", "list users")
	}
	return res, nil
}

// FindOne returns the public view of a user with their latest posts, at most
// common.MaxLimit of them.
func (s *UserService) FindOne(ctx context.Context, id int64) (*models.UserWithPosts, error) {
	var res *models.UserWithPosts

	err := dbx.WithTx(ctx, s.db, dbx.ReadOnlySnapshot, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		posts, err := s.repomanager.Posts(tx).ListByAuthor(ctx, id, common.MaxLimit, 0)
		if err != nil {
			return err
		}
		res = &models.UserWithPosts{PublicUser: u.Public(), Posts: posts}
		return nil
	})
	if err != nil {
		return nil, wrapUnexpected(err, "USER_LOOKUP_FAILED", "find user with posts")
	}
	return res, nil
}

// Update changes the caller's own account. A new password is re-hashed and a
// new email must not belong to another account.
func (s *UserService) Update(ctx context.Context, caller *models.User, id int64, in models.UpdateUser) (*models.User, error) {
	var newHash string
	if in.Password != nil {
		h, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, wrapUnexpected(err, "PASSWORD_HASH_FAILED", "hash password")
		}
		newHash = h
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetUserByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := assertSelf(u.ID, caller, "update"); err != nil {
			return err
		}

		if in.Email != nil && *in.Email != u.Email {
			_, err := repo.GetUserByEmail(ctx, *in.Email)
			switch {
			case err == nil:
				return fmt.Errorf("%w: user with this email already exists", common.ErrorConflict)
			case !errors.Is(err, common.ErrorNotFound):
				return err
			}
			u.Email = *in.Email
		}
		if in.FirstName != nil {
			u.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			u.LastName = *in.LastName
		}
		if newHash != "" {
			u.PasswordHash = newHash
		}

		updated, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return nil, wrapUnexpected(err, "USER_UPDATE_FAILED", "update user")
	}
	return updated, nil
}

// Remove deletes the caller's own account; their posts go with it.
func (s *UserService) Remove(ctx context.Context, caller *models.User, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetUserByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := assertSelf(u.ID, caller, "delete"); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	return wrapUnexpected(err, "USER_DELETE_FAILED", "delete user")
}

// ValidatePassword reports whether plain matches hash. Malformed hashes never match.
func (s *UserService) ValidatePassword(plain, hash string) bool {
	ok, err := s.hasher.Verify(plain, hash)
	return err == nil && ok
}
