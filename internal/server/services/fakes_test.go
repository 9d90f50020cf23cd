package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/posts"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

func newTestHasher(t *testing.T) *auth.BcryptHasher {
	t.Helper()
	h, err := auth.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	return h
}

// memStore backs both fake repositories. Writes bump a fake clock so the
// newest-first ordering is deterministic.
type memStore struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	posts  map[int64]*models.Post
	nextID int64
	clock  time.Time
	fail   map[string]error
	writes int
}

func newMemStore() *memStore {
	return &memStore{
		users: map[int64]*models.User{},
		posts: map[int64]*models.Post{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		fail:  map[string]error{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) failure(op string) error {
	return m.fail[op]
}

type fakeRepoManager struct {
	store *memStore
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{store: newMemStore()}
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository           { return &fakeUsersRepo{f.store} }
func (f *fakeRepoManager) Posts(dbx.DBTX) posts.Repository           { return &fakePostsRepo{f.store} }

type fakeUsersRepo struct{ m *memStore }

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.m.users {
		if existing.Email == u.Email {
			return nil, common.ErrorConflict
		}
	}
	r.m.nextID++
	r.m.writes++
	cp := *u
	cp.ID = r.m.nextID
	cp.CreatedAt = r.m.tick()
	cp.UpdatedAt = cp.CreatedAt
	r.m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsersRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("users.GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("users.GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) GetUserByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.GetUserByID(ctx, id)
}

func (r *fakeUsersRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	all := make([]*models.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return window(all, limit, offset), nil
}

func (r *fakeUsersRepo) Count(context.Context) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.m.users), nil
}

func (r *fakeUsersRepo) Update(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("users.Update"); err != nil {
		return nil, err
	}
	if _, ok := r.m.users[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	r.m.writes++
	cp := *u
	cp.UpdatedAt = r.m.tick()
	r.m.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsersRepo) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return common.ErrorNotFound
	}
	r.m.writes++
	delete(r.m.users, id)
	for pid, p := range r.m.posts {
		if p.AuthorID == id {
			delete(r.m.posts, pid)
		}
	}
	return nil
}

type fakePostsRepo struct{ m *memStore }

func (r *fakePostsRepo) withAuthor(p *models.Post) *models.Post {
	cp := *p
	if u, ok := r.m.users[p.AuthorID]; ok {
		cp.Author = &models.Author{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, IsActive: u.IsActive}
	}
	return &cp
}

func (r *fakePostsRepo) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("posts.Create"); err != nil {
		return nil, err
	}
	r.m.nextID++
	r.m.writes++
	p.ID = r.m.nextID
	p.CreatedAt = r.m.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.m.posts[p.ID] = &cp
	return p, nil
}

func (r *fakePostsRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("posts.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.m.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.withAuthor(p), nil
}

func (r *fakePostsRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Post, error) {
	return r.GetByID(ctx, id)
}

func (r *fakePostsRepo) filtered(keep func(*models.Post) bool) []*models.Post {
	out := make([]*models.Post, 0)
	for _, p := range r.m.posts {
		if keep(p) {
			out = append(out, r.withAuthor(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *fakePostsRepo) ListPublished(_ context.Context, limit, offset int) ([]*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("posts.ListPublished"); err != nil {
		return nil, err
	}
	return window(r.filtered(func(p *models.Post) bool { return p.IsPublished }), limit, offset), nil
}

func (r *fakePostsRepo) CountPublished(context.Context) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.filtered(func(p *models.Post) bool { return p.IsPublished })), nil
}

func (r *fakePostsRepo) ListByAuthor(_ context.Context, authorID int64, limit, offset int) ([]*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return window(r.filtered(func(p *models.Post) bool { return p.AuthorID == authorID }), limit, offset), nil
}

func (r *fakePostsRepo) CountByAuthor(_ context.Context, authorID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.filtered(func(p *models.Post) bool { return p.AuthorID == authorID })), nil
}

func (r *fakePostsRepo) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.posts[p.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	r.m.writes++
	stored.Title, stored.Content, stored.IsPublished = p.Title, p.Content, p.IsPublished
	stored.UpdatedAt = r.m.tick()
	p.UpdatedAt = stored.UpdatedAt
	return p, nil
}

func (r *fakePostsRepo) SetCoverKey(_ context.Context, id int64, key string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("posts.SetCoverKey"); err != nil {
		return err
	}
	p, ok := r.m.posts[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.m.writes++
	p.CoverKey = &key
	return nil
}

func (r *fakePostsRepo) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.posts[id]; !ok {
		return common.ErrorNotFound
	}
	r.m.writes++
	delete(r.m.posts, id)
	return nil
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

type fakePresigner struct {
	putKeys []string
	getKeys []string
	err     error
}

func (f *fakePresigner) PresignPut(_ context.Context, key string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	f.putKeys = append(f.putKeys, key)
	return "https://s3.test/put/" + key, time.Unix(900, 0), nil
}

func (f *fakePresigner) PresignGet(_ context.Context, key string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	f.getKeys = append(f.getKeys, key)
	return "https://s3.test/get/" + key, time.Unix(900, 0), nil
}
