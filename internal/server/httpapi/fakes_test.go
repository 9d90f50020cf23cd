package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/metrics"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const goodToken = "good-token"

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice   = &models.User{ID: 1, Email: "alice@example.com", FirstName: "Alice", LastName: "Smith", IsActive: true, PasswordHash: "$2a$hash", CreatedAt: testNow, UpdatedAt: testNow}
	errBoom = errors.New("boom: connection reset by peer")
)

type fakeAuth struct {
	login    func(email, password string) (*services.AuthResponse, error)
	register func(in models.NewUser) (*services.AuthResponse, error)
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*services.AuthResponse, error) {
	if f.login != nil {
		return f.login(email, password)
	}
	return &services.AuthResponse{User: alice.Public(), AccessToken: goodToken}, nil
}

func (f *fakeAuth) Register(_ context.Context, in models.NewUser) (*services.AuthResponse, error) {
	if f.register != nil {
		return f.register(in)
	}
	u := models.User{ID: 2, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, IsActive: true}
	return &services.AuthResponse{User: u.Public(), AccessToken: goodToken}, nil
}

func (f *fakeAuth) ResolveCaller(_ context.Context, token string) (*models.User, error) {
	switch token {
	case goodToken:
		return alice, nil
	case "broken-store":
		return nil, errBoom
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}
}

type fakeUsers struct {
	findAll func(page models.Page) (*models.PageResult[models.PublicUser], error)
	findOne func(id int64) (*models.UserWithPosts, error)
	update  func(caller *models.User, id int64, in models.UpdateUser) (*models.User, error)
	remove  func(caller *models.User, id int64) error
}

func (f *fakeUsers) FindAll(_ context.Context, page models.Page) (*models.PageResult[models.PublicUser], error) {
	return f.findAll(page)
}

func (f *fakeUsers) FindOne(_ context.Context, id int64) (*models.UserWithPosts, error) {
	return f.findOne(id)
}

func (f *fakeUsers) Update(_ context.Context, caller *models.User, id int64, in models.UpdateUser) (*models.User, error) {
	return f.update(caller, id, in)
}

func (f *fakeUsers) Remove(_ context.Context, caller *models.User, id int64) error {
	return f.remove(caller, id)
}

type fakePosts struct {
	create       func(caller *models.User, in models.NewPost) (*models.Post, error)
	findAll      func(page models.Page) (*models.PageResult[*models.Post], error)
	findByAuthor func(authorID int64, page models.Page) (*models.PageResult[*models.Post], error)
	findOne      func(id int64) (*models.Post, error)
	update       func(caller *models.User, id int64, in models.UpdatePost) (*models.Post, error)
	remove       func(caller *models.User, id int64) error
	upload       func(caller *models.User, id int64) (*models.PresignedURL, error)
	download     func(id int64) (*models.PresignedURL, error)
}

func (f *fakePosts) Create(_ context.Context, caller *models.User, in models.NewPost) (*models.Post, error) {
	return f.create(caller, in)
}

func (f *fakePosts) FindAll(_ context.Context, page models.Page) (*models.PageResult[*models.Post], error) {
	return f.findAll(page)
}

func (f *fakePosts) FindByAuthor(_ context.Context, authorID int64, page models.Page) (*models.PageResult[*models.Post], error) {
	return f.findByAuthor(authorID, page)
}

func (f *fakePosts) FindOne(_ context.Context, id int64) (*models.Post, error) {
	return f.findOne(id)
}

func (f *fakePosts) Update(_ context.Context, caller *models.User, id int64, in models.UpdatePost) (*models.Post, error) {
	return f.update(caller, id, in)
}

func (f *fakePosts) Remove(_ context.Context, caller *models.User, id int64) error {
	return f.remove(caller, id)
}

func (f *fakePosts) PresignCoverUpload(_ context.Context, caller *models.User, id int64) (*models.PresignedURL, error) {
	return f.upload(caller, id)
}

func (f *fakePosts) PresignCoverDownload(_ context.Context, id int64) (*models.PresignedURL, error) {
	return f.download(id)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type harness struct {
	srv     *Server
	auth    *fakeAuth
	users   *fakeUsers
	posts   *fakePosts
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()

	o := Options{Prefix: "api", CORS: true, RateLimit: rate.Limit(100), RateBurst: 100}
	for _, fn := range opts {
		fn(&o)
	}

	h := &harness{
		auth:    &fakeAuth{},
		users:   &fakeUsers{},
		posts:   &fakePosts{},
		metrics: metrics.New(),
	}
	h.srv = New(o, Deps{
		Auth:    h.auth,
		Users:   h.users,
		Posts:   h.posts,
		DB:      fakePinger{},
		Metrics: h.metrics,
		Logger:  logging.Nop(),
	})
	return h
}

// do sends a request through the full middleware chain.
func (h *harness) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := newRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(h, req)
}

func newRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(h *harness, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func samplePost(id, authorID int64) *models.Post {
	return &models.Post{
		ID: id, Title: "Hello world", Content: "Some long enough content",
		IsPublished: true, AuthorID: authorID, CreatedAt: testNow, UpdatedAt: testNow,
	}
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equalf(t, want, rec.Code, "body: %s", rec.Body.String())
}
