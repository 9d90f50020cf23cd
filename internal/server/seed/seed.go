// Package seed loads a small set of sample users and posts through the
// regular services, so hashing and validation rules apply as for real input.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, in models.NewUser) (*models.User, error)
}

type PostStore interface {
	Create(ctx context.Context, caller *models.User, in models.NewPost) (*models.Post, error)
}

type samplePost struct {
	title     string
	content   string
	published bool
}

type sampleUser struct {
	user  models.NewUser
	posts []samplePost
}

// Result counts what Run created. Users that already exist are skipped
// together with their posts.
type Result struct {
	Users   int
	Posts   int
	Skipped int
}

func Run(ctx context.Context, users UserStore, posts PostStore, logger logging.Logger) (Result, error) {
	var res Result

	for _, s := range samples() {
		_, err := users.FindByEmail(ctx, s.user.Email)
		switch {
		case err == nil:
			logger.Info(ctx, "seed user exists, skipping", "email", s.user.Email)
			res.Skipped++
			continue
		case !errors.Is(err, common.ErrorNotFound):
			return res, fmt.Errorf("lookup %s: %w", s.user.Email, err)
		}

		u, err := users.Create(ctx, s.user)
		if err != nil {
			return res, fmt.Errorf("create user %s: %w", s.user.Email, err)
		}
		res.Users++

		for _, p := range s.posts {
			published := p.published
			if _, err := posts.Create(ctx, u, models.NewPost{
				Title:       p.title,
				Content:     p.content,
				IsPublished: &published,
			}); err != nil {
				return res, fmt.Errorf("create post %q: %w", p.title, err)
			}
			res.Posts++
		}
	}

	logger.Info(ctx, "seed complete", "users", res.Users, "posts", res.Posts, "skipped", res.Skipped)
	return res, nil
}

func samples() []sampleUser {
	return []sampleUser{
		{
			user: models.NewUser{Email: "alex.johnson@techcorp.com", Password: "SecurePass123!", FirstName: "Alex", LastName: "Johnson"},
			posts: []samplePost{
				{
					title:     "Shipping a Go API to production",
					content:   "Notes from moving a team service to Go: small interfaces at the consumer, explicit error returns and one transaction helper took us further than any framework.",
					published: true,
				},
				{
					title:     "Structured logging with slog",
					content:   "Once every log line carried a request id and a route template, debugging latency spikes went from guesswork to a single query.",
					published: true,
				},
			},
		},
		{
			user: models.NewUser{Email: "sarah.williams@startup.io", Password: "MyPassword456@", FirstName: "Sarah", LastName: "Williams"},
			posts: []samplePost{
				{
					title:     "Plain SQL over an ORM",
					content:   "We kept our queries in repositories over database/sql. Reviews got easier and the query plans stopped surprising us.",
					published: true,
				},
				{
					title:     "JWT lessons learned",
					content:   "Keep access tokens short lived, pin the signing algorithm and never put anything in the claims you would not print in a log.",
					published: false,
				},
			},
		},
		{
			user: models.NewUser{Email: "mike.chen@freelancer.dev", Password: "DevLife789#", FirstName: "Mike", LastName: "Chen"},
			posts: []samplePost{
				{
					title:     "Containers for local development",
					content:   "A compose file with Postgres and MinIO brought onboarding down to one command and removed a whole class of environment bugs.",
					published: true,
				},
				{
					title:     "Running code reviews as a freelancer turned lead",
					content:   "Reviews are where a team shares context. Explain the why in comments on the change, agree on standards and write them down.",
					published: false,
				},
			},
		},
	}
}
