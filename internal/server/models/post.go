package models

import "time"

type Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsPublished bool      `json:"isPublished"`
	AuthorID    int64     `json:"authorId"`
	CoverKey    *string   `json:"coverKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Author      *Author   `json:"author,omitempty"`
}

type NewPost struct {
	Title       string
	Content     string
	IsPublished *bool
}

// UpdatePost is a partial update; nil fields are left unchanged. The author
// is fixed at creation.
type UpdatePost struct {
	Title       *string
	Content     *string
	IsPublished *bool
}

// Apply merges the non-nil fields of u into p.
func (u UpdatePost) Apply(p *Post) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.IsPublished != nil {
		p.IsPublished = *u.IsPublished
	}
}

// PresignedURL is a time-limited object storage link for a post cover.
type PresignedURL struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
