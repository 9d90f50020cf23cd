package models

import "time"

// User is the stored identity record. PasswordHash never leaves the server:
// responses are built from PublicUser.
type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PasswordHash string    `db:"password" json:"-"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PublicUser is the outward view of a User. It has no password field.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Author is the user summary embedded in post responses.
type Author struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsActive  bool   `json:"isActive"`
}

// NewUser carries registration input. Password is plaintext here and is
// hashed before it reaches the store.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUser is a partial update; nil fields are left unchanged.
type UpdateUser struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// UserWithPosts is the single-user view, including the user's posts.
type UserWithPosts struct {
	PublicUser
	Posts []*Post `json:"posts"`
}
