package models

import "github.com/dmitrijs2005/gophblog/internal/common"

// Page selects an offset window of a list ordered by creation time, newest first.
type Page struct {
	Page  int
	Limit int
}

// DefaultPage is page 1 of 10.
func DefaultPage() Page {
	return Page{Page: common.DefaultPage, Limit: common.DefaultLimit}
}

// Normalize fills zero values with the defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = common.DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = common.DefaultLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageResult is one window of a list plus the size of the whole list.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
