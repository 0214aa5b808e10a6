package dto

import "homelibrary/internal/microservices/http-api/repository"

// PageInfo is what a template needs to draw the pager.
type PageInfo struct {
	Number       int   `json:"number"`
	NumPages     int   `json:"num_pages"`
	Count        int64 `json:"count"`
	IsPaginated  bool  `json:"is_paginated"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
	NextPage     *int  `json:"next_page_number,omitempty"`
	PreviousPage *int  `json:"previous_page_number,omitempty"`
}

func PageInfoFrom[T any](p repository.Page[T]) PageInfo {
	info := PageInfo{
		Number:      p.Number,
		NumPages:    p.NumPages,
		Count:       p.Total,
		IsPaginated: p.IsPaginated,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
	if p.HasNext {
		n := p.Number + 1
		info.NextPage = &n
	}
	if p.HasPrevious {
		n := p.Number - 1
		info.PreviousPage = &n
	}
	return info
}
