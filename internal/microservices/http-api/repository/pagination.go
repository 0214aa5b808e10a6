package repository

import "gorm.io/gorm"

// PageRequest asks for the Number-th page (1-based) of Size items.
// Size <= 0 means a single unbounded page.
type PageRequest struct {
	Number int
	Size   int
}

// Page is one window of an ordered listing.
type Page[T any] struct {
	Items       []T
	Number      int
	Size        int
	Total       int64
	NumPages    int
	IsPaginated bool
	HasNext     bool
	HasPrevious bool
}

// NumPages is never below 1, an empty listing still has an (empty) first page.
func (p PageRequest) NumPages(total int64) int {
	if p.Size <= 0 || total == 0 {
		return 1
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// Window resolves the request against total. Page numbers below 1 become 1,
// numbers past the end clamp to the last page.
func (p PageRequest) Window(total int64) (number, offset, limit int) {
	numPages := p.NumPages(total)
	number = p.Number
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	if p.Size <= 0 {
		return number, 0, 0
	}
	return number, (number - 1) * p.Size, p.Size
}

// NewPage assembles the page metadata for items fetched at number.
func NewPage[T any](items []T, req PageRequest, number int, total int64) Page[T] {
	numPages := req.NumPages(total)
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Number:      number,
		Size:        req.Size,
		Total:       total,
		NumPages:    numPages,
		IsPaginated: req.Size > 0 && total > int64(req.Size),
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}

// findPage counts with countQ, then fetches the resolved window with findQ.
// The two queries are separate so joins and ordering never leak into COUNT.
func findPage[T any](countQ, findQ *gorm.DB, req PageRequest) (Page[T], error) {
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return Page[T]{}, err
	}

	number, offset, limit := req.Window(total)
	if limit > 0 {
		findQ = findQ.Limit(limit).Offset(offset)
	}

	var items []T
	if err := findQ.Find(&items).Error; err != nil {
		return Page[T]{}, err
	}
	return NewPage(items, req, number, total), nil
}
