package pagination

import (
	"math"

	"events_api/internal/apperr"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Params is bound from the page and size query parameters.
type Params struct {
	Page int `form:"page,default=1" binding:"min=1"`
	Size int `form:"size,default=10" binding:"min=1,max=100"`
}

// Offset is the number of records before the page. It saturates at
// math.MaxInt instead of overflowing for absurd page numbers.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// Pages returns ceil(total/size).
func Pages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// NewPage assembles page metadata. A page past the last one is only an
// error when the collection is non-empty; an empty collection yields an
// empty page for any requested page number.
func NewPage[T any](items []T, total int, p Params) (*Page[T], error) {
	pages := Pages(total, p.Size)
	if total > 0 && p.Page > pages {
		return nil, apperr.ErrPageNotFound
	}
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items: items,
		Total: total,
		Page:  p.Page,
		Size:  p.Size,
		Pages: pages,
	}, nil
}
