// Package pagination implements the two result-set slicing modes used by
// the API: classic page/page_size offset pagination (with a full count)
// and opaque-cursor pagination for long feeds.
package pagination

import (
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Params are normalized offset-pagination inputs
type Params struct {
	Page     int
	PageSize int
}

// Clamp forces page and page_size into their valid ranges. Out-of-range
// values are corrected, never rejected.
func (p Params) Clamp() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the clamped params
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paged is an offset-paginated result slice with navigation metadata
type Paged[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// Paginate runs a count over the full filtered set, then fetches exactly
// one bounded slice in the query's existing order. The count and the slice
// are separate statements; the total may be stale by the time items are
// read, which is acceptable for a read-only listing.
func Paginate[T any](query *gorm.DB, page, pageSize int) (*Paged[T], error) {
	p := Params{Page: page, PageSize: pageSize}.Clamp()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	result := &Paged[T]{
		Items:    []T{},
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	if total > 0 {
		result.TotalPages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
		if err := query.Offset(p.Offset()).Limit(p.PageSize).Find(&result.Items).Error; err != nil {
			return nil, err
		}
	}

	result.HasNext = p.Page < result.TotalPages
	result.HasPrevious = p.Page > 1
	return result, nil
}
