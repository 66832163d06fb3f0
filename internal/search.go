package internal

import (
	"math"

	"github.com/google/uuid"
)

// SortField enumerates the task columns a listing may be ordered by.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByTitle     SortField = "title"
	SortByPriority  SortField = "priority"
	SortByDueDate   SortField = "dueDate"
	SortByProgress  SortField = "progress"
)

// Validate ...
func (s SortField) Validate() error {
	switch s {
	case SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByPriority, SortByDueDate, SortByProgress:
		return nil
	}

	return NewErrorf(ErrorCodeInvalidArgument, "unknown sort field: %q", s)
}

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Validate ...
func (s SortOrder) Validate() error {
	switch s {
	case SortAscending, SortDescending:
		return nil
	}

	return NewErrorf(ErrorCodeInvalidArgument, "unknown sort order: %q", s)
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// SearchParams defines the filtering, sorting and paging of a task listing.
// All filters are optional and combined conjunctively.
type SearchParams struct {
	Completed  *bool
	Priority   *Priority
	CategoryID *uuid.UUID
	AssignedTo *uuid.UUID
	Search     string
	Page       int64
	Limit      int64
	SortBy     SortField
	SortOrder  SortOrder
}

// WithDefaults returns a copy of the params with unset paging and sorting
// values replaced by their defaults.
func (p SearchParams) WithDefaults() SearchParams {
	if p.Page < 1 {
		p.Page = 1
	}

	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}

	if p.SortBy == "" {
		p.SortBy = SortByCreatedAt
	}

	if p.SortOrder == "" {
		p.SortOrder = SortDescending
	}

	return p
}

// Validate ...
func (p SearchParams) Validate() error {
	if err := p.SortBy.Validate(); err != nil {
		return err
	}

	if err := p.SortOrder.Validate(); err != nil {
		return err
	}

	if p.Priority != nil {
		if err := p.Priority.Validate(); err != nil {
			return err
		}
	}

	if p.Limit > maxPageLimit {
		return NewErrorf(ErrorCodeInvalidArgument, "limit must be at most %d", maxPageLimit)
	}

	return nil
}

// Offset is the number of records preceding the requested page.
func (p SearchParams) Offset() int64 {
	return (p.Page - 1) * p.Limit
}

// SearchResults is a page of tasks together with the total number of matches.
type SearchResults struct {
	Tasks []Task
	Total int64
}

// Pagination describes the page metadata returned alongside a listing.
type Pagination struct {
	Page  int64
	Limit int64
	Total int64
	Pages int64
}

// NewPagination computes the page count for the received totals.
func NewPagination(page, limit, total int64) Pagination {
	var pages int64
	if limit > 0 {
		pages = int64(math.Ceil(float64(total) / float64(limit)))
	}

	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}
