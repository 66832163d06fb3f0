package internal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/tasks-api/internal"
)

func TestSearchParams_WithDefaults(t *testing.T) {
	t.Parallel()

	got := internal.SearchParams{}.WithDefaults()

	assert.Equal(t, int64(1), got.Page)
	assert.Equal(t, int64(10), got.Limit)
	assert.Equal(t, internal.SortByCreatedAt, got.SortBy)
	assert.Equal(t, internal.SortDescending, got.SortOrder)

	got = internal.SearchParams{
		Page:      3,
		Limit:     25,
		SortBy:    internal.SortByDueDate,
		SortOrder: internal.SortAscending,
	}.WithDefaults()

	assert.Equal(t, int64(3), got.Page)
	assert.Equal(t, int64(25), got.Limit)
	assert.Equal(t, internal.SortByDueDate, got.SortBy)
	assert.Equal(t, internal.SortAscending, got.SortOrder)
}

func TestSearchParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  internal.SearchParams
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			params: internal.SearchParams{}.WithDefaults(),
		},
		{
			name: "unknown sort field",
			params: internal.SearchParams{
				SortBy:    internal.SortField("ownerId"),
				SortOrder: internal.SortAscending,
				Page:      1,
				Limit:     10,
			},
			wantErr: true,
		},
		{
			name: "unknown sort order",
			params: internal.SearchParams{
				SortBy:    internal.SortByTitle,
				SortOrder: internal.SortOrder("sideways"),
				Page:      1,
				Limit:     10,
			},
			wantErr: true,
		},
		{
			name: "limit above maximum",
			params: internal.SearchParams{
				SortBy:    internal.SortByTitle,
				SortOrder: internal.SortAscending,
				Page:      1,
				Limit:     101,
			},
			wantErr: true,
		},
		{
			name: "invalid priority filter",
			params: func() internal.SearchParams {
				p := internal.Priority("urgent")

				params := internal.SearchParams{Priority: &p}.WithDefaults()

				return params
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if tt.wantErr {
				require.Error(t, err)

				var ierr *internal.Error
				require.ErrorAs(t, err, &ierr)
				assert.Equal(t, internal.ErrorCodeInvalidArgument, ierr.Code())

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestSearchParams_Offset(t *testing.T) {
	t.Parallel()

	params := internal.SearchParams{Page: 1, Limit: 10}
	assert.Equal(t, int64(0), params.Offset())

	params = internal.SearchParams{Page: 4, Limit: 25}
	assert.Equal(t, int64(75), params.Offset())
}

func TestNewPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		limit     int64
		total     int64
		wantPages int64
	}{
		{name: "exact pages", limit: 10, total: 30, wantPages: 3},
		{name: "partial last page", limit: 10, total: 25, wantPages: 3},
		{name: "single page", limit: 10, total: 3, wantPages: 1},
		{name: "no results", limit: 10, total: 0, wantPages: 0},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := internal.NewPagination(1, tt.limit, tt.total)

			assert.Equal(t, tt.wantPages, got.Pages)
			assert.Equal(t, tt.total, got.Total)
		})
	}
}
