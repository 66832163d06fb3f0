package internal_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/tasks-api/internal"
)

func TestWrapErrorf(t *testing.T) {
	t.Parallel()

	orig := errors.New("pq: duplicate key value")

	err := internal.WrapErrorf(orig, internal.ErrorCodeConflict, "create category")

	var ierr *internal.Error
	require.ErrorAs(t, err, &ierr)

	assert.Equal(t, internal.ErrorCodeConflict, ierr.Code())
	assert.Equal(t, "create category: pq: duplicate key value", err.Error())
	assert.ErrorIs(t, err, orig)
}

func TestNewErrorf(t *testing.T) {
	t.Parallel()

	err := internal.NewErrorf(internal.ErrorCodeNotFound, "task %q not found", "abc")

	var ierr *internal.Error
	require.ErrorAs(t, err, &ierr)

	assert.Equal(t, internal.ErrorCodeNotFound, ierr.Code())
	assert.Equal(t, `task "abc" not found`, err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
