package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeTableEmpty, "table has no rows")

	assert.Equal(t, ErrCodeTableEmpty, err.Code)
	assert.Equal(t, "table has no rows", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[TBL_004] table has no rows", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeColumnNotFound, "column %q not found", "LogP")
	assert.Equal(t, `[TBL_005] column "LogP" not found`, err.Error())
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeInvalidSMILES, "cannot parse SMILES").WithDetail("row=17")
	assert.Equal(t, "[MOL_001] cannot parse SMILES: row=17", err.Error())

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("ignored"))
}

func TestWrap(t *testing.T) {
	t.Run("nil cause returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query failed"))
	})

	t.Run("wraps and unwraps", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, ErrCodeDatabaseError, "failed to persist run")

		assert.Equal(t, ErrCodeDatabaseError, err.Code)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("internal code preserves wrapped classification", func(t *testing.T) {
		inner := New(ErrCodeColumnNotFound, "no such column")
		err := Wrap(inner, ErrCodeInternal, "visualize failed")
		assert.Equal(t, ErrCodeColumnNotFound, err.Code)
	})

	t.Run("explicit code overrides", func(t *testing.T) {
		inner := New(ErrCodeColumnNotFound, "no such column")
		err := Wrap(inner, ErrCodeProjectionFailed, "visualize failed")
		assert.Equal(t, ErrCodeProjectionFailed, err.Code)
	})
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeRunNotFound, "run gone")
	wrapped := fmt.Errorf("outer: %w", inner)

	assert.True(t, IsCode(wrapped, ErrCodeRunNotFound))
	assert.False(t, IsCode(wrapped, ErrCodeRunBundleFailed))
	assert.False(t, IsCode(nil, ErrCodeRunNotFound))
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"generic not found", NotFound("x"), true},
		{"compound not found", New(ErrCodeCompoundNotFound, "x"), true},
		{"column not found", New(ErrCodeColumnNotFound, "x"), true},
		{"run not found", New(ErrCodeRunNotFound, "x"), true},
		{"validation", Validation("x"), false},
		{"plain error", errors.New("x"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsNotFound(tc.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeParetoNoObjectives, GetCode(New(ErrCodeParetoNoObjectives, "x")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}

func TestAppErrorChain(t *testing.T) {
	root := errors.New("disk full")
	mid := Wrap(root, ErrCodeTableWriteFailed, "cannot write projection CSV")
	top := Wrap(mid, ErrCodeProjectionFailed, "visualize run failed")

	require.True(t, errors.Is(top, root))

	var ae *AppError
	require.True(t, errors.As(top, &ae))
	assert.Equal(t, ErrCodeProjectionFailed, ae.Code)
}
