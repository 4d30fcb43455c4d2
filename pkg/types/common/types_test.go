package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestPaginationNormalize(t *testing.T) {
	cases := []struct {
		name     string
		in       Pagination
		wantPage int
		wantSize int
	}{
		{"zero values", Pagination{}, 1, 20},
		{"negative page", Pagination{Page: -3, PageSize: 50}, 1, 50},
		{"oversized page size", Pagination{Page: 2, PageSize: 10000}, 2, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.in
			p.Normalize()
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantSize, p.PageSize)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 25}
	assert.Equal(t, 50, p.Offset())
}
