package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name      string
		page      int
		limit     int
		total     int
		wantPage  int
		wantLimit int
		wantPages int
	}{
		{name: "exact multiple", page: 1, limit: 10, total: 20, wantPage: 1, wantLimit: 10, wantPages: 2},
		{name: "remainder adds a page", page: 2, limit: 10, total: 21, wantPage: 2, wantLimit: 10, wantPages: 3},
		{name: "partial single page", page: 1, limit: 20, total: 7, wantPage: 1, wantLimit: 20, wantPages: 1},
		{name: "empty result", page: 1, limit: 10, total: 0, wantPage: 1, wantLimit: 10, wantPages: 0},
		{name: "normalises page and limit", page: 0, limit: -5, total: 25, wantPage: 1, wantLimit: 10, wantPages: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.limit, tc.total)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantLimit, p.Limit)
			assert.Equal(t, tc.total, p.TotalCount)
			assert.Equal(t, tc.wantPages, p.TotalPages)
		})
	}
}
