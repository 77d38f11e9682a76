package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/citizen-portal/internal/storage"
)

func TestPageFromQuery(t *testing.T) {
	tests := []struct {
		query string
		want  storage.Page
		ok    bool
	}{
		{query: "", want: storage.Page{Skip: 0, Limit: 100}, ok: true},
		{query: "?skip=20&limit=10", want: storage.Page{Skip: 20, Limit: 10}, ok: true},
		{query: "?limit=1000", want: storage.Page{Skip: 0, Limit: 100}, ok: true},
		{query: "?skip=-1", ok: false},
		{query: "?limit=0", ok: false},
		{query: "?limit=abc", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			page, ok := pageFromQuery(rec, httptest.NewRequest(http.MethodGet, "/api/users"+tt.query, nil))

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, page)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
