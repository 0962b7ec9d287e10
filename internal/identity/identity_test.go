package identity

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrboard/internal/apperr"
)

func TestStatic(t *testing.T) {
	id, err := Static{Tenant: "local"}.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "local", id.TenantID)

	_, err = Static{}.Authenticate(context.Background(), "token")
	assert.True(t, apperr.IsUnauthenticated(err))
}

func TestSupabaseAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":401,"msg":"invalid JWT"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"7d3c5c1e-3f4b-4a43-9c55-0c6f6b1f2a10","email":"ana@example.com","aud":"authenticated"}`)
	}))
	t.Cleanup(srv.Close)

	p, err := NewSupabase(srv.URL, "anon-key")
	require.NoError(t, err)

	id, err := p.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "7d3c5c1e-3f4b-4a43-9c55-0c6f6b1f2a10", id.TenantID)
	assert.Equal(t, "ana@example.com", id.Email)

	_, err = p.Authenticate(context.Background(), "bad-token")
	assert.True(t, apperr.IsUnauthenticated(err))

	_, err = p.Authenticate(context.Background(), " ")
	assert.True(t, apperr.IsUnauthenticated(err))
}
