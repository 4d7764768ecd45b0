package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestContextIdentity(t *testing.T) {
	ctx := context.Background()

	_, ok := UserFromContext(ctx)
	assert.False(t, ok)
	_, err := RequireUser(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, ok = UserFromContext(WithUser(ctx, ""))
	assert.False(t, ok)

	id, err := RequireUser(WithUser(ctx, "therapist-1"))
	require.NoError(t, err)
	assert.Equal(t, "therapist-1", id)
}

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", "fived", time.Hour)

	raw, err := tokens.Issue("therapist-1")
	require.NoError(t, err)

	sub, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "therapist-1", sub)

	_, err = tokens.Issue("")
	assert.Error(t, err)
}

func TestVerifyRejects(t *testing.T) {
	tokens := NewTokens("secret", "fived", time.Hour)
	raw, err := tokens.Issue("therapist-1")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokens("other", "fived", time.Hour).Verify(raw)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewTokens("secret", "someone-else", time.Hour).Verify(raw)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokens("secret", "fived", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Verify(raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not-a-token")
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("secret", "", time.Hour)
	var seen string
	h := Middleware(tokens, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		raw, err := tokens.Issue("therapist-9")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "therapist-9", seen)
	})
}
