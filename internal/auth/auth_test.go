package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-that-is-long-enough!"

func TestGenerateAndVerifyToken(t *testing.T) {
	a := New(testSecret, nil)

	token, err := a.GenerateToken("admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := New(testSecret, nil).GenerateToken("admin@example.com")
	require.NoError(t, err)

	_, err = New("a-completely-different-secret-value!", nil).VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_Expired(t *testing.T) {
	a := New(testSecret, nil)

	issued := time.Now().Add(-48 * time.Hour)
	a.now = func() time.Time { return issued }
	token, err := a.GenerateToken("admin@example.com")
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, err := New(testSecret, nil).VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	a := New(testSecret, nil)

	var seenSubject string
	handler := a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSubject = r.Header.Get("X-Admin-Subject")
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token passes", func(t *testing.T) {
		token, err := a.GenerateToken("admin@example.com")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reencrypt", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin@example.com", seenSubject)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reencrypt", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reencrypt", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("forged subject header is overwritten", func(t *testing.T) {
		token, err := a.GenerateToken("admin@example.com")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reencrypt", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("X-Admin-Subject", "attacker@example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin@example.com", seenSubject)
	})
}
