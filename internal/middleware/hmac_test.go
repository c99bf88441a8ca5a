package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eaglechat-server/internal/crypto"
	"eaglechat-server/internal/signature"
	"eaglechat-server/internal/storage"
	"eaglechat-server/internal/vault"
)

const (
	testTenantID = "tenant-1"
	testDomain   = "shop.example"
	testSiteHash = "hash-abc"
	testSecret   = "signing-secret-for-tests"
)

type hmacFixture struct {
	handler http.Handler
	codec   *signature.Codec

	handlerCalls int
	seenTenantID string
	seenBody     []byte
}

func newHMACFixture(t *testing.T, siteHashEnforced bool) *hmacFixture {
	t.Helper()

	encryptor, err := crypto.NewSecretEncryptor("test-master-key", "")
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateTenant(ctx, &storage.Tenant{
		ID:       testTenantID,
		APIKey:   "api-key",
		Domain:   testDomain,
		SiteHash: testSiteHash,
	}))

	v := vault.New(encryptor, store, nil)
	require.NoError(t, v.StoreSecret(ctx, testTenantID, vault.PurposeHMAC, testSecret))

	codec, err := signature.NewCodec(signature.AlgorithmSHA256)
	require.NoError(t, err)
	guard := signature.NewClockGuard(signature.DefaultTimestampTolerance)
	validator := signature.NewValidator(codec, guard, nil)

	fixture := &hmacFixture{codec: codec}

	auth := NewHMACAuth(v, validator, guard, siteHashEnforced, nil)
	fixture.handler = auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.handlerCalls++
		fixture.seenTenantID, _ = TenantIDFromContext(r.Context())
		fixture.seenBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	return fixture
}

func (f *hmacFixture) request(path string, body []byte, mutate func(*http.Request)) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if mutate != nil {
		mutate(r)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func signedHeaders(codec *signature.Codec, body []byte, domain string) func(*http.Request) {
	timestamp := time.Now().Unix()
	return func(r *http.Request) {
		r.Header.Set(HeaderTimestamp, fmt.Sprintf("%d", timestamp))
		if domain != "" {
			r.Header.Set(HeaderOrigin, domain)
			r.Header.Set(HeaderSignature, codec.SignWithDomain(timestamp, body, domain, testSecret))
		} else {
			r.Header.Set(HeaderSignature, codec.Sign(timestamp, body, testSecret))
		}
	}
}

func chatBody() []byte {
	return []byte(`{"tenant_id": "tenant-1", "message": "hello"}`)
}

// faultyStore fails every secret lookup, standing in for an unreachable
// database.
type faultyStore struct {
	storage.Store
}

func (s *faultyStore) GetTenantSecret(ctx context.Context, tenantID, purpose string) (*storage.SecretRecord, error) {
	return nil, fmt.Errorf("store unreachable")
}

// requestAgainstVault sends a correctly signed chat request through
// middleware built over the given vault and returns the response.
func requestAgainstVault(t *testing.T, v *vault.Vault, codec *signature.Codec) *httptest.ResponseRecorder {
	t.Helper()

	guard := signature.NewClockGuard(signature.DefaultTimestampTolerance)
	validator := signature.NewValidator(codec, guard, nil)
	auth := NewHMACAuth(v, validator, guard, true, nil)
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	body := chatBody()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	signedHeaders(codec, body, "")(r)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestHMACAuth_PathSelection(t *testing.T) {
	f := newHMACFixture(t, true)

	t.Run("exempt path needs no signature", func(t *testing.T) {
		w := f.request("/api/v1/health", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unprotected path needs no signature", func(t *testing.T) {
		w := f.request("/api/v1/models", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("protected path without headers is rejected", func(t *testing.T) {
		w := f.request("/api/v1/chat", chatBody(), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHMACAuth_LegacySignature(t *testing.T) {
	f := newHMACFixture(t, true)
	body := chatBody()

	w := f.request("/api/v1/chat", body, signedHeaders(f.codec, body, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testTenantID, f.seenTenantID)
	assert.Equal(t, body, f.seenBody, "handler must see the original body")
	assert.Equal(t, "1.0", w.Header().Get(HeaderSecurityVersion))
	assert.Equal(t, "true", w.Header().Get(HeaderHMACValidated))
}

func TestHMACAuth_VersionHeader(t *testing.T) {
	f := newHMACFixture(t, true)
	body := chatBody()

	// The version header is informational; an explicit value must not
	// change the validation outcome.
	w := f.request("/api/v1/chat", body, func(r *http.Request) {
		signedHeaders(f.codec, body, "")(r)
		r.Header.Set(HeaderVersion, "v2")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHMACAuth_DomainBoundSignature(t *testing.T) {
	f := newHMACFixture(t, true)
	body := chatBody()

	t.Run("matching origin passes", func(t *testing.T) {
		w := f.request("/api/v1/chat", body, func(r *http.Request) {
			signedHeaders(f.codec, body, testDomain)(r)
			r.Header.Set(HeaderSiteHash, testSiteHash)
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong origin is rejected", func(t *testing.T) {
		w := f.request("/api/v1/chat", body, signedHeaders(f.codec, body, "evil.example"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("site hash mismatch is rejected when enforced", func(t *testing.T) {
		w := f.request("/api/v1/chat", body, func(r *http.Request) {
			signedHeaders(f.codec, body, testDomain)(r)
			r.Header.Set(HeaderSiteHash, "wrong-hash")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("site hash mismatch passes when not enforced", func(t *testing.T) {
		relaxed := newHMACFixture(t, false)
		w := relaxed.request("/api/v1/chat", body, func(r *http.Request) {
			signedHeaders(relaxed.codec, body, testDomain)(r)
			r.Header.Set(HeaderSiteHash, "wrong-hash")
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("legacy signature with origin header fails", func(t *testing.T) {
		// Signature was computed without the domain but the request claims one.
		timestamp := time.Now().Unix()
		w := f.request("/api/v1/chat", body, func(r *http.Request) {
			r.Header.Set(HeaderTimestamp, fmt.Sprintf("%d", timestamp))
			r.Header.Set(HeaderOrigin, testDomain)
			r.Header.Set(HeaderSignature, f.codec.Sign(timestamp, body, testSecret))
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHMACAuth_Rejections(t *testing.T) {
	f := newHMACFixture(t, true)
	body := chatBody()

	t.Run("invalid timestamp format", func(t *testing.T) {
		w := f.request("/api/v1/chat", body, func(r *http.Request) {
			r.Header.Set(HeaderTimestamp, "yesterday")
			r.Header.Set(HeaderSignature, "hmac-sha256=00")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		stale := time.Now().Add(-10 * time.Minute).Unix()
		w := f.request("/api/v1/chat", body, func(r *http.Request) {
			r.Header.Set(HeaderTimestamp, fmt.Sprintf("%d", stale))
			r.Header.Set(HeaderSignature, f.codec.Sign(stale, body, testSecret))
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		bad := []byte(`{not json`)
		w := f.request("/api/v1/chat", bad, signedHeaders(f.codec, bad, ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing tenant_id", func(t *testing.T) {
		anonymous := []byte(`{"message": "hello"}`)
		w := f.request("/api/v1/chat", anonymous, signedHeaders(f.codec, anonymous, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		unknown := []byte(`{"tenant_id": "tenant-unknown"}`)
		w := f.request("/api/v1/chat", unknown, signedHeaders(f.codec, unknown, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("secret store lookup failure denies the request", func(t *testing.T) {
		store := &faultyStore{Store: storage.NewMemoryStore()}
		encryptor, err := crypto.NewSecretEncryptor("test-master-key", "")
		require.NoError(t, err)

		w := requestAgainstVault(t, vault.New(encryptor, store, nil), f.codec)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("undecryptable secret is a server error", func(t *testing.T) {
		store := storage.NewMemoryStore()
		writer, err := crypto.NewSecretEncryptor("original-master-key", "")
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, vault.New(writer, store, nil).StoreSecret(ctx, testTenantID, vault.PurposeHMAC, testSecret))

		// Read back under a different master key.
		reader, err := crypto.NewSecretEncryptor("different-master-key", "")
		require.NoError(t, err)

		w := requestAgainstVault(t, vault.New(reader, store, nil), f.codec)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("tampered body", func(t *testing.T) {
		timestamp := time.Now().Unix()
		tampered := []byte(`{"tenant_id": "tenant-1", "message": "transfer everything"}`)
		w := f.request("/api/v1/chat", tampered, func(r *http.Request) {
			r.Header.Set(HeaderTimestamp, fmt.Sprintf("%d", timestamp))
			r.Header.Set(HeaderSignature, f.codec.Sign(timestamp, body, testSecret))
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
