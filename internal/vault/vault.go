// Package vault manages tenant secrets at rest. Plaintext exists only in
// process memory; the backing store only ever sees AES-GCM ciphertext. A
// per-process cache keyed by (tenant, purpose) avoids a decrypt per request.
package vault

import (
	"context"
	"sync"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/crypto"
	"eaglechat-server/internal/storage"
)

// Purpose names what a stored secret is for
type Purpose string

const (
	// PurposeHMAC is the tenant's request-signing secret
	PurposeHMAC Purpose = "hmac"
	// PurposeAnthropic is the tenant's Anthropic API key
	PurposeAnthropic Purpose = "anthropic"
	// PurposeOpenAI is the tenant's OpenAI API key
	PurposeOpenAI Purpose = "openai"
)

// cacheKey is a composite key. Using a struct rather than string
// concatenation makes cross-tenant collisions structurally impossible.
type cacheKey struct {
	TenantID string
	Purpose  Purpose
}

// Secret is a decrypted secret plus the tenant's registered domain binding
type Secret struct {
	Value    string
	Domain   string
	SiteHash string
}

// Vault encrypts, persists, caches and serves tenant secrets
type Vault struct {
	encryptor *crypto.SecretEncryptor
	store     storage.Store
	logger    logging.Logger

	mu    sync.RWMutex
	cache map[cacheKey]*Secret
}

// New creates a vault over the given encryptor and store
func New(encryptor *crypto.SecretEncryptor, store storage.Store, logger logging.Logger) *Vault {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Vault{
		encryptor: encryptor,
		store:     store,
		logger:    logger,
		cache:     make(map[cacheKey]*Secret),
	}
}

// StoreSecret encrypts the plaintext and persists it. The cache is updated
// only after the store reports success, so a failed write never leaves a
// cache entry the store does not back.
func (v *Vault) StoreSecret(ctx context.Context, tenantID string, purpose Purpose, plaintext string) error {
	ciphertext, err := v.encryptor.Encrypt(plaintext)
	if err != nil {
		return err
	}

	if err := v.store.StoreTenantSecret(ctx, tenantID, string(purpose), ciphertext); err != nil {
		return errors.InternalError("failed to persist secret", err).
			WithContext("purpose", string(purpose))
	}

	record, err := v.store.GetTenantSecret(ctx, tenantID, string(purpose))
	if err != nil || record == nil {
		// Stored but not re-readable; drop any stale entry and let the
		// next Get repopulate.
		v.Invalidate(tenantID, purpose)
		return nil
	}

	v.mu.Lock()
	v.cache[cacheKey{tenantID, purpose}] = &Secret{
		Value:    plaintext,
		Domain:   record.Domain,
		SiteHash: record.SiteHash,
	}
	v.mu.Unlock()

	return nil
}

// GetSecret returns the decrypted secret for (tenant, purpose), or nil when
// none is stored. Decryption failures are loud errors; they mean the
// ciphertext is corrupt or was written under a different master key.
func (v *Vault) GetSecret(ctx context.Context, tenantID string, purpose Purpose) (*Secret, error) {
	key := cacheKey{tenantID, purpose}

	v.mu.RLock()
	cached, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return cached, nil
	}

	// A store lookup failure is a connection-kind error so callers can tell
	// "could not fetch the ciphertext" apart from "could not decrypt it".
	record, err := v.store.GetTenantSecret(ctx, tenantID, string(purpose))
	if err != nil {
		return nil, errors.ConnectionError("failed to load secret", err).
			WithContext("purpose", string(purpose))
	}
	if record == nil {
		return nil, nil
	}

	plaintext, err := v.encryptor.Decrypt(record.Ciphertext)
	if err != nil {
		v.logger.Error("secret decryption failed", err,
			logging.Field{"tenant_id", tenantID},
			logging.Field{"purpose", string(purpose)},
		)
		return nil, errors.InternalError("failed to decrypt secret", err).
			WithContext("purpose", string(purpose))
	}

	secret := &Secret{
		Value:    plaintext,
		Domain:   record.Domain,
		SiteHash: record.SiteHash,
	}

	v.mu.Lock()
	v.cache[key] = secret
	v.mu.Unlock()

	return secret, nil
}

// HasSecret reports whether a secret is stored without decrypting it
func (v *Vault) HasSecret(ctx context.Context, tenantID string, purpose Purpose) (bool, error) {
	v.mu.RLock()
	_, ok := v.cache[cacheKey{tenantID, purpose}]
	v.mu.RUnlock()
	if ok {
		return true, nil
	}

	record, err := v.store.GetTenantSecret(ctx, tenantID, string(purpose))
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// DeleteSecret removes the stored ciphertext and drops the cache entry. The
// cache drop happens immediately after the successful store mutation.
func (v *Vault) DeleteSecret(ctx context.Context, tenantID string, purpose Purpose) error {
	if err := v.store.DeleteTenantSecret(ctx, tenantID, string(purpose)); err != nil {
		return errors.InternalError("failed to delete secret", err).
			WithContext("purpose", string(purpose))
	}

	v.Invalidate(tenantID, purpose)
	return nil
}

// RotateSecret generates a fresh 32-byte hex secret, stores it and returns
// the new plaintext. Any cached copy of the old secret is replaced as part
// of the store, so stale reads cannot outlive the rotation.
func (v *Vault) RotateSecret(ctx context.Context, tenantID string, purpose Purpose) (string, error) {
	secret, err := crypto.GenerateSecret(32)
	if err != nil {
		return "", err
	}

	if err := v.StoreSecret(ctx, tenantID, purpose, secret); err != nil {
		return "", err
	}

	return secret, nil
}

// Invalidate drops the cached plaintext for (tenant, purpose)
func (v *Vault) Invalidate(tenantID string, purpose Purpose) {
	v.mu.Lock()
	delete(v.cache, cacheKey{tenantID, purpose})
	v.mu.Unlock()
}

// InvalidateTenant drops every cached secret for the tenant
func (v *Vault) InvalidateTenant(tenantID string) {
	v.mu.Lock()
	for key := range v.cache {
		if key.TenantID == tenantID {
			delete(v.cache, key)
		}
	}
	v.mu.Unlock()
}

// CacheSize returns the number of cached secrets, for admin introspection
func (v *Vault) CacheSize() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.cache)
}

// ReencryptTenant re-encrypts every stored secret of the tenant from the old
// master key to the current one. Each secret is handled atomically: decrypt
// with the old key, encrypt with the current key, persist, invalidate. A
// failure on one secret leaves that secret's stored ciphertext untouched and
// aborts the pass so the operator sees the partial state.
func (v *Vault) ReencryptTenant(ctx context.Context, tenantID string, old *crypto.SecretEncryptor) error {
	ciphertexts, err := v.store.ListTenantSecrets(ctx, tenantID)
	if err != nil {
		return errors.InternalError("failed to list tenant secrets", err)
	}

	for purpose, ciphertext := range ciphertexts {
		plaintext, err := old.Decrypt(ciphertext)
		if err != nil {
			return errors.InternalError("failed to decrypt with previous key", err).
				WithContext("purpose", purpose)
		}

		reencrypted, err := v.encryptor.Encrypt(plaintext)
		if err != nil {
			return errors.InternalError("failed to re-encrypt", err).
				WithContext("purpose", purpose)
		}

		if err := v.store.StoreTenantSecret(ctx, tenantID, purpose, reencrypted); err != nil {
			return errors.InternalError("failed to persist re-encrypted secret", err).
				WithContext("purpose", purpose)
		}

		v.Invalidate(tenantID, Purpose(purpose))

		v.logger.Info("secret re-encrypted",
			logging.Field{"tenant_id", tenantID},
			logging.Field{"purpose", purpose},
		)
	}

	return nil
}
