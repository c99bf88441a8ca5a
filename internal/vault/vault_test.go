package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eaglechat-server/internal/crypto"
	"eaglechat-server/internal/storage"
)

func newTestVault(t *testing.T) (*Vault, *storage.MemoryStore, *crypto.SecretEncryptor) {
	t.Helper()
	encryptor, err := crypto.NewSecretEncryptor("test-master-key", "")
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateTenant(context.Background(), &storage.Tenant{
		ID: "tenant-1", APIKey: "k1", SiteURL: "https://one.example", AdminEmail: "one@example.com",
		Domain: "one.example", SiteHash: "hash-one",
	}))
	require.NoError(t, store.CreateTenant(context.Background(), &storage.Tenant{
		ID: "tenant-2", APIKey: "k2", SiteURL: "https://two.example", AdminEmail: "two@example.com",
	}))

	return New(encryptor, store, nil), store, encryptor
}

func TestVault_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	vault, store, _ := newTestVault(t)

	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeAnthropic, "sk-ant-12345"))

	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeAnthropic)
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, "sk-ant-12345", secret.Value)
	assert.Equal(t, "one.example", secret.Domain)
	assert.Equal(t, "hash-one", secret.SiteHash)

	// The store must only ever hold ciphertext.
	record, err := store.GetTenantSecret(ctx, "tenant-1", "anthropic")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotEqual(t, "sk-ant-12345", record.Ciphertext)
	assert.NotContains(t, record.Ciphertext, "sk-ant")
}

func TestVault_AbsentSecretIsNilNotError(t *testing.T) {
	ctx := context.Background()
	vault, _, _ := newTestVault(t)

	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	assert.Nil(t, secret)

	secret, err = vault.GetSecret(ctx, "no-such-tenant", PurposeHMAC)
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestVault_CacheHitSkipsStore(t *testing.T) {
	ctx := context.Background()
	vault, store, _ := newTestVault(t)

	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeHMAC, "signing-secret"))

	// With stores failing, a cached read must still succeed.
	store.FailStores(true)
	defer store.FailStores(false)

	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, "signing-secret", secret.Value)
	assert.Equal(t, 1, vault.CacheSize())
}

func TestVault_FailedStoreLeavesCacheClean(t *testing.T) {
	ctx := context.Background()
	vault, store, _ := newTestVault(t)

	store.FailStores(true)
	err := vault.StoreSecret(ctx, "tenant-1", PurposeOpenAI, "sk-openai")
	require.Error(t, err)
	store.FailStores(false)

	// Nothing cached, nothing stored.
	assert.Equal(t, 0, vault.CacheSize())
	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeOpenAI)
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestVault_CacheIsolationBetweenTenants(t *testing.T) {
	ctx := context.Background()
	vault, _, _ := newTestVault(t)

	// Same purpose, same plaintext, two tenants.
	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeHMAC, "shared-plaintext"))
	require.NoError(t, vault.StoreSecret(ctx, "tenant-2", PurposeHMAC, "shared-plaintext"))
	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeAnthropic, "tenant-1-key"))

	assert.Equal(t, 3, vault.CacheSize())

	// Deleting tenant-1's secret must not disturb tenant-2's.
	require.NoError(t, vault.DeleteSecret(ctx, "tenant-1", PurposeHMAC))

	gone, err := vault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := vault.GetSecret(ctx, "tenant-2", PurposeHMAC)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "shared-plaintext", kept.Value)
}

func TestVault_DeleteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	vault, _, _ := newTestVault(t)

	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeHMAC, "old-secret"))
	require.NoError(t, vault.DeleteSecret(ctx, "tenant-1", PurposeHMAC))

	assert.Equal(t, 0, vault.CacheSize())
	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestVault_RotateSecret(t *testing.T) {
	ctx := context.Background()
	vault, _, _ := newTestVault(t)

	first, err := vault.RotateSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := vault.RotateSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Reads after rotation must observe the new secret, never the old one.
	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, second, secret.Value)
}

func TestVault_HasSecret(t *testing.T) {
	ctx := context.Background()
	vault, _, _ := newTestVault(t)

	has, err := vault.HasSecret(ctx, "tenant-1", PurposeAnthropic)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeAnthropic, "sk"))

	has, err = vault.HasSecret(ctx, "tenant-1", PurposeAnthropic)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestVault_TamperedCiphertextFailsLoudly(t *testing.T) {
	ctx := context.Background()
	vault, store, _ := newTestVault(t)

	require.NoError(t, store.StoreTenantSecret(ctx, "tenant-1", "anthropic", "bm90LXJlYWwtY2lwaGVydGV4dA=="))

	_, err := vault.GetSecret(ctx, "tenant-1", PurposeAnthropic)
	require.Error(t, err)
}

func TestVault_ReencryptTenant(t *testing.T) {
	ctx := context.Background()

	oldEncryptor, err := crypto.NewSecretEncryptor("old-master-key", "")
	require.NoError(t, err)
	newEncryptor, err := crypto.NewSecretEncryptor("new-master-key", "")
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateTenant(ctx, &storage.Tenant{
		ID: "tenant-1", APIKey: "k", SiteURL: "https://a.example", AdminEmail: "a@example.com",
	}))

	// Seed secrets written under the old key.
	oldVault := New(oldEncryptor, store, nil)
	require.NoError(t, oldVault.StoreSecret(ctx, "tenant-1", PurposeHMAC, "signing-secret"))
	require.NoError(t, oldVault.StoreSecret(ctx, "tenant-1", PurposeAnthropic, "sk-ant-key"))

	newVault := New(newEncryptor, store, nil)

	// Before re-encryption the new key cannot read them.
	_, err = newVault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.Error(t, err)

	require.NoError(t, newVault.ReencryptTenant(ctx, "tenant-1", oldEncryptor))

	hmacSecret, err := newVault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	require.NotNil(t, hmacSecret)
	assert.Equal(t, "signing-secret", hmacSecret.Value)

	anthropicSecret, err := newVault.GetSecret(ctx, "tenant-1", PurposeAnthropic)
	require.NoError(t, err)
	require.NotNil(t, anthropicSecret)
	assert.Equal(t, "sk-ant-key", anthropicSecret.Value)
}

func TestVault_ReencryptTenantWrongOldKeyAborts(t *testing.T) {
	ctx := context.Background()
	vault, _, _ := newTestVault(t)

	require.NoError(t, vault.StoreSecret(ctx, "tenant-1", PurposeHMAC, "signing-secret"))

	wrongOld, err := crypto.NewSecretEncryptor("never-used-key", "")
	require.NoError(t, err)

	require.Error(t, vault.ReencryptTenant(ctx, "tenant-1", wrongOld))

	// Stored secret is untouched and still readable under the current key.
	secret, err := vault.GetSecret(ctx, "tenant-1", PurposeHMAC)
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, "signing-secret", secret.Value)
}
