package storage

import (
	"context"
	"sync"
	"time"
)

type secretKey struct {
	tenantID string
	purpose  string
}

// MemoryStore is an in-process Store used for tests and local development.
// All maps are guarded by a single mutex; no operation blocks on I/O.
type MemoryStore struct {
	mu            sync.RWMutex
	tenants       map[string]*Tenant
	secrets       map[secretKey]*SecretRecord
	conversations map[secretKey][]ConversationEntry
	failStores    bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:       make(map[string]*Tenant),
		secrets:       make(map[secretKey]*SecretRecord),
		conversations: make(map[secretKey][]ConversationEntry),
	}
}

// FailStores makes every secret write return an error. Test hook for
// exercising cache consistency on persistence failure.
func (m *MemoryStore) FailStores(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStores = fail
}

func (m *MemoryStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[tenant.ID]; exists {
		return errDuplicate("tenant id")
	}
	copied := *tenant
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	m.tenants[tenant.ID] = &copied
	return nil
}

func (m *MemoryStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenant, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	copied := *tenant
	return &copied, nil
}

func (m *MemoryStore) GetTenantBySiteURL(ctx context.Context, siteURL string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tenant := range m.tenants {
		if tenant.SiteURL == siteURL {
			copied := *tenant
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetTenantByEmail(ctx context.Context, email string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tenant := range m.tenants {
		if tenant.AdminEmail == email {
			copied := *tenant
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ValidateTenant(ctx context.Context, id, apiKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenant, ok := m.tenants[id]
	if !ok {
		return false, nil
	}
	return tenant.APIKey == apiKey, nil
}

func (m *MemoryStore) UpdateTenantDomain(ctx context.Context, id, domain, siteHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tenant, ok := m.tenants[id]
	if !ok {
		return errNotFound("tenant")
	}
	tenant.Domain = domain
	tenant.SiteHash = siteHash
	return nil
}

func (m *MemoryStore) GetTenantSecret(ctx context.Context, tenantID, purpose string) (*SecretRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.secrets[secretKey{tenantID, purpose}]
	if !ok {
		return nil, nil
	}
	copied := *record
	if tenant, ok := m.tenants[tenantID]; ok {
		copied.Domain = tenant.Domain
		copied.SiteHash = tenant.SiteHash
	}
	return &copied, nil
}

func (m *MemoryStore) StoreTenantSecret(ctx context.Context, tenantID, purpose, ciphertext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failStores {
		return errStoreFailed()
	}
	m.secrets[secretKey{tenantID, purpose}] = &SecretRecord{
		TenantID:   tenantID,
		Purpose:    purpose,
		Ciphertext: ciphertext,
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) DeleteTenantSecret(ctx context.Context, tenantID, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failStores {
		return errStoreFailed()
	}
	delete(m.secrets, secretKey{tenantID, purpose})
	return nil
}

func (m *MemoryStore) ListTenantSecrets(ctx context.Context, tenantID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for key, record := range m.secrets {
		if key.tenantID == tenantID {
			result[key.purpose] = record.Ciphertext
		}
	}
	return result, nil
}

func (m *MemoryStore) AppendConversation(ctx context.Context, tenantID, sessionID string, entries []ConversationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := secretKey{tenantID, sessionID}
	for _, entry := range entries {
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		m.conversations[key] = append(m.conversations[key], entry)
	}
	return nil
}

func (m *MemoryStore) GetConversation(ctx context.Context, tenantID, sessionID string, limit int) ([]ConversationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.conversations[secretKey{tenantID, sessionID}]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	result := make([]ConversationEntry, len(entries))
	copy(result, entries)
	return result, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Health() error {
	return nil
}
