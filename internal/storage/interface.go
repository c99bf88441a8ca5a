// Package storage defines the persistence interface for tenants, their
// encrypted secrets, and conversation history, with pluggable backends
// registered by type name.
package storage

import (
	"context"
	"strconv"
	"time"
)

// Tenant is a registered client site
type Tenant struct {
	ID         string    `json:"id"`
	APIKey     string    `json:"api_key"`
	SiteURL    string    `json:"site_url"`
	AdminEmail string    `json:"admin_email"`
	Domain     string    `json:"domain"`
	SiteHash   string    `json:"site_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// SecretRecord is one stored ciphertext for a (tenant, purpose) pair. Domain
// and SiteHash carry the tenant's registered binding so callers resolving a
// signing secret get everything needed for domain checks in one lookup.
type SecretRecord struct {
	TenantID   string    `json:"tenant_id"`
	Purpose    string    `json:"purpose"`
	Ciphertext string    `json:"ciphertext"`
	Domain     string    `json:"domain"`
	SiteHash   string    `json:"site_hash"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConversationEntry is one message in a tenant session transcript
type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract shared by all backends. Lookups for
// absent rows return (nil, nil), not an error.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	GetTenantBySiteURL(ctx context.Context, siteURL string) (*Tenant, error)
	GetTenantByEmail(ctx context.Context, email string) (*Tenant, error)
	ValidateTenant(ctx context.Context, id, apiKey string) (bool, error)
	UpdateTenantDomain(ctx context.Context, id, domain, siteHash string) error

	// Encrypted secrets, keyed by (tenant, purpose)
	GetTenantSecret(ctx context.Context, tenantID, purpose string) (*SecretRecord, error)
	StoreTenantSecret(ctx context.Context, tenantID, purpose, ciphertext string) error
	DeleteTenantSecret(ctx context.Context, tenantID, purpose string) error
	ListTenantSecrets(ctx context.Context, tenantID string) (map[string]string, error)

	// Conversation history
	AppendConversation(ctx context.Context, tenantID, sessionID string, entries []ConversationEntry) error
	GetConversation(ctx context.Context, tenantID, sessionID string, limit int) ([]ConversationEntry, error)

	Close() error
	Health() error
}

// StoreConfig is an opaque per-backend configuration value
type StoreConfig interface {
	Validate() error
}

// StoreFactory creates a Store from its configuration
type StoreFactory interface {
	Create(config StoreConfig) (Store, error)
}

// GenericConfig is a loose key/value config handed to backend factories
type GenericConfig map[string]interface{}

// Validate implements StoreConfig
func (c GenericConfig) Validate() error {
	return nil
}

// GetString returns a string value from the config, or the fallback
func (c GenericConfig) GetString(key, fallback string) string {
	if v, ok := c[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// GetInt returns an int value from the config, or the fallback
func (c GenericConfig) GetInt(key string, fallback int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		return fallback
	default:
		return fallback
	}
}
