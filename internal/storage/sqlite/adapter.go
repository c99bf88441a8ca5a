// Package sqlite implements the storage.Store interface on a local SQLite
// database. Schema creation is idempotent and runs on open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"eaglechat-server/internal/storage"
)

type Adapter struct {
	db     *sql.DB
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
	}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			api_key TEXT NOT NULL,
			site_url TEXT NOT NULL UNIQUE,
			admin_email TEXT NOT NULL UNIQUE,
			domain TEXT DEFAULT '',
			site_hash TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tenant_secrets (
			tenant_id TEXT NOT NULL,
			purpose TEXT NOT NULL,
			ciphertext TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, purpose),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_session
			ON conversations(tenant_id, session_id, id)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (a *Adapter) CreateTenant(ctx context.Context, tenant *storage.Tenant) error {
	createdAt := tenant.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO tenants (id, api_key, site_url, admin_email, domain, site_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID, tenant.APIKey, tenant.SiteURL, tenant.AdminEmail, tenant.Domain, tenant.SiteHash, createdAt,
	)
	return err
}

func (a *Adapter) scanTenant(row *sql.Row) (*storage.Tenant, error) {
	var tenant storage.Tenant
	err := row.Scan(&tenant.ID, &tenant.APIKey, &tenant.SiteURL, &tenant.AdminEmail,
		&tenant.Domain, &tenant.SiteHash, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

const tenantColumns = `id, api_key, site_url, admin_email, domain, site_hash, created_at`

func (a *Adapter) GetTenant(ctx context.Context, id string) (*storage.Tenant, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	return a.scanTenant(row)
}

func (a *Adapter) GetTenantBySiteURL(ctx context.Context, siteURL string) (*storage.Tenant, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE site_url = ?`, siteURL)
	return a.scanTenant(row)
}

func (a *Adapter) GetTenantByEmail(ctx context.Context, email string) (*storage.Tenant, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE admin_email = ?`, email)
	return a.scanTenant(row)
}

func (a *Adapter) ValidateTenant(ctx context.Context, id, apiKey string) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM tenants WHERE id = ? AND api_key = ?`, id, apiKey).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *Adapter) UpdateTenantDomain(ctx context.Context, id, domain, siteHash string) error {
	result, err := a.db.ExecContext(ctx,
		`UPDATE tenants SET domain = ?, site_hash = ? WHERE id = ?`, domain, siteHash, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("tenant %s not found", id)
	}
	return nil
}

func (a *Adapter) GetTenantSecret(ctx context.Context, tenantID, purpose string) (*storage.SecretRecord, error) {
	var record storage.SecretRecord
	err := a.db.QueryRowContext(ctx,
		`SELECT s.tenant_id, s.purpose, s.ciphertext, s.updated_at, t.domain, t.site_hash
		 FROM tenant_secrets s JOIN tenants t ON t.id = s.tenant_id
		 WHERE s.tenant_id = ? AND s.purpose = ?`, tenantID, purpose).
		Scan(&record.TenantID, &record.Purpose, &record.Ciphertext, &record.UpdatedAt,
			&record.Domain, &record.SiteHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (a *Adapter) StoreTenantSecret(ctx context.Context, tenantID, purpose, ciphertext string) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO tenant_secrets (tenant_id, purpose, ciphertext, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(tenant_id, purpose) DO UPDATE SET ciphertext = excluded.ciphertext, updated_at = excluded.updated_at`,
		tenantID, purpose, ciphertext, time.Now().UTC(),
	)
	return err
}

func (a *Adapter) DeleteTenantSecret(ctx context.Context, tenantID, purpose string) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM tenant_secrets WHERE tenant_id = ? AND purpose = ?`, tenantID, purpose)
	return err
}

func (a *Adapter) ListTenantSecrets(ctx context.Context, tenantID string) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT purpose, ciphertext FROM tenant_secrets WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var purpose, ciphertext string
		if err := rows.Scan(&purpose, &ciphertext); err != nil {
			return nil, err
		}
		result[purpose] = ciphertext
	}
	return result, rows.Err()
}

func (a *Adapter) AppendConversation(ctx context.Context, tenantID, sessionID string, entries []storage.ConversationEntry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO conversations (tenant_id, session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range entries {
		createdAt := entry.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, tenantID, sessionID, entry.Role, entry.Content, createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (a *Adapter) GetConversation(ctx context.Context, tenantID, sessionID string, limit int) ([]storage.ConversationEntry, error) {
	query := `SELECT role, content, created_at FROM conversations
		 WHERE tenant_id = ? AND session_id = ?
		 ORDER BY id DESC LIMIT ?`
	if limit <= 0 {
		limit = 200
	}
	rows, err := a.db.QueryContext(ctx, query, tenantID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reversed []storage.ConversationEntry
	for rows.Next() {
		var entry storage.ConversationEntry
		if err := rows.Scan(&entry.Role, &entry.Content, &entry.CreatedAt); err != nil {
			return nil, err
		}
		reversed = append(reversed, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows came newest-first; return chronological order.
	entries := make([]storage.ConversationEntry, len(reversed))
	for i, entry := range reversed {
		entries[len(reversed)-1-i] = entry
	}
	return entries, nil
}

func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Adapter) Health() error {
	return a.db.Ping()
}
