// Package postgres implements the storage.Store interface on PostgreSQL
// using pgx for queries and goose-managed embedded migrations for schema.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"eaglechat-server/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Adapter struct {
	pool   *pgxpool.Pool
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	if err := runMigrations(config.DSN()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool, err := pgxpool.New(context.Background(), config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Adapter{pool: pool, config: config}, nil
}

// runMigrations applies pending schema migrations through database/sql since
// goose does not speak pgx's native interface.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (a *Adapter) CreateTenant(ctx context.Context, tenant *storage.Tenant) error {
	createdAt := tenant.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := a.pool.Exec(ctx,
		`INSERT INTO tenants (id, api_key, site_url, admin_email, domain, site_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tenant.ID, tenant.APIKey, tenant.SiteURL, tenant.AdminEmail, tenant.Domain, tenant.SiteHash, createdAt,
	)
	return err
}

const tenantColumns = `id, api_key, site_url, admin_email, domain, site_hash, created_at`

func (a *Adapter) getTenantWhere(ctx context.Context, clause string, arg interface{}) (*storage.Tenant, error) {
	var tenant storage.Tenant
	err := a.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE `+clause+` = $1`, arg).
		Scan(&tenant.ID, &tenant.APIKey, &tenant.SiteURL, &tenant.AdminEmail,
			&tenant.Domain, &tenant.SiteHash, &tenant.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

func (a *Adapter) GetTenant(ctx context.Context, id string) (*storage.Tenant, error) {
	return a.getTenantWhere(ctx, "id", id)
}

func (a *Adapter) GetTenantBySiteURL(ctx context.Context, siteURL string) (*storage.Tenant, error) {
	return a.getTenantWhere(ctx, "site_url", siteURL)
}

func (a *Adapter) GetTenantByEmail(ctx context.Context, email string) (*storage.Tenant, error) {
	return a.getTenantWhere(ctx, "admin_email", email)
}

func (a *Adapter) ValidateTenant(ctx context.Context, id, apiKey string) (bool, error) {
	var count int
	err := a.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM tenants WHERE id = $1 AND api_key = $2`, id, apiKey).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *Adapter) UpdateTenantDomain(ctx context.Context, id, domain, siteHash string) error {
	tag, err := a.pool.Exec(ctx,
		`UPDATE tenants SET domain = $1, site_hash = $2 WHERE id = $3`, domain, siteHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s not found", id)
	}
	return nil
}

func (a *Adapter) GetTenantSecret(ctx context.Context, tenantID, purpose string) (*storage.SecretRecord, error) {
	var record storage.SecretRecord
	err := a.pool.QueryRow(ctx,
		`SELECT s.tenant_id, s.purpose, s.ciphertext, s.updated_at, t.domain, t.site_hash
		 FROM tenant_secrets s JOIN tenants t ON t.id = s.tenant_id
		 WHERE s.tenant_id = $1 AND s.purpose = $2`, tenantID, purpose).
		Scan(&record.TenantID, &record.Purpose, &record.Ciphertext, &record.UpdatedAt,
			&record.Domain, &record.SiteHash)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (a *Adapter) StoreTenantSecret(ctx context.Context, tenantID, purpose, ciphertext string) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO tenant_secrets (tenant_id, purpose, ciphertext, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, purpose) DO UPDATE SET ciphertext = EXCLUDED.ciphertext, updated_at = EXCLUDED.updated_at`,
		tenantID, purpose, ciphertext, time.Now().UTC(),
	)
	return err
}

func (a *Adapter) DeleteTenantSecret(ctx context.Context, tenantID, purpose string) error {
	_, err := a.pool.Exec(ctx,
		`DELETE FROM tenant_secrets WHERE tenant_id = $1 AND purpose = $2`, tenantID, purpose)
	return err
}

func (a *Adapter) ListTenantSecrets(ctx context.Context, tenantID string) (map[string]string, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT purpose, ciphertext FROM tenant_secrets WHERE tenant_id = $1`, tenantID)
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
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, entry := range entries {
		createdAt := entry.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (tenant_id, session_id, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			tenantID, sessionID, entry.Role, entry.Content, createdAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (a *Adapter) GetConversation(ctx context.Context, tenantID, sessionID string, limit int) ([]storage.ConversationEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := a.pool.Query(ctx,
		`SELECT role, content, created_at FROM conversations
		 WHERE tenant_id = $1 AND session_id = $2
		 ORDER BY id DESC LIMIT $3`, tenantID, sessionID, limit)
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

	entries := make([]storage.ConversationEntry, len(reversed))
	for i, entry := range reversed {
		entries[len(reversed)-1-i] = entry
	}
	return entries, nil
}

func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

func (a *Adapter) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.pool.Ping(ctx)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
