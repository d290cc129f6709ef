// Package postgres implements store.Store on PostgreSQL via the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens dsn, ensures the schema, and returns a Store.
func New(dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Tenants() store.Tenants             { return &tenants{db: s.db} }
func (s *pgStore) Conversations() store.Conversations { return &conversations{db: s.db} }

func (s *pgStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tenants (
			tenant_id      TEXT PRIMARY KEY,
			shop_domain    TEXT NOT NULL,
			shop_name      TEXT NOT NULL DEFAULT '',
			email          TEXT NOT NULL DEFAULT '',
			access_token   TEXT NOT NULL DEFAULT '',
			token_expiry   TIMESTAMPTZ,
			currency       TEXT NOT NULL DEFAULT '',
			timezone       TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'active',
			creation_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
			reconnect_time TIMESTAMPTZ,
			webhook_url    TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_tenants_shop_domain ON tenants(shop_domain, status);
		CREATE TABLE IF NOT EXISTS conversations (
			tenant_id   TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			messages    JSONB NOT NULL DEFAULT '[]',
			context     JSONB NOT NULL DEFAULT '{}',
			update_time TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, user_id)
		);
	`)
	return err
}

// --- Tenants ---

type tenants struct{ db *sql.DB }

const tenantColumns = `tenant_id, shop_domain, shop_name, email, access_token, token_expiry, currency, timezone, status, creation_time, reconnect_time, webhook_url`

func (t *tenants) Create(ctx context.Context, m *model.Tenant) (*model.Tenant, error) {
	out := *m
	if out.Status == "" {
		out.Status = model.TenantStatusActive
	}
	var created time.Time
	row := t.db.QueryRowContext(ctx, `
		INSERT INTO tenants (tenant_id, shop_domain, shop_name, email, access_token, token_expiry, currency, timezone, status, webhook_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING creation_time`,
		out.TenantID, out.ShopDomain, out.ShopName, out.Email, out.AccessToken,
		out.TokenExpiry, out.Currency, out.Timezone, out.Status, out.WebhookURL)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreationTime = created
	return &out, nil
}

func (t *tenants) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	row := t.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1`, tenantID)
	return scanTenant(row)
}

func (t *tenants) GetByDomain(ctx context.Context, shopDomain string) (*model.Tenant, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE shop_domain = $1 AND status = $2`,
		shopDomain, model.TenantStatusActive)
	return scanTenant(row)
}

func (t *tenants) Update(ctx context.Context, m *model.Tenant) error {
	res, err := t.db.ExecContext(ctx, `
		UPDATE tenants SET shop_domain=$1, shop_name=$2, email=$3, access_token=$4, token_expiry=$5,
			currency=$6, timezone=$7, status=$8, reconnect_time=$9, webhook_url=$10
		WHERE tenant_id=$11`,
		m.ShopDomain, m.ShopName, m.Email, m.AccessToken, m.TokenExpiry,
		m.Currency, m.Timezone, m.Status, m.ReconnectTime, m.WebhookURL, m.TenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *tenants) List(ctx context.Context) ([]*model.Tenant, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY creation_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Tenant
	for rows.Next() {
		m, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *tenants) Count(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n)
	return n, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var m model.Tenant
	var expiry, reconnect *time.Time
	err := row.Scan(&m.TenantID, &m.ShopDomain, &m.ShopName, &m.Email, &m.AccessToken,
		&expiry, &m.Currency, &m.Timezone, &m.Status, &m.CreationTime, &reconnect, &m.WebhookURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.TokenExpiry = expiry
	m.ReconnectTime = reconnect
	return &m, nil
}

// --- Conversations ---

type conversations struct{ db *sql.DB }

func (c *conversations) Get(ctx context.Context, tenantID, userID string) (*model.Conversation, error) {
	var messagesJSON, contextJSON []byte
	var updated time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT messages, context, update_time FROM conversations WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID).Scan(&messagesJSON, &contextJSON, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := &model.Conversation{TenantID: tenantID, UserID: userID, UpdateTime: updated}
	if err := json.Unmarshal(messagesJSON, &out.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &out.Context); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return out, nil
}

func (c *conversations) Put(ctx context.Context, conv *model.Conversation) error {
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	contextJSON, err := json.Marshal(conv.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO conversations (tenant_id, user_id, messages, context, update_time)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			messages = EXCLUDED.messages,
			context = EXCLUDED.context,
			update_time = EXCLUDED.update_time`,
		conv.TenantID, conv.UserID, messagesJSON, contextJSON)
	return err
}

func (c *conversations) Delete(ctx context.Context, tenantID, userID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (c *conversations) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

func (c *conversations) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n)
	return n, err
}
