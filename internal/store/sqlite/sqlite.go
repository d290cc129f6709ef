// Package sqlite implements store.Store backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
)

// Open opens (or creates) a SQLite database at the given path, enables WAL
// journal mode, and runs migrations. Use ":memory:" for tests.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		path = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// A pooled second connection would see its own empty database; pin
		// the pool so the in-memory database lives on one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens the database at path and returns a Store.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB allows wiring with an existing connection (used by tests).
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Tenants() store.Tenants             { return &tenants{db: s.db} }
func (s *sqliteStore) Conversations() store.Conversations { return &conversations{db: s.db} }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- Tenants ---

type tenants struct{ db *sql.DB }

const tenantColumns = `tenant_id, shop_domain, shop_name, email, access_token, token_expiry, currency, timezone, status, creation_time, reconnect_time, webhook_url`

func (t *tenants) Create(ctx context.Context, m *model.Tenant) (*model.Tenant, error) {
	now := time.Now().UTC()
	out := *m
	out.CreationTime = now
	if out.Status == "" {
		out.Status = model.TenantStatusActive
	}
	_, err := t.db.ExecContext(ctx, `INSERT INTO tenants (`+tenantColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		out.TenantID, out.ShopDomain, out.ShopName, out.Email, out.AccessToken,
		nullTime(out.TokenExpiry), out.Currency, out.Timezone, out.Status,
		out.CreationTime, nullTime(out.ReconnectTime), out.WebhookURL)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *tenants) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	row := t.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = ?`, tenantID)
	return scanTenant(row)
}

func (t *tenants) GetByDomain(ctx context.Context, shopDomain string) (*model.Tenant, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE shop_domain = ? AND status = ?`,
		shopDomain, model.TenantStatusActive)
	return scanTenant(row)
}

func (t *tenants) Update(ctx context.Context, m *model.Tenant) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE tenants SET shop_domain=?, shop_name=?, email=?, access_token=?, token_expiry=?, currency=?, timezone=?, status=?, reconnect_time=?, webhook_url=? WHERE tenant_id=?`,
		m.ShopDomain, m.ShopName, m.Email, m.AccessToken, nullTime(m.TokenExpiry),
		m.Currency, m.Timezone, m.Status, nullTime(m.ReconnectTime), m.WebhookURL, m.TenantID)
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
	var expiry, reconnect sql.NullTime
	err := row.Scan(&m.TenantID, &m.ShopDomain, &m.ShopName, &m.Email, &m.AccessToken,
		&expiry, &m.Currency, &m.Timezone, &m.Status, &m.CreationTime, &reconnect, &m.WebhookURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		v := expiry.Time
		m.TokenExpiry = &v
	}
	if reconnect.Valid {
		v := reconnect.Time
		m.ReconnectTime = &v
	}
	return &m, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// --- Conversations ---

type conversations struct{ db *sql.DB }

func (c *conversations) Get(ctx context.Context, tenantID, userID string) (*model.Conversation, error) {
	var messagesJSON, contextJSON []byte
	var updated time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT messages, context, update_time FROM conversations WHERE tenant_id = ? AND user_id = ?`,
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
		VALUES (?,?,?,?,?)
		ON CONFLICT(tenant_id, user_id) DO UPDATE SET
			messages = excluded.messages,
			context = excluded.context,
			update_time = excluded.update_time`,
		conv.TenantID, conv.UserID, messagesJSON, contextJSON, time.Now().UTC())
	return err
}

func (c *conversations) Delete(ctx context.Context, tenantID, userID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE tenant_id = ? AND user_id = ?`, tenantID, userID)
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
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE tenant_id = ?`, tenantID).Scan(&n)
	return n, err
}

func (c *conversations) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n)
	return n, err
}
