package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", mapError(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", mapError(err))
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing connection
func NewStoreFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.db.PingContext(ctx))
}

const schema = `
CREATE TABLE IF NOT EXISTS checkout_pages (
	id             UUID PRIMARY KEY,
	user_id        TEXT NOT NULL,
	title          TEXT NOT NULL,
	slug           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	logo_url       TEXT NOT NULL DEFAULT '',
	theme          JSONB NOT NULL DEFAULT '{}',
	custom_fields  JSONB NOT NULL DEFAULT '[]',
	layout         JSONB NOT NULL DEFAULT '[]',
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	pixels         JSONB,
	utmify_key     TEXT NOT NULL DEFAULT '',
	delivery_email TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT checkout_pages_slug_key UNIQUE (slug)
);

CREATE INDEX IF NOT EXISTS idx_checkout_pages_user_id ON checkout_pages (user_id);

CREATE TABLE IF NOT EXISTS products (
	checkout_page_id  UUID NOT NULL REFERENCES checkout_pages (id) ON DELETE CASCADE,
	id                TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	price             NUMERIC(12, 2) NOT NULL CHECK (price > 0),
	type              TEXT NOT NULL,
	image_url         TEXT NOT NULL DEFAULT '',
	digital_file_url  TEXT NOT NULL DEFAULT '',
	discount          INTEGER NOT NULL DEFAULT 0 CHECK (discount BETWEEN 0 AND 100),
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	requires_shipping BOOLEAN NOT NULL DEFAULT FALSE,
	position          INTEGER NOT NULL,
	PRIMARY KEY (checkout_page_id, id)
);

CREATE TABLE IF NOT EXISTS orders (
	id               UUID PRIMARY KEY,
	checkout_page_id UUID NOT NULL REFERENCES checkout_pages (id) ON DELETE CASCADE,
	customer_info    JSONB NOT NULL,
	products         JSONB NOT NULL,
	total_amount     NUMERIC(12, 2) NOT NULL,
	status           TEXT NOT NULL,
	payment_method   TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_checkout_page_id ON orders (checkout_page_id, created_at DESC);
`

// Migrate creates the tables if they do not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", mapError(err))
	}
	return nil
}
