package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create products table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			reference TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			barcode TEXT NOT NULL DEFAULT '',
			price NUMERIC NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create sessions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id SERIAL PRIMARY KEY,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ,
			opening_cash NUMERIC NOT NULL DEFAULT 0,
			closing_total NUMERIC NOT NULL DEFAULT 0,
			export_path TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create tickets table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id SERIAL PRIMARY KEY,
			session_id INTEGER REFERENCES sessions(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL,
			vat_rate NUMERIC NOT NULL DEFAULT 0,
			subtotal NUMERIC NOT NULL,
			tax NUMERIC NOT NULL,
			total NUMERIC NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create ticket_items table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ticket_items (
			id SERIAL PRIMARY KEY,
			ticket_id INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			reference TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			barcode TEXT NOT NULL DEFAULT '',
			price NUMERIC NOT NULL,
			quantity NUMERIC NOT NULL,
			discount NUMERIC NOT NULL DEFAULT 0,
			line_total NUMERIC NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create settings table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// The partial unique index guarantees at most one open session even
	// under concurrent openSession requests.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_open
		ON sessions ((closed_at IS NULL)) WHERE closed_at IS NULL
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_reference ON products(reference)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode) WHERE barcode <> ''",
		"CREATE INDEX IF NOT EXISTS idx_ticket_items_ticket_id ON ticket_items(ticket_id)",
		"CREATE INDEX IF NOT EXISTS idx_tickets_session_id ON tickets(session_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
