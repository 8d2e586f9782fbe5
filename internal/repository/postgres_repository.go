package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/oscarvm/tpv-server/internal/models"
)

// Sentinel errors for session preconditions; the service maps them to
// caller-visible responses.
var (
	ErrNoOpenSession      = errors.New("no open session")
	ErrSessionAlreadyOpen = errors.New("session already open")
)

// ClosingResult carries everything closeSession aggregates inside its
// transaction: the per-product summary and the session totals.
type ClosingResult struct {
	SessionID int64
	Summary   []models.SummaryRow
	Totals    models.SessionTotals
}

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Settings operations
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	// Product operations
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
	UpsertProduct(ctx context.Context, product *models.Product) error

	// Session operations
	GetActiveSession(ctx context.Context) (*models.Session, error)
	OpenSession(ctx context.Context, openedAt time.Time, openingCash decimal.Decimal) (*models.Session, error)
	CloseActiveSession(ctx context.Context, closedAt time.Time, exportPath string) (*ClosingResult, error)

	// Ticket operations
	CreateTicket(ctx context.Context, ticket *models.Ticket, items []models.TicketItem) error
	CountTickets(ctx context.Context) (int, error)
	SalesByDate(ctx context.Context, date string) ([]models.SalesRow, error)

	// History operations
	ClearHistory(ctx context.Context, from, to string) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Settings repository methods
func (r *PostgresRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM settings WHERE key = $1`

	var value string
	err := r.db.GetContext(ctx, &value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil // Setting not present, caller applies its default
		}
		return "", false, err
	}

	return value, true, nil
}

func (r *PostgresRepository) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}

// Product repository methods
func (r *PostgresRepository) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	var products []models.Product
	var err error

	if term == "" {
		query := `SELECT * FROM products ORDER BY reference LIMIT 100`
		err = r.db.SelectContext(ctx, &products, query)
	} else {
		query := `
			SELECT * FROM products
			WHERE reference ILIKE $1 OR description ILIKE $1 OR barcode ILIKE $1
			ORDER BY reference LIMIT 100
		`
		err = r.db.SelectContext(ctx, &products, query, "%"+term+"%")
	}

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *PostgresRepository) UpsertProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (reference, description, barcode, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reference) DO UPDATE
		SET description = EXCLUDED.description,
		    barcode = EXCLUDED.barcode,
		    price = EXCLUDED.price
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		product.Reference, product.Description, product.Barcode, product.Price).Scan(&product.ID)
}

// Session repository methods
func (r *PostgresRepository) GetActiveSession(ctx context.Context) (*models.Session, error) {
	query := `SELECT * FROM sessions WHERE closed_at IS NULL ORDER BY opened_at DESC LIMIT 1`

	var session models.Session
	err := r.db.GetContext(ctx, &session, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No open session
		}
		return nil, err
	}

	return &session, nil
}

func (r *PostgresRepository) OpenSession(
	ctx context.Context,
	openedAt time.Time,
	openingCash decimal.Decimal,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (opened_at, opening_cash)
		VALUES ($1, $2)
		RETURNING id
	`

	session := &models.Session{
		OpenedAt:    openedAt,
		OpeningCash: openingCash,
	}

	err := r.db.QueryRowContext(ctx, query, openedAt, openingCash).Scan(&session.ID)
	if err != nil {
		// The partial unique index on open sessions turns a concurrent
		// duplicate open into a unique violation.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrSessionAlreadyOpen
		}
		return nil, err
	}

	return session, nil
}

// CloseActiveSession aggregates and closes the open session in a single
// transaction, locking the session row so no ticket can slip in between
// the aggregation and the close.
func (r *PostgresRepository) CloseActiveSession(
	ctx context.Context,
	closedAt time.Time,
	exportPath string,
) (*ClosingResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	sessionID, err := lockActiveSession(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &ClosingResult{SessionID: sessionID}

	summaryQuery := `
		SELECT ti.reference, ti.description,
		       SUM(ti.quantity) AS units, SUM(ti.line_total) AS revenue
		FROM ticket_items ti
		JOIN tickets t ON ti.ticket_id = t.id
		WHERE t.session_id = $1
		GROUP BY ti.reference, ti.description
		ORDER BY ti.reference, ti.description
	`
	err = tx.SelectContext(ctx, &result.Summary, summaryQuery, sessionID)
	if err != nil {
		return nil, err
	}

	totalsQuery := `
		SELECT COALESCE(SUM(subtotal), 0) AS subtotal,
		       COALESCE(SUM(tax), 0) AS tax,
		       COALESCE(SUM(total), 0) AS total
		FROM tickets WHERE session_id = $1
	`
	err = tx.GetContext(ctx, &result.Totals, totalsQuery, sessionID)
	if err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE sessions
		SET closed_at = $1, closing_total = $2, export_path = $3
		WHERE id = $4
	`
	_, err = tx.ExecContext(ctx, updateQuery, closedAt, result.Totals.Total, exportPath, sessionID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}

// Ticket repository methods

// CreateTicket writes the ticket header and all its line items as one
// all-or-nothing unit. The open session is re-resolved and row-locked
// inside the transaction, so a session closing concurrently cannot leave
// the ticket orphaned.
func (r *PostgresRepository) CreateTicket(
	ctx context.Context,
	ticket *models.Ticket,
	items []models.TicketItem,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	sessionID, err := lockActiveSession(ctx, tx)
	if err != nil {
		return err
	}

	ticket.SessionID = sessionID

	ticketQuery := `
		INSERT INTO tickets (session_id, created_at, vat_rate, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, ticketQuery,
		ticket.SessionID, ticket.CreatedAt, ticket.VatRate,
		ticket.Subtotal, ticket.Tax, ticket.Total).Scan(&ticket.ID)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO ticket_items (ticket_id, reference, description, barcode, price, quantity, discount, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	for i := range items {
		items[i].TicketID = ticket.ID
		err = tx.QueryRowContext(ctx, itemQuery,
			items[i].TicketID, items[i].Reference, items[i].Description, items[i].Barcode,
			items[i].Price, items[i].Quantity, items[i].Discount, items[i].LineTotal).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) CountTickets(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tickets`)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PostgresRepository) SalesByDate(ctx context.Context, date string) ([]models.SalesRow, error) {
	query := `
		SELECT ti.reference, ti.description, SUM(ti.quantity) AS units
		FROM ticket_items ti
		JOIN tickets t ON ti.ticket_id = t.id
		WHERE t.created_at::date = $1::date
		GROUP BY ti.reference, ti.description
		ORDER BY ti.reference, ti.description
	`

	var rows []models.SalesRow
	err := r.db.SelectContext(ctx, &rows, query, date)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// History repository methods

// ClearHistory deletes ticket items, tickets and closed sessions in the
// date range as one transaction. Open sessions are never touched.
func (r *PostgresRepository) ClearHistory(ctx context.Context, from, to string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM ticket_items
		WHERE ticket_id IN (
			SELECT id FROM tickets WHERE created_at::date BETWEEN $1::date AND $2::date
		)
	`, from, to)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM tickets WHERE created_at::date BETWEEN $1::date AND $2::date`, from, to)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE opened_at::date BETWEEN $1::date AND $2::date AND closed_at IS NOT NULL`,
		from, to)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// lockActiveSession resolves the open session inside tx and takes a row
// lock on it, returning ErrNoOpenSession when there is none.
func lockActiveSession(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	var sessionID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE closed_at IS NULL ORDER BY opened_at DESC LIMIT 1 FOR UPDATE`,
	).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoOpenSession
		}
		return 0, err
	}

	return sessionID, nil
}
