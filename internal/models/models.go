package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry, identified by its reference
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Reference   string          `db:"reference" json:"reference"`
	Description string          `db:"description" json:"description"`
	Barcode     string          `db:"barcode" json:"barcode"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

// Session is a cash-register shift, bounded by open/close
type Session struct {
	ID           int64           `db:"id" json:"id"`
	OpenedAt     time.Time       `db:"opened_at" json:"openedAt"`
	ClosedAt     *time.Time      `db:"closed_at" json:"closedAt"`
	OpeningCash  decimal.Decimal `db:"opening_cash" json:"openingCash"`
	ClosingTotal decimal.Decimal `db:"closing_total" json:"closingTotal"`
	ExportPath   string          `db:"export_path" json:"exportPath"`
}

// Ticket is one completed sale with computed totals
type Ticket struct {
	ID        int64           `db:"id" json:"id"`
	SessionID int64           `db:"session_id" json:"sessionId"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	VatRate   decimal.Decimal `db:"vat_rate" json:"vatRate"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax       decimal.Decimal `db:"tax" json:"tax"`
	Total     decimal.Decimal `db:"total" json:"total"`
}

// TicketItem is a single line of a ticket, owned by it exclusively
type TicketItem struct {
	ID          int64           `db:"id" json:"id"`
	TicketID    int64           `db:"ticket_id" json:"ticketId"`
	Reference   string          `db:"reference" json:"reference"`
	Description string          `db:"description" json:"description"`
	Barcode     string          `db:"barcode" json:"barcode"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	LineTotal   decimal.Decimal `db:"line_total" json:"lineTotal"`
}

// SummaryRow is one aggregated product line of a closing summary
type SummaryRow struct {
	Reference   string          `db:"reference" json:"reference"`
	Description string          `db:"description" json:"description"`
	Units       decimal.Decimal `db:"units" json:"units"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
}

// SessionTotals aggregates the tickets of a session
type SessionTotals struct {
	Subtotal decimal.Decimal `db:"subtotal"`
	Tax      decimal.Decimal `db:"tax"`
	Total    decimal.Decimal `db:"total"`
}

// SalesRow is one line of the ad hoc per-date sales export
type SalesRow struct {
	Reference   string          `db:"reference" json:"reference"`
	Description string          `db:"description" json:"description"`
	Units       decimal.Decimal `db:"units" json:"units"`
}

// Settings are the terminal preferences kept in the key-value store
type Settings struct {
	PrinterName  string          `json:"printerName"`
	TicketHeader string          `json:"ticketHeader"`
	TicketFooter string          `json:"ticketFooter"`
	DefaultVat   decimal.Decimal `json:"defaultVat"`
	ExportPath   string          `json:"exportPath"`
}
