package models

import "github.com/shopspring/decimal"

// Request models
type LoginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

type SaveSettingsRequest struct {
	PrinterName  *string          `json:"printerName"`
	TicketHeader *string          `json:"ticketHeader"`
	TicketFooter *string          `json:"ticketFooter"`
	DefaultVat   *decimal.Decimal `json:"defaultVat"`
	ExportPath   *string          `json:"exportPath"`
}

type ImportProductsRequest struct {
	Items []ImportProductRow `json:"items"`
}

type ImportProductRow struct {
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Barcode     string          `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
}

type OpenSessionRequest struct {
	OpeningCash *decimal.Decimal `json:"openingCash"`
}

type CreateTicketRequest struct {
	Items   []TicketItemInput `json:"items"`
	VatRate *decimal.Decimal  `json:"vatRate"`
}

// TicketItemInput uses pointers so that absent fields can fall back to
// their defaults (quantity 1, price 0, discount 0).
type TicketItemInput struct {
	Reference   string           `json:"reference"`
	Description string           `json:"description"`
	Barcode     string           `json:"barcode"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Discount    *decimal.Decimal `json:"discount"`
}

type ExportSalesRequest struct {
	Date string `json:"date"`
}

type ClearHistoryRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type SettingsResponse struct {
	Settings Settings `json:"settings"`
}

type SaveSettingsResponse struct {
	Saved    bool     `json:"saved"`
	Settings Settings `json:"settings"`
}

type ProductsResponse struct {
	Products []Product `json:"products"`
}

type ImportProductsResponse struct {
	Imported int `json:"imported"`
}

type OpenSessionResponse struct {
	SessionID   int64  `json:"sessionId"`
	AlreadyOpen bool   `json:"alreadyOpen,omitempty"`
	Message     string `json:"message,omitempty"`
}

type SessionStatusResponse struct {
	Open      bool   `json:"open"`
	SessionID *int64 `json:"sessionId"`
}

type TicketTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	VatRate  decimal.Decimal `json:"vatRate"`
}

// TicketReceipt is the printable representation of a sale
type TicketReceipt struct {
	Header   string       `json:"header"`
	Footer   string       `json:"footer"`
	TicketID int64        `json:"ticketId"`
	Items    []TicketItem `json:"items"`
	Totals   TicketTotals `json:"totals"`
}

type CreateTicketResponse struct {
	TicketID int64         `json:"ticketId"`
	Ticket   TicketReceipt `json:"ticket"`
}

// ClosingTicket is the printable receipt produced when a session ends
type ClosingTicket struct {
	Header     string          `json:"header"`
	Footer     string          `json:"footer"`
	Total      decimal.Decimal `json:"total"`
	Base       decimal.Decimal `json:"base"`
	Tax        decimal.Decimal `json:"tax"`
	VatRate    decimal.Decimal `json:"vatRate"`
	ExportFile string          `json:"exportFile"`
}

type CloseSessionResponse struct {
	Closed        bool            `json:"closed"`
	Summary       []SummaryRow    `json:"summary"`
	Total         decimal.Decimal `json:"total"`
	ExportFile    string          `json:"exportFile"`
	ClosingTicket ClosingTicket   `json:"closingTicket"`
	CSVContent    string          `json:"csvContent"`
	ExportError   string          `json:"exportError,omitempty"`
}

type ExportSalesResponse struct {
	CSVContent string `json:"csvContent"`
}

type ClearHistoryResponse struct {
	Cleared bool `json:"cleared"`
}

// APIError is the error body of the POS endpoints: a human-readable
// message, plus the underlying detail for storage failures.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
