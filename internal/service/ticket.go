package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oscarvm/tpv-server/internal/models"
	"github.com/oscarvm/tpv-server/internal/repository"
)

var (
	one         = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
	minQuantity = decimal.RequireFromString("0.01")
)

// CreateTicket computes the totals for a sale and persists the ticket
// header and its line items atomically. It fails with ErrNoOpenSession
// and performs no writes when no session is open.
func (s *DefaultService) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.CreateTicketResponse, error) {
	active, err := s.repo.GetActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting active session: %w", err)
	}
	if active == nil {
		return nil, repository.ErrNoOpenSession
	}

	settings, err := s.resolveSettings(ctx)
	if err != nil {
		return nil, err
	}

	vatRate := settings.DefaultVat
	if req.VatRate != nil {
		vatRate = *req.VatRate
	}

	items, subtotal := buildTicketItems(req.Items)
	tax := subtotal.Mul(vatRate).Div(hundred)
	total := subtotal.Add(tax)

	ticket := &models.Ticket{
		CreatedAt: time.Now().UTC(),
		VatRate:   vatRate,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
	}

	if err := s.repo.CreateTicket(ctx, ticket, items); err != nil {
		if err == repository.ErrNoOpenSession {
			return nil, err
		}
		return nil, fmt.Errorf("error saving ticket: %w", err)
	}

	return &models.CreateTicketResponse{
		TicketID: ticket.ID,
		Ticket: models.TicketReceipt{
			Header:   settings.TicketHeader,
			Footer:   settings.TicketFooter,
			TicketID: ticket.ID,
			Items:    items,
			Totals: models.TicketTotals{
				Subtotal: subtotal,
				Tax:      tax,
				Total:    total,
				VatRate:  vatRate,
			},
		},
	}, nil
}

// buildTicketItems normalizes the raw item inputs into persistable line
// items and returns them with their summed subtotal.
func buildTicketItems(inputs []models.TicketItemInput) ([]models.TicketItem, decimal.Decimal) {
	items := make([]models.TicketItem, 0, len(inputs))
	subtotal := decimal.Zero

	for _, input := range inputs {
		quantity := normalizeQuantity(input.Quantity)
		price := valueOrZero(input.Price)
		discount := valueOrZero(input.Discount)
		line := lineTotal(quantity, price, discount)

		items = append(items, models.TicketItem{
			Reference:   input.Reference,
			Description: input.Description,
			Barcode:     input.Barcode,
			Price:       price,
			Quantity:    quantity,
			Discount:    discount,
			LineTotal:   line,
		})
		subtotal = subtotal.Add(line)
	}

	return items, subtotal
}

// lineTotal is quantity * price * (1 - discount/100)
func lineTotal(quantity, price, discount decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price).Mul(one.Sub(discount.Div(hundred)))
}

// normalizeQuantity defaults an absent quantity to 1 and clamps the
// rest to a minimum of 0.01, so zero or negative input cannot produce
// a free line.
func normalizeQuantity(quantity *decimal.Decimal) decimal.Decimal {
	if quantity == nil {
		return one
	}
	if quantity.LessThan(minQuantity) {
		return minQuantity
	}
	return *quantity
}

func valueOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}
