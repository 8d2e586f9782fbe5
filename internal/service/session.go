package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oscarvm/tpv-server/internal/models"
	"github.com/oscarvm/tpv-server/internal/repository"
)

// OpenSession opens a new cash-register session. When one is already
// open it reports that back as an informational response, not an error.
func (s *DefaultService) OpenSession(ctx context.Context, req models.OpenSessionRequest) (*models.OpenSessionResponse, error) {
	active, err := s.repo.GetActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting active session: %w", err)
	}
	if active != nil {
		return alreadyOpenResponse(active.ID), nil
	}

	openingCash := valueOrZero(req.OpeningCash)

	session, err := s.repo.OpenSession(ctx, time.Now().UTC(), openingCash)
	if err != nil {
		if err == repository.ErrSessionAlreadyOpen {
			// Lost the race against a concurrent open; report the
			// winner's session.
			if active, lookupErr := s.repo.GetActiveSession(ctx); lookupErr == nil && active != nil {
				return alreadyOpenResponse(active.ID), nil
			}
			return alreadyOpenResponse(0), nil
		}
		return nil, fmt.Errorf("error opening session: %w", err)
	}

	return &models.OpenSessionResponse{SessionID: session.ID}, nil
}

func alreadyOpenResponse(sessionID int64) *models.OpenSessionResponse {
	return &models.OpenSessionResponse{
		SessionID:   sessionID,
		AlreadyOpen: true,
		Message:     "A session is already open",
	}
}

// SessionStatus reports whether a session is open and which one
func (s *DefaultService) SessionStatus(ctx context.Context) (*models.SessionStatusResponse, error) {
	active, err := s.repo.GetActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting active session: %w", err)
	}

	status := &models.SessionStatusResponse{Open: active != nil}
	if active != nil {
		status.SessionID = &active.ID
	}

	return status, nil
}

// CloseSession aggregates the open session's tickets, marks it closed
// and writes the sales CSV. The close itself is transactional; the CSV
// file write is best-effort and surfaced in the response when it fails.
func (s *DefaultService) CloseSession(ctx context.Context) (*models.CloseSessionResponse, error) {
	settings, err := s.resolveSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportFile := exportFilename(settings.ExportPath, now)

	result, err := s.repo.CloseActiveSession(ctx, now.UTC(), exportFile)
	if err != nil {
		if err == repository.ErrNoOpenSession {
			return nil, err
		}
		return nil, fmt.Errorf("error closing session: %w", err)
	}

	csvContent := buildClosingCSV(result.Summary)

	response := &models.CloseSessionResponse{
		Closed:     true,
		Summary:    result.Summary,
		Total:      result.Totals.Total,
		ExportFile: exportFile,
		CSVContent: csvContent,
		ClosingTicket: models.ClosingTicket{
			Header:     settings.TicketHeader,
			Footer:     settings.TicketFooter,
			Total:      result.Totals.Total,
			Base:       result.Totals.Subtotal,
			Tax:        result.Totals.Tax,
			VatRate:    effectiveVatRate(result.Totals.Tax, result.Totals.Subtotal, settings.DefaultVat),
			ExportFile: exportFile,
		},
	}

	if err := s.writeExportFile(exportFile, csvContent); err != nil {
		s.logger.Error("Failed to write closing export %s: %v", exportFile, err)
		response.ExportError = err.Error()
	}

	return response, nil
}

// effectiveVatRate is the blended rate tax/base*100 rounded to two
// decimals; with an empty session it falls back to the default VAT.
func effectiveVatRate(tax, base, defaultVat decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return defaultVat
	}
	return tax.Div(base).Mul(hundred).Round(2)
}
