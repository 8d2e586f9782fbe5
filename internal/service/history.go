package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oscarvm/tpv-server/internal/models"
)

// ClearHistory deletes tickets (with their items) created in [from, to]
// and closed sessions opened in that range, all in one transaction.
// Open sessions always survive. A range matching nothing still succeeds.
func (s *DefaultService) ClearHistory(ctx context.Context, req models.ClearHistoryRequest) (*models.ClearHistoryResponse, error) {
	if req.From == "" || req.To == "" {
		return nil, ErrDatesRequired
	}
	if _, err := time.Parse(exportDateLayout, req.From); err != nil {
		return nil, ErrInvalidDate
	}
	if _, err := time.Parse(exportDateLayout, req.To); err != nil {
		return nil, ErrInvalidDate
	}

	if err := s.repo.ClearHistory(ctx, req.From, req.To); err != nil {
		return nil, fmt.Errorf("error clearing history: %w", err)
	}

	return &models.ClearHistoryResponse{Cleared: true}, nil
}
