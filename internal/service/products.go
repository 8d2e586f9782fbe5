package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/oscarvm/tpv-server/internal/models"
)

// SearchProducts returns up to 100 catalog rows matching the term as a
// substring of reference, description or barcode. The full listing
// (empty term) is served from the cache when one is configured.
func (s *DefaultService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)

	if term == "" && s.products != nil {
		if products, ok := s.products.GetAll(ctx); ok {
			return products, nil
		}
	}

	products, err := s.repo.SearchProducts(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("error searching products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	if term == "" && s.products != nil {
		if err := s.products.SetAll(ctx, products); err != nil {
			s.logger.Warn("Failed to populate product cache: %v", err)
		}
	}

	return products, nil
}

// ImportProducts upserts catalog rows by reference, skipping rows with
// an empty reference or a non-positive price. The returned count covers
// only the rows that passed both checks.
func (s *DefaultService) ImportProducts(ctx context.Context, req models.ImportProductsRequest) (int, error) {
	imported := 0

	for _, row := range req.Items {
		product := models.Product{
			Reference:   strings.TrimSpace(row.Reference),
			Description: strings.TrimSpace(row.Description),
			Barcode:     strings.TrimSpace(row.Barcode),
			Price:       row.Price,
		}
		if product.Reference == "" || !product.Price.IsPositive() {
			continue
		}

		if err := s.repo.UpsertProduct(ctx, &product); err != nil {
			return 0, fmt.Errorf("error importing product %s: %w", product.Reference, err)
		}
		imported++
	}

	if s.products != nil {
		if err := s.products.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate product cache: %v", err)
		}
	}

	return imported, nil
}
