package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oscarvm/tpv-server/internal/models"
)

const (
	csvClosingHeader = "referencia,descripcion,unidades,ingresos"
	csvSalesHeader   = "referencia,descripcion,unidades"
	exportDateLayout = "2006-01-02"
)

// ExportSales builds the ad hoc CSV of units sold on a calendar date.
// Read-only: nothing is written to disk.
func (s *DefaultService) ExportSales(ctx context.Context, date string) (*models.ExportSalesResponse, error) {
	if date == "" {
		date = time.Now().Format(exportDateLayout)
	}
	if _, err := time.Parse(exportDateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}

	rows, err := s.repo.SalesByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("error exporting sales: %w", err)
	}

	return &models.ExportSalesResponse{CSVContent: buildSalesCSV(rows)}, nil
}

// exportFilename is ventas_<YYYYMMDD>_<HHMMSS>.csv under the export
// directory
func exportFilename(exportDir string, now time.Time) string {
	return filepath.Join(exportDir, fmt.Sprintf("ventas_%s.csv", now.Format("20060102_150405")))
}

func (s *DefaultService) writeExportFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o775); err != nil {
		return fmt.Errorf("error creating export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("error writing export file: %w", err)
	}
	return nil
}

// buildClosingCSV renders the closing summary: reference and description
// double-quoted, units unrounded, revenue with exactly two decimals.
func buildClosingCSV(rows []models.SummaryRow) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, csvClosingHeader)
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("\"%s\",\"%s\",%s,%s",
			row.Reference, row.Description, row.Units.String(), row.Revenue.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

func buildSalesCSV(rows []models.SalesRow) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, csvSalesHeader)
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("\"%s\",\"%s\",%s",
			row.Reference, row.Description, row.Units.String()))
	}
	return strings.Join(lines, "\n")
}
