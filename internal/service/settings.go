package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oscarvm/tpv-server/internal/models"
)

// Setting keys and their defaults, resolved in one place so no call
// site carries its own fallback.
const (
	keyPrinterName  = "printerName"
	keyTicketHeader = "ticketHeader"
	keyTicketFooter = "ticketFooter"
	keyDefaultVat   = "defaultVat"
	keyExportPath   = "exportPath"
)

func defaultSettings() models.Settings {
	return models.Settings{
		PrinterName:  "",
		TicketHeader: "Mi tienda",
		TicketFooter: "Gracias por su compra",
		DefaultVat:   decimal.NewFromInt(21),
		ExportPath:   "exports",
	}
}

// GetSettings returns the stored settings with defaults applied for
// absent keys
func (s *DefaultService) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.resolveSettings(ctx)
}

// SaveSettings persists all settings keys, substituting the default for
// any field the caller omitted, and echoes what was saved
func (s *DefaultService) SaveSettings(ctx context.Context, req models.SaveSettingsRequest) (*models.Settings, error) {
	settings := defaultSettings()

	if req.PrinterName != nil {
		settings.PrinterName = *req.PrinterName
	}
	if req.TicketHeader != nil {
		settings.TicketHeader = *req.TicketHeader
	}
	if req.TicketFooter != nil {
		settings.TicketFooter = *req.TicketFooter
	}
	if req.DefaultVat != nil {
		settings.DefaultVat = *req.DefaultVat
	}
	if req.ExportPath != nil {
		settings.ExportPath = *req.ExportPath
	}

	values := map[string]interface{}{
		keyPrinterName:  settings.PrinterName,
		keyTicketHeader: settings.TicketHeader,
		keyTicketFooter: settings.TicketFooter,
		keyDefaultVat:   settings.DefaultVat,
		keyExportPath:   settings.ExportPath,
	}

	for key, value := range values {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("error encoding setting %s: %w", key, err)
		}
		if err := s.repo.SetSetting(ctx, key, string(encoded)); err != nil {
			return nil, fmt.Errorf("error saving setting %s: %w", key, err)
		}
	}

	return &settings, nil
}

// resolveSettings reads every setting key, applying its default when the
// key is absent or its stored value does not decode.
func (s *DefaultService) resolveSettings(ctx context.Context) (*models.Settings, error) {
	settings := defaultSettings()

	if err := s.readSetting(ctx, keyPrinterName, &settings.PrinterName); err != nil {
		return nil, err
	}
	if err := s.readSetting(ctx, keyTicketHeader, &settings.TicketHeader); err != nil {
		return nil, err
	}
	if err := s.readSetting(ctx, keyTicketFooter, &settings.TicketFooter); err != nil {
		return nil, err
	}
	if err := s.readSetting(ctx, keyDefaultVat, &settings.DefaultVat); err != nil {
		return nil, err
	}
	if err := s.readSetting(ctx, keyExportPath, &settings.ExportPath); err != nil {
		return nil, err
	}

	return &settings, nil
}

func (s *DefaultService) readSetting(ctx context.Context, key string, out interface{}) error {
	raw, found, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		return fmt.Errorf("error reading setting %s: %w", key, err)
	}
	if !found {
		return nil
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		// A value written by hand may not be valid JSON; keep the
		// default rather than failing the whole request.
		s.logger.Warn("Discarding unreadable setting %s: %v", key, err)
	}

	return nil
}
