package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarvm/tpv-server/internal/api/testutils"
	"github.com/oscarvm/tpv-server/internal/models"
)

func strPtr(s string) *string { return &s }

func TestSettingsDefaults(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/settings",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "", response.Settings.PrinterName)
	assert.Equal(t, "Mi tienda", response.Settings.TicketHeader)
	assert.Equal(t, "Gracias por su compra", response.Settings.TicketFooter)
	assert.True(t, response.Settings.DefaultVat.Equal(decimal.RequireFromString("21")))
	// The test context overrides exportPath with a temp directory
	assert.Equal(t, testCtx.ExportDir, response.Settings.ExportPath)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	vat := decimal.RequireFromString("10")
	req := models.SaveSettingsRequest{
		PrinterName:  strPtr("EPSON TM-T20"),
		TicketHeader: strPtr("Ultramarinos Paca"),
		TicketFooter: strPtr("Vuelva pronto"),
		DefaultVat:   &vat,
		ExportPath:   strPtr(testCtx.ExportDir),
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/settings",
		req,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var saved models.SaveSettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.True(t, saved.Saved)
	assert.Equal(t, "Ultramarinos Paca", saved.Settings.TicketHeader)

	// The saved values come back on the next read
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/settings",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "EPSON TM-T20", response.Settings.PrinterName)
	assert.Equal(t, "Ultramarinos Paca", response.Settings.TicketHeader)
	assert.Equal(t, "Vuelva pronto", response.Settings.TicketFooter)
	assert.True(t, response.Settings.DefaultVat.Equal(decimal.RequireFromString("10")))

	// The new default VAT now drives ticket totals
	openTestSession(t, testCtx)
	tw := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/tickets",
		models.CreateTicketRequest{
			Items: []models.TicketItemInput{
				{Reference: "X", Price: dec(t, "10"), Quantity: dec(t, "1")},
			},
		},
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)
	require.Equal(t, http.StatusCreated, tw.Code)

	var ticket models.CreateTicketResponse
	require.NoError(t, json.Unmarshal(tw.Body.Bytes(), &ticket))
	assert.True(t, ticket.Ticket.Totals.Tax.Equal(decimal.RequireFromString("1")),
		"tax = %s", ticket.Ticket.Totals.Tax)

	// Omitted fields reset to their defaults on save
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/settings",
		models.SaveSettingsRequest{ExportPath: strPtr(testCtx.ExportDir)},
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/settings",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Mi tienda", response.Settings.TicketHeader)
	assert.True(t, response.Settings.DefaultVat.Equal(decimal.RequireFromString("21")))
}

func TestExportSales(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	openTestSession(t, testCtx)
	createTestTicket(t, testCtx, models.CreateTicketRequest{
		Items: []models.TicketItemInput{
			{Reference: "A", Description: "Widget", Price: dec(t, "10"), Quantity: dec(t, "2")},
		},
	})

	// Defaults to today when no date is given
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sales/export",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.ExportSalesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "referencia,descripcion,unidades\n\"A\",\"Widget\",2", response.CSVContent)

	// A date with no sales yields just the header
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sales/export",
		models.ExportSalesRequest{Date: "1990-01-01"},
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "referencia,descripcion,unidades", response.CSVContent)

	// Malformed date
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sales/export",
		models.ExportSalesRequest{Date: "01-01-1990"},
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
