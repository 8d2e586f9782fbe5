package api_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarvm/tpv-server/internal/api/testutils"
	"github.com/oscarvm/tpv-server/internal/models"
)

func createTestTicket(t *testing.T, testCtx *testutils.TestContext, req models.CreateTicketRequest) {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/tickets",
		req,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestCloseSessionAggregation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	openTestSession(t, testCtx)

	// Two tickets selling the same product: 2 units at full price and
	// 1 unit with a 10% discount.
	createTestTicket(t, testCtx, models.CreateTicketRequest{
		Items: []models.TicketItemInput{
			{Reference: "A", Description: "Widget", Price: dec(t, "10"), Quantity: dec(t, "2"), Discount: dec(t, "0")},
		},
		VatRate: dec(t, "0"),
	})
	createTestTicket(t, testCtx, models.CreateTicketRequest{
		Items: []models.TicketItemInput{
			{Reference: "A", Description: "Widget", Price: dec(t, "10"), Quantity: dec(t, "1"), Discount: dec(t, "10")},
		},
		VatRate: dec(t, "0"),
	})

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sessions/close",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CloseSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Closed)
	assert.Empty(t, response.ExportError)

	require.Len(t, response.Summary, 1)
	row := response.Summary[0]
	assert.Equal(t, "A", row.Reference)
	assert.True(t, row.Units.Equal(decimal.RequireFromString("3")), "units = %s", row.Units)
	assert.True(t, row.Revenue.Equal(decimal.RequireFromString("29.00")), "revenue = %s", row.Revenue)
	assert.True(t, response.Total.Equal(decimal.RequireFromString("29.00")))

	// CSV content: exact header, quoted fields, revenue to 2 decimals
	lines := strings.Split(response.CSVContent, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "referencia,descripcion,unidades,ingresos", lines[0])
	assert.Equal(t, `"A","Widget",3,29.00`, lines[1])

	// The export file exists under the configured directory and holds
	// the same CSV the response returned
	assert.Equal(t, testCtx.ExportDir, filepath.Dir(response.ExportFile))
	name := filepath.Base(response.ExportFile)
	assert.True(t, strings.HasPrefix(name, "ventas_"), "filename = %s", name)
	assert.True(t, strings.HasSuffix(name, ".csv"))

	written, err := os.ReadFile(response.ExportFile)
	require.NoError(t, err)
	assert.Equal(t, response.CSVContent, string(written))

	// Closing again fails cleanly without touching the closed session
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sessions/close",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var closedCount int
	require.NoError(t, testCtx.DB.Get(&closedCount, "SELECT COUNT(*) FROM sessions WHERE closed_at IS NOT NULL"))
	assert.Equal(t, 1, closedCount)
}

func TestCloseSessionEndToEnd(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	openTestSession(t, testCtx)

	createTestTicket(t, testCtx, models.CreateTicketRequest{
		Items: []models.TicketItemInput{
			{Reference: "X", Price: dec(t, "5"), Quantity: dec(t, "2"), Discount: dec(t, "0")},
		},
		VatRate: dec(t, "21"),
	})

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sessions/close",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CloseSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.True(t, response.Total.Equal(decimal.RequireFromString("12.10")), "total = %s", response.Total)

	ticket := response.ClosingTicket
	assert.True(t, ticket.Base.Equal(decimal.RequireFromString("10.00")), "base = %s", ticket.Base)
	assert.True(t, ticket.Tax.Equal(decimal.RequireFromString("2.10")), "tax = %s", ticket.Tax)
	assert.True(t, ticket.VatRate.Equal(decimal.RequireFromString("21.00")), "vatRate = %s", ticket.VatRate)
	assert.True(t, ticket.Total.Equal(decimal.RequireFromString("12.10")))
	assert.Equal(t, "Mi tienda", ticket.Header)
	assert.Equal(t, "Gracias por su compra", ticket.Footer)
	assert.Equal(t, response.ExportFile, ticket.ExportFile)

	require.Len(t, response.Summary, 1)
	assert.Equal(t, "X", response.Summary[0].Reference)
	assert.True(t, response.Summary[0].Units.Equal(decimal.RequireFromString("2")))
	assert.True(t, response.Summary[0].Revenue.Equal(decimal.RequireFromString("10.00")))
}

func TestCloseEmptySession(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	openTestSession(t, testCtx)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sessions/close",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CloseSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Closed)
	assert.Empty(t, response.Summary)
	assert.True(t, response.Total.IsZero())
	// No tickets: the effective rate falls back to the default VAT
	assert.True(t, response.ClosingTicket.VatRate.Equal(decimal.RequireFromString("21")))
	assert.Equal(t, "referencia,descripcion,unidades,ingresos", response.CSVContent)
}

// Tickets with different VAT rates close into a blended effective rate.
func TestCloseSessionBlendedVatRate(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	openTestSession(t, testCtx)

	createTestTicket(t, testCtx, models.CreateTicketRequest{
		Items: []models.TicketItemInput{
			{Reference: "A", Price: dec(t, "100"), Quantity: dec(t, "1"), Discount: dec(t, "0")},
		},
		VatRate: dec(t, "21"),
	})
	createTestTicket(t, testCtx, models.CreateTicketRequest{
		Items: []models.TicketItemInput{
			{Reference: "B", Price: dec(t, "100"), Quantity: dec(t, "1"), Discount: dec(t, "0")},
		},
		VatRate: dec(t, "10"),
	})

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/sessions/close",
		nil,
		testutils.AuthHeaders(testCtx.TerminalJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CloseSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	// base 200, tax 31 -> 15.5%
	assert.True(t, response.ClosingTicket.VatRate.Equal(decimal.RequireFromString("15.5")),
		"vatRate = %s", response.ClosingTicket.VatRate)
}
