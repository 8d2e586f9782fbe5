package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oscarvm/tpv-server/internal/models"
	"github.com/oscarvm/tpv-server/internal/repository"
	"github.com/oscarvm/tpv-server/internal/service"
)

// Handler holds the service used by the API endpoints
type Handler struct {
	service service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{service: svc}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(RequestIDMiddleware())

	api := router.Group("/api")
	api.POST("/login", h.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware())
	{
		protected.GET("/settings", h.GetSettings)
		protected.POST("/settings", h.SaveSettings)
		protected.GET("/products", h.Products)
		protected.POST("/products/import", h.ImportProducts)
		protected.POST("/sessions/open", h.OpenSession)
		protected.GET("/sessions/status", h.SessionStatus)
		protected.POST("/sessions/close", h.CloseSession)
		protected.POST("/tickets", h.CreateTicket)
		protected.POST("/sales/export", h.ExportSales)
		protected.POST("/history/clear", h.ClearHistory)
	}
}

// Login handles POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "PIN is required"})
		return
	}

	response, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetSettings handles GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Could not load settings")
		return
	}

	c.JSON(http.StatusOK, models.SettingsResponse{Settings: *settings})
}

// SaveSettings handles POST /api/settings
func (h *Handler) SaveSettings(c *gin.Context) {
	var req models.SaveSettingsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid settings payload"})
		return
	}

	settings, err := h.service.SaveSettings(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Could not save settings")
		return
	}

	c.JSON(http.StatusOK, models.SaveSettingsResponse{Saved: true, Settings: *settings})
}

// Products handles GET /api/products
func (h *Handler) Products(c *gin.Context) {
	products, err := h.service.SearchProducts(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err, "Could not search products")
		return
	}

	c.JSON(http.StatusOK, models.ProductsResponse{Products: products})
}

// ImportProducts handles POST /api/products/import
func (h *Handler) ImportProducts(c *gin.Context) {
	var req models.ImportProductsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid import payload"})
		return
	}

	imported, err := h.service.ImportProducts(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Could not import products")
		return
	}

	c.JSON(http.StatusOK, models.ImportProductsResponse{Imported: imported})
}

// OpenSession handles POST /api/sessions/open
func (h *Handler) OpenSession(c *gin.Context) {
	var req models.OpenSessionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid session payload"})
		return
	}

	response, err := h.service.OpenSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Could not open session")
		return
	}

	c.JSON(http.StatusOK, response)
}

// SessionStatus handles GET /api/sessions/status
func (h *Handler) SessionStatus(c *gin.Context) {
	status, err := h.service.SessionStatus(c.Request.Context())
	if err != nil {
		respondError(c, err, "Could not read session status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// CreateTicket handles POST /api/tickets
func (h *Handler) CreateTicket(c *gin.Context) {
	var req models.CreateTicketRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid ticket payload"})
		return
	}

	response, err := h.service.CreateTicket(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Could not save ticket")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// CloseSession handles POST /api/sessions/close
func (h *Handler) CloseSession(c *gin.Context) {
	response, err := h.service.CloseSession(c.Request.Context())
	if err != nil {
		respondError(c, err, "Could not close session")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ExportSales handles POST /api/sales/export
func (h *Handler) ExportSales(c *gin.Context) {
	var req models.ExportSalesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid export payload"})
		return
	}

	response, err := h.service.ExportSales(c.Request.Context(), req.Date)
	if err != nil {
		respondError(c, err, "Could not export sales")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ClearHistory handles POST /api/history/clear
func (h *Handler) ClearHistory(c *gin.Context) {
	var req models.ClearHistoryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid history payload"})
		return
	}

	response, err := h.service.ClearHistory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Could not clear history")
		return
	}

	c.JSON(http.StatusOK, response)
}

// bindOptionalJSON decodes the request body into out, treating an empty
// body as an empty request rather than an error.
func bindOptionalJSON(c *gin.Context, out interface{}) error {
	err := c.ShouldBindJSON(out)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// respondError maps service errors onto the API error taxonomy:
// precondition failures become 400s with a message, everything else a
// 500 carrying the underlying detail.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNoOpenSession):
		c.JSON(http.StatusBadRequest, models.APIError{Error: "No open session"})
	case errors.Is(err, service.ErrDatesRequired):
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Both from and to dates are required"})
	case errors.Is(err, service.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Invalid date, expected YYYY-MM-DD"})
	case errors.Is(err, service.ErrInvalidPIN):
		c.JSON(http.StatusUnauthorized, models.APIError{Error: "Invalid PIN"})
	default:
		c.JSON(http.StatusInternalServerError, models.APIError{Error: fallback, Details: err.Error()})
	}
}
