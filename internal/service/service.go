package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/oscarvm/tpv-server/internal/cache"
	"github.com/oscarvm/tpv-server/internal/models"
	"github.com/oscarvm/tpv-server/internal/repository"
	"github.com/oscarvm/tpv-server/internal/utils"
)

// Validation sentinels mapped to 4xx responses by the API layer.
var (
	ErrInvalidPIN    = errors.New("invalid pin")
	ErrDatesRequired = errors.New("dates required")
	ErrInvalidDate   = errors.New("invalid date")
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Settings
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, req models.SaveSettingsRequest) (*models.Settings, error)

	// Products
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
	ImportProducts(ctx context.Context, req models.ImportProductsRequest) (int, error)

	// Sessions
	OpenSession(ctx context.Context, req models.OpenSessionRequest) (*models.OpenSessionResponse, error)
	SessionStatus(ctx context.Context) (*models.SessionStatusResponse, error)
	CloseSession(ctx context.Context) (*models.CloseSessionResponse, error)

	// Tickets
	CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.CreateTicketResponse, error)
	ExportSales(ctx context.Context, date string) (*models.ExportSalesResponse, error)

	// History
	ClearHistory(ctx context.Context, req models.ClearHistoryRequest) (*models.ClearHistoryResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	products      *cache.ProductCache // nil when Redis is not configured
	logger        *utils.Logger
	jwtSecret     []byte
	pinHash       []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService. products may be nil,
// in which case the catalog is always read from the database.
func NewDefaultService(
	repo repository.Repository,
	products *cache.ProductCache,
	jwtSecret string,
	terminalPIN string,
) (Service, error) {
	pinHash, err := bcrypt.GenerateFromPassword([]byte(terminalPIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing terminal pin: %w", err)
	}

	return &DefaultService{
		repo:          repo,
		products:      products,
		logger:        utils.NewLogger(),
		jwtSecret:     []byte(jwtSecret),
		pinHash:       pinHash,
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}, nil
}

// Login verifies the terminal PIN and issues a session token
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := bcrypt.CompareHashAndPassword(s.pinHash, []byte(req.PIN)); err != nil {
		return nil, ErrInvalidPIN
	}

	token, err := s.generateJWT()
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Helper methods
func (s *DefaultService) generateJWT() (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": "terminal", // single shared terminal identity
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
