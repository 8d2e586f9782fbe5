package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oscarvm/tpv-server/internal/api"
	"github.com/oscarvm/tpv-server/internal/config"
	"github.com/oscarvm/tpv-server/internal/repository"
	"github.com/oscarvm/tpv-server/internal/service"
)

// TestPIN is the terminal PIN used by the test service
const TestPIN = "0000"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repository  repository.Repository
	Service     service.Service
	JWTSecret   []byte
	DB          *sqlx.DB
	TerminalJWT string
	ExportDir   string
}

// SetupTestContext creates a new test context with initialized dependencies
func SetupTestContext(t *testing.T) *TestContext {
	decimal.MarshalJSONWithoutQuotes = true

	// Load configuration from environment
	cfg := config.LoadConfig()

	// Override with test-specific config
	if cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else {
		cfg.Database.DBName = "tpv_test"
	}

	// Use a test JWT secret
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	// Set up database
	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err, "Failed to set up test database")

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service; the product cache stays nil so tests do not need Redis
	svc, err := service.NewDefaultService(repo, nil, cfg.Auth.JWTSecret, TestPIN)
	require.NoError(t, err, "Failed to create service")

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	testCtx := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		DB:         db,
		ExportDir:  t.TempDir(),
	}

	cleanupTestDatabase(t, testCtx)
	testCtx.TerminalJWT = issueTerminalToken(t, cfg.Auth.JWTSecret)

	// Point CSV exports at a throwaway directory
	saveExportDir(t, testCtx)

	return testCtx
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	if t.DB != nil {
		cleanupTestDatabase(nil, t)
		t.DB.Close()
	}
}

// cleanupTestDatabase removes any existing test data
func cleanupTestDatabase(t *testing.T, testCtx *TestContext) {
	tables := []string{"ticket_items", "tickets", "sessions", "products", "settings"}
	for _, table := range tables {
		_, err := testCtx.DB.Exec("DELETE FROM " + table)
		if t != nil && err != nil {
			t.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}
}

// issueTerminalToken signs a token the auth middleware accepts
func issueTerminalToken(t *testing.T, jwtSecret string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "terminal",
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err, "Failed to generate JWT token")

	return tokenString
}

// saveExportDir stores the test export directory in settings so close
// writes its CSV under t.TempDir()
func saveExportDir(t *testing.T, testCtx *TestContext) {
	encoded, err := json.Marshal(testCtx.ExportDir)
	require.NoError(t, err)

	_, err = testCtx.DB.Exec(
		`INSERT INTO settings (key, value) VALUES ('exportPath', $1)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		string(encoded))
	require.NoError(t, err, "Failed to set test export directory")
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
