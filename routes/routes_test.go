package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"posterminal/auth"
	"posterminal/catalog"
	"posterminal/controllers"
	"posterminal/ledger"
	"posterminal/middleware"
	"posterminal/models"
	"posterminal/store"
	"posterminal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	metrics *middleware.Metrics
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	backend := store.NewMemory()

	signer, err := utils.NewTokenSigner("routes-test-secret-value")
	require.NoError(t, err)
	sessions, err := auth.NewSessionStore(backend, signer, time.Hour)
	require.NoError(t, err)

	hash, err := utils.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	users := auth.NewUsers([]models.User{{Username: "dev", PasswordHash: hash}})

	items := catalog.NewManager(backend, log)
	metrics := middleware.NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	InitializeRoutes(r, Handlers{
		Gate:         auth.NewGate(sessions),
		LoginLimiter: middleware.NewRateLimiter(600, 100),
		Auth:         controllers.NewAuthController(users, sessions, false, log),
		Items:        controllers.NewItemController(items, log),
		Orders:       controllers.NewOrderController(ledger.New(backend, items, log), metrics, log),
	})
	return &testServer{router: r, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: s.token})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "dev", "password": "secret"})
	require.Equal(t, http.StatusOK, code)
	s.token = body["token"].(string)
	require.NotEmpty(t, s.token)
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	code, body := s.do(t, http.MethodPost, "/api/items", gin.H{"name": "Tea", "price": "3.50"})
	require.Equal(t, http.StatusCreated, code)
	itemID := body["product"].(map[string]any)["id"].(float64)

	code, body = s.do(t, http.MethodPost, "/api/orders", gin.H{"items": []gin.H{
		{"itemId": itemID, "quantity": 2},
		{"name": "Bread", "price": "1.25", "quantity": 1, "note": "warm"},
	}})
	require.Equal(t, http.StatusCreated, code)
	order := body["order"].(map[string]any)
	assert.Equal(t, "8.25", order["total"])
	assert.Equal(t, "dev", order["createdBy"])
	orderPath := "/api/orders/1"

	code, body = s.do(t, http.MethodPut, orderPath+"/total", gin.H{"total": "8"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "8", body["order"].(map[string]any)["total"])

	code, body = s.do(t, http.MethodPut, orderPath+"/discount", gin.H{"percentage": 10})
	require.Equal(t, http.StatusOK, code)
	order = body["order"].(map[string]any)
	assert.Equal(t, "7.43", order["total"])
	assert.Equal(t, "8.25", order["originalTotal"])

	code, _ = s.do(t, http.MethodPost, orderPath+"/complete", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.OrdersCompleted))

	code, body = s.do(t, http.MethodPost, orderPath+"/complete", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", body["code"])

	code, body = s.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["orders"])

	code, body = s.do(t, http.MethodGet, "/api/completed-orders?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	history := body["orders"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "completed", history[0].(map[string]any)["status"])
}

func TestItemLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	code, body := s.do(t, http.MethodPost, "/api/items", gin.H{"name": "Soup"})
	assert.Equal(t, http.StatusBadRequest, code, "price is required")
	assert.Equal(t, "invalid_argument", body["code"])

	code, body = s.do(t, http.MethodPost, "/api/items", gin.H{"name": "Soup", "price": "4"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "001", body["product"].(map[string]any)["number"])

	code, _ = s.do(t, http.MethodDelete, "/api/items/1", nil)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/api/deleted-items", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 1)

	code, _ = s.do(t, http.MethodPost, "/api/orders", gin.H{"items": []gin.H{{"itemId": 1, "quantity": 1}}})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodDelete, "/api/deleted-items/1", nil)
	assert.Equal(t, http.StatusBadRequest, code, "purge needs confirm=true")

	code, _ = s.do(t, http.MethodPost, "/api/deleted-items/1/restore", nil)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodDelete, "/api/deleted-items/1?confirm=true", nil)
	assert.Equal(t, http.StatusConflict, code, "active items cannot be purged")
	assert.Equal(t, "invalid_state", body["code"])

	code, _ = s.do(t, http.MethodGet, "/api/items/99", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProtectedRoutesRejectUniformly(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/items"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/completed-orders"},
		{http.MethodGet, "/api/auth/verify"},
	} {
		s.token = ""
		code, body := s.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, code, tc.path)
		assert.Equal(t, gin.H{"error": "unauthenticated"}, gin.H(body), tc.path)

		s.token = "not-a-token"
		code, body = s.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, code, tc.path)
		assert.Equal(t, gin.H{"error": "unauthenticated"}, gin.H(body), tc.path)
	}
}

func TestLoginLogout(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "dev", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	s.login(t)
	code, body := s.do(t, http.MethodGet, "/api/auth/verify", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dev", body["username"])

	code, _ = s.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/auth/verify", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
