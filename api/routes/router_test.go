package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/internal/commission"
	pkgAuth "github.com/angelmondragon/vendorledger/pkg/auth"
	"github.com/angelmondragon/vendorledger/pkg/config"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	"github.com/angelmondragon/vendorledger/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCommission struct {
	setCalls int
}

func (s *stubCommission) Current(ctx context.Context) (*commission.Setting, error) {
	return &commission.Setting{Percentage: decimal.NewFromInt(12), IsDefault: false}, nil
}

func (s *stubCommission) SetCurrent(ctx context.Context, input commission.SetCurrentInput) (*commission.Setting, error) {
	s.setCalls++
	return &commission.Setting{Percentage: input.Percentage}, nil
}

func (s *stubCommission) History(ctx context.Context, filter commission.HistoryFilter) ([]commission.Setting, error) {
	return nil, nil
}

func (s *stubCommission) ResetToDefault(ctx context.Context, actor uuid.UUID) (*commission.Setting, error) {
	return &commission.Setting{IsDefault: true}, nil
}

func (s *stubCommission) ResolvePercentage(ctx context.Context, tx *gorm.DB, override *decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not used")
}

func (s *stubCommission) Calculate(ctx context.Context, input commission.CalculateInput) (*commission.Breakdown, error) {
	return nil, errors.New("not used")
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "vendorledger", ExpirationMinutes: 5},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, svc Services) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	return NewRouter(cfg, logg, stubPinger{}, nil, svc), cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router, _ := newTestRouter(t, Services{})

	for _, path := range []string{"/health/live", "/health/ready", "/api/public/ping"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestReadinessSkipsMissingRedis(t *testing.T) {
	router, _ := newTestRouter(t, Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"redis":"skipped"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, Services{Commission: &stubCommission{}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commission", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCommissionReadableByVendor(t *testing.T) {
	router, cfg := newTestRouter(t, Services{Commission: &stubCommission{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commission", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleVendor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"percentage":"12"`)
}

func TestAdminRoutesRejectVendors(t *testing.T) {
	stub := &stubCommission{}
	router, cfg := newTestRouter(t, Services{Commission: stub})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/commission", strings.NewReader(`{"percentage":"5"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleVendor))
	req.Header.Set("Idempotency-Key", "k-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, stub.setCalls)
}

func TestAdminCommissionSetWithoutRedis(t *testing.T) {
	stub := &stubCommission{}
	router, cfg := newTestRouter(t, Services{Commission: stub})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/commission", strings.NewReader(`{"percentage":"5"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, stub.setCalls)
}

func TestMissingServiceReportsInternal(t *testing.T) {
	router, cfg := newTestRouter(t, Services{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payouts", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
