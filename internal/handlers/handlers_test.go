package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitefolio/internal/auth"
	"kitefolio/internal/cache"
	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/middleware"
	"kitefolio/internal/models"
	"kitefolio/internal/services"
	"kitefolio/web"
)

type fakeSource struct {
	entry        *cache.Entry
	err          error
	getCalls     int
	refreshCalls int
}

func (f *fakeSource) Get(context.Context) (*cache.Entry, error) {
	f.getCalls++
	return f.entry, f.err
}

func (f *fakeSource) Refresh(context.Context) (*cache.Entry, error) {
	f.refreshCalls++
	return f.entry, f.err
}

func (f *fakeSource) Peek() *cache.Entry { return f.entry }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleEntry() *cache.Entry {
	return &cache.Entry{
		Snapshot: &models.Snapshot{Holdings: []models.Holding{
			models.Holding{Symbol: "INFY", Quantity: 10, AveragePrice: dec("1500"), LastPrice: dec("1650"), PnL: dec("1500")}.WithDerived(),
			models.Holding{Symbol: "TCS", Quantity: 2, AveragePrice: dec("3000"), LastPrice: dec("2850"), PnL: dec("-300")}.WithDerived(),
		}},
		FetchedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		TTL:       4 * time.Hour,
	}
}

func newTestDeps(t *testing.T, src SnapshotSource) *Dependencies {
	t.Helper()

	templates, err := web.ParseTemplates(TemplateFuncs())
	require.NoError(t, err)

	gate, err := auth.NewGate("hunter2")
	require.NoError(t, err)
	sm := auth.NewSessionManager()

	return NewDependencies().
		WithLogger(zerolog.Nop()).
		WithTemplates(templates).
		WithGate(gate, sm, middleware.NewGateMiddleware(sm, false)).
		WithHoldings(src).
		WithAuditService(services.NewAuditService(zerolog.Nop(), 10))
}

func TestDashboard_RendersHoldings(t *testing.T) {
	src := &fakeSource{entry: sampleEntry()}
	h := NewDashboardHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := html.UnescapeString(rec.Body.String())
	assert.Contains(t, body, "INFY")
	assert.Contains(t, body, "TCS")
	assert.Contains(t, body, "₹21,000.00")
	assert.Contains(t, body, "₹22,200.00")
	assert.Contains(t, body, "+5.71%")
	assert.Contains(t, body, "16500.00")
	assert.Contains(t, body, "Last updated: 2024-03-01 09:30:00")
	assert.NotContains(t, body, "Could not retrieve")
	assert.NotContains(t, body, "/qr.png")
}

func TestDashboard_FailureShowsWarning(t *testing.T) {
	src := &fakeSource{err: apperrors.Automation("login page did not load", context.DeadlineExceeded)}
	h := NewDashboardHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Could not retrieve portfolio data. Please try refreshing.")
	assert.Contains(t, body, "login page did not load")
	assert.NotContains(t, body, "context deadline exceeded")
}

func TestDashboard_EmptySnapshotShowsWarning(t *testing.T) {
	src := &fakeSource{entry: &cache.Entry{Snapshot: &models.Snapshot{}, FetchedAt: time.Now(), TTL: time.Hour}}
	h := NewDashboardHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not retrieve portfolio data")
}

func TestRefresh_RedirectsOnSuccess(t *testing.T) {
	src := &fakeSource{entry: sampleEntry()}
	deps := newTestDeps(t, src)
	h := NewDashboardHandler(deps)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, 1, src.refreshCalls)
	assert.Zero(t, src.getCalls)

	recent := deps.AuditService.GetRecent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, services.AuditPortfolioRefreshed, recent[0].Action)
}

func TestRefresh_FailureRendersWithoutRefetch(t *testing.T) {
	src := &fakeSource{err: apperrors.Upstream("could not fetch holdings", context.Canceled)}
	h := NewDashboardHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not fetch holdings")
	assert.Equal(t, 1, src.refreshCalls)
	assert.Zero(t, src.getCalls)
}

func TestRefreshLimited_RendersLastSnapshot(t *testing.T) {
	src := &fakeSource{entry: sampleEntry()}
	h := NewDashboardHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.RefreshLimited(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil), middleware.ErrTooManyRequests)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := html.UnescapeString(rec.Body.String())
	assert.Contains(t, body, "Refresh limited, try again shortly.")
	assert.Contains(t, body, "INFY")
	assert.Zero(t, src.getCalls)
	assert.Zero(t, src.refreshCalls)
}

func TestRefreshLimited_ThroughLimiter(t *testing.T) {
	src := &fakeSource{entry: sampleEntry()}
	h := NewDashboardHandler(newTestDeps(t, src))

	limiter := middleware.NewRateLimiter(0.01, 1)
	defer limiter.Close()
	limiter.Reject = h.RefreshLimited
	handler := limiter.Limit(http.HandlerFunc(h.Refresh))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusSeeOther, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, src.refreshCalls)
}

func TestGetHoldings(t *testing.T) {
	src := &fakeSource{entry: sampleEntry()}
	h := NewPortfolioHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.GetHoldings(rec, httptest.NewRequest(http.MethodGet, "/api/holdings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HoldingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Holdings, 2)
	assert.Equal(t, "INFY", resp.Holdings[0].Symbol)
	assert.True(t, resp.Summary.TotalInvested.Equal(dec("21000")))
	assert.True(t, resp.Summary.PnL.Equal(dec("1200")))
	require.NotNil(t, resp.Composition.TopHolding)
	assert.Equal(t, "INFY", resp.Composition.TopHolding.Symbol)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC), resp.ExpiresAt.UTC())
}

func TestGetHoldings_Failure(t *testing.T) {
	src := &fakeSource{err: apperrors.Automation("redirect not observed", context.DeadlineExceeded)}
	h := NewPortfolioHandler(newTestDeps(t, src))

	rec := httptest.NewRecorder()
	h.GetHoldings(rec, httptest.NewRequest(http.MethodGet, "/api/holdings", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "redirect not observed", body["error"])
}

func TestQRCode(t *testing.T) {
	deps := newTestDeps(t, &fakeSource{})
	h := NewToolsHandler(deps)

	rec := httptest.NewRecorder()
	h.QRCode(rec, httptest.NewRequest(http.MethodGet, "/qr.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	deps.WithDashboardURL("https://folio.example")
	rec = httptest.NewRecorder()
	h.QRCode(rec, httptest.NewRequest(http.MethodGet, "/qr.png", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestHealth(t *testing.T) {
	h := NewToolsHandler(newTestDeps(t, &fakeSource{}))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		password string
		status   int
		message  string
	}{
		{"empty password", "", http.StatusBadRequest, "Password is required"},
		{"wrong password", "letmein", http.StatusUnauthorized, "Incorrect password"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(newTestDeps(t, &fakeSource{}))

			rec := httptest.NewRecorder()
			h.Login(rec, postForm("/login", url.Values{"password": {tc.password}}))

			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, rec.Body.String(), tc.message)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestLogin_SuccessStartsSession(t *testing.T) {
	deps := newTestDeps(t, &fakeSource{})
	h := NewAuthHandler(deps)

	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", url.Values{"password": {"hunter2"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NoError(t, deps.SessionManager.Validate(cookies[0].Value))

	recent := deps.AuditService.GetRecent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, services.AuditGateLogin, recent[0].Action)
}

func TestLogout(t *testing.T) {
	deps := newTestDeps(t, &fakeSource{})
	h := NewAuthHandler(deps)

	session, err := deps.SessionManager.Create()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session.ID})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Error(t, deps.SessionManager.Validate(session.ID))
}

func TestLoginPage(t *testing.T) {
	h := NewAuthHandler(newTestDeps(t, &fakeSource{}))

	rec := httptest.NewRecorder()
	h.LoginPage(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password"`)
	assert.NotContains(t, rec.Body.String(), "Log out")
}
