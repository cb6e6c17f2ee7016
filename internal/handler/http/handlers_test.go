package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/netmon"
	"github.com/PrabinKa/ShipMate/internal/reconcile"
	"github.com/PrabinKa/ShipMate/internal/session"
	"github.com/PrabinKa/ShipMate/internal/storage"
	"github.com/PrabinKa/ShipMate/internal/tracking"
	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
	"github.com/PrabinKa/ShipMate/pkg/health"
)

type fakeOrderService struct {
	createFn func(draft domain.Draft) (domain.Order, error)
	listFn   func() ([]domain.Order, error)
	sweepFn  func() (*reconcile.Report, error)
}

func (f *fakeOrderService) CreateOrder(_ context.Context, draft domain.Draft) (domain.Order, error) {
	return f.createFn(draft)
}

func (f *fakeOrderService) ListOrders(context.Context) ([]domain.Order, error) {
	return f.listFn()
}

func (f *fakeOrderService) SweepPending(context.Context) (*reconcile.Report, error) {
	return f.sweepFn()
}

type fakeAuth struct {
	loginFn func(username, password string) (session.Credentials, error)
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (session.Credentials, error) {
	return f.loginFn(username, password)
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	region, err := storage.Open(filepath.Join(t.TempDir(), "agent.db"), "test-passphrase", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = region.Close() })

	sess, err := session.Load(region, slog.Default())
	require.NoError(t, err)
	return sess
}

func testTracker(t *testing.T) *tracking.Tracker {
	t.Helper()
	region, err := storage.Open(filepath.Join(t.TempDir(), "tracker.db"), "test-passphrase", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = region.Close() })
	return tracking.New(region, slog.Default())
}

func newTestRouter(t *testing.T, svc OrderService, auth Authenticator, monitor *netmon.Monitor) (http.Handler, *session.Session, *tracking.Tracker) {
	t.Helper()
	logger := slog.Default()
	sess := testSession(t)
	tracker := testTracker(t)

	router := NewRouter(
		NewOrderHandler(svc, logger),
		NewSessionHandler(auth, sess, logger),
		NewConnectivityHandler(monitor, logger),
		NewTrackingHandler(tracker, logger),
		health.NewHandler(),
		logger,
	)
	return router, sess, tracker
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderEndpoint(t *testing.T) {
	svc := &fakeOrderService{createFn: func(draft domain.Draft) (domain.Order, error) {
		return domain.Order{
			LocalID:       "local-1",
			Code:          "ORD-1700000000000",
			RecipientName: draft.RecipientName,
			SyncState:     domain.SyncPending,
		}, nil
	}}
	router, _, _ := newTestRouter(t, svc, &fakeAuth{}, netmon.New(false, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/orders",
		`{"recipient_name":"Asha","recipient_address":"Patan","recipient_contact":"980",
		  "payment_method":"COD","payment_status":"Pending"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "local-1", resp.Data.LocalID)
	assert.Equal(t, "Asha", resp.Data.RecipientName)
}

func TestCreateOrderEndpointValidationError(t *testing.T) {
	svc := &fakeOrderService{createFn: func(domain.Draft) (domain.Order, error) {
		return domain.Order{}, apperrors.InvalidInput("recipient_name is required")
	}}
	router, _, _ := newTestRouter(t, svc, &fakeAuth{}, netmon.New(false, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/orders", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestListOrdersEndpoint(t *testing.T) {
	svc := &fakeOrderService{listFn: func() ([]domain.Order, error) {
		return []domain.Order{{LocalID: "local-1"}, {ServerID: "srv-2"}}, nil
	}}
	router, _, _ := newTestRouter(t, svc, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestListOrdersEndpointSessionExpired(t *testing.T) {
	svc := &fakeOrderService{listFn: func() ([]domain.Order, error) {
		return nil, apperrors.SessionExpired(errors.New("refresh rejected"))
	}}
	router, _, _ := newTestRouter(t, svc, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_EXPIRED")
}

func TestSyncEndpoint(t *testing.T) {
	svc := &fakeOrderService{sweepFn: func() (*reconcile.Report, error) {
		return &reconcile.Report{Synced: 2, Outcomes: []reconcile.OrderOutcome{
			{LocalID: "local-1", Outcome: reconcile.OutcomeSynced},
			{LocalID: "local-2", Outcome: reconcile.OutcomeSynced},
		}}, nil
	}}
	router, _, _ := newTestRouter(t, svc, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/orders/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"synced":2`)
}

func TestSyncEndpointDroppedTrigger(t *testing.T) {
	svc := &fakeOrderService{sweepFn: func() (*reconcile.Report, error) {
		return nil, nil
	}}
	router, _, _ := newTestRouter(t, svc, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/orders/sync", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")
}

func TestLoginEndpoint(t *testing.T) {
	auth := &fakeAuth{loginFn: func(username, password string) (session.Credentials, error) {
		require.Equal(t, "driver1", username)
		require.Equal(t, "secret", password)
		return session.Credentials{Access: "acc-1", Refresh: "ref-1"}, nil
	}}
	router, sess, _ := newTestRouter(t, &fakeOrderService{}, auth, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/session/login",
		`{"username":"driver1","password":"secret"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, session.Credentials{Access: "acc-1", Refresh: "ref-1"}, sess.Get())
}

func TestLoginEndpointRejectsMissingFields(t *testing.T) {
	router, _, _ := newTestRouter(t, &fakeOrderService{}, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/session/login", `{"username":"driver1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestLoginEndpointInvalidCredentials(t *testing.T) {
	auth := &fakeAuth{loginFn: func(string, string) (session.Credentials, error) {
		return session.Credentials{}, apperrors.Unauthorized("invalid credentials")
	}}
	router, sess, _ := newTestRouter(t, &fakeOrderService{}, auth, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodPost, "/api/v1/session/login",
		`{"username":"driver1","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, sess.Authenticated())
}

func TestLogoutEndpoint(t *testing.T) {
	router, sess, _ := newTestRouter(t, &fakeOrderService{}, &fakeAuth{}, netmon.New(true, slog.Default()))
	require.NoError(t, sess.SetAccess("acc-1"))
	require.NoError(t, sess.SetRefresh("ref-1"))

	rec := doRequest(router, http.MethodPost, "/api/v1/session/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, session.Credentials{}, sess.Get())
}

func TestSessionStatusEndpoint(t *testing.T) {
	router, sess, _ := newTestRouter(t, &fakeOrderService{}, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)

	require.NoError(t, sess.SetAccess("acc-1"))
	rec = doRequest(router, http.MethodGet, "/api/v1/session", "")
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
}

func TestConnectivityEndpoints(t *testing.T) {
	monitor := netmon.New(false, slog.Default())
	router, _, _ := newTestRouter(t, &fakeOrderService{}, &fakeAuth{}, monitor)

	rec := doRequest(router, http.MethodGet, "/api/v1/connectivity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":false`)

	rec = doRequest(router, http.MethodPut, "/api/v1/connectivity", `{"online":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, monitor.Online())
}

func TestTrackingLastEndpoint(t *testing.T) {
	router, _, tracker := newTestRouter(t, &fakeOrderService{}, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodGet, "/api/v1/tracking/last", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	fix := domain.Location{Latitude: 27.71, Longitude: 85.32, Timestamp: time.UnixMilli(1700000000000).UTC()}
	require.NoError(t, tracker.Start(context.Background(), staticSource{fix}))
	waitForFix(t, tracker)

	rec = doRequest(router, http.MethodGet, "/api/v1/tracking/last", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "27.71")
}

type staticSource struct {
	fix domain.Location
}

func (s staticSource) Locations(ctx context.Context) <-chan domain.Location {
	out := make(chan domain.Location, 1)
	out <- s.fix
	close(out)
	return out
}

func waitForFix(t *testing.T, tracker *tracking.Tracker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := tracker.Last(); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("location was not recorded")
}

func TestHealthEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t, &fakeOrderService{}, &fakeAuth{}, netmon.New(true, slog.Default()))

	rec := doRequest(router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
