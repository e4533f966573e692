package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/ruteri/erc3643-wallet-session/config"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
	"github.com/ruteri/erc3643-wallet-session/notify"
	"github.com/ruteri/erc3643-wallet-session/registry"
	"github.com/ruteri/erc3643-wallet-session/session"
	"github.com/ruteri/erc3643-wallet-session/wallet"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Snapshot() interfaces.Session {
	return m.Called().Get(0).(interfaces.Session)
}

func (m *MockSessionService) Connect(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockSessionService) Disconnect(ctx context.Context) error {
	return m.Called().Error(0)
}

type MockWalletControl struct {
	mock.Mock
}

func (m *MockWalletControl) Connectors() []interfaces.ConnectorInfo {
	return m.Called().Get(0).([]interfaces.ConnectorInfo)
}

func (m *MockWalletControl) ActiveConnector() string {
	return m.Called().String(0)
}

func (m *MockWalletControl) SelectAccount(ctx context.Context, account common.Address) error {
	return m.Called(account).Error(0)
}

var testAccount = common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(h *Handler) http.Handler {
	srv := New(&HTTPServerConfig{Log: testLogger()}, h, nil)
	return srv.srv.Handler
}

func connectedSession() interfaces.Session {
	a := testAccount
	return interfaces.Session{
		Address:         &a,
		ConnectionState: interfaces.Connected,
		IsTrustedIssuer: true,
		IssuerResolved:  true,
		Balance:         &interfaces.Balance{Value: big.NewInt(2500000000000000000), Decimals: 18, Symbol: "MON"},
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(body, &result), string(body))
	return result
}

func TestHandleSession(t *testing.T) {
	sessions := new(MockSessionService)
	sessions.On("Snapshot").Return(connectedSession())
	h := NewHandler(sessions, new(MockWalletControl), notify.NewHub(4), config.Chain{}, testLogger())

	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	result := decodeBody(t, resp)
	assert.Equal(t, strings.ToLower(testAccount.Hex()), result["address"])
	assert.Equal(t, "connected", result["connectionState"])
	assert.Equal(t, false, result["isAdmin"])
	assert.Equal(t, true, result["isTrustedIssuer"])
	assert.Equal(t, "issuer", result["role"])
	balance := result["balance"].(map[string]any)
	assert.Equal(t, "2.5", balance["formatted"])
	assert.Equal(t, "2500000000000000000", balance["value"])
}

func TestHandleSession_Disconnected(t *testing.T) {
	sessions := new(MockSessionService)
	sessions.On("Snapshot").Return(interfaces.Session{})
	h := NewHandler(sessions, new(MockWalletControl), notify.NewHub(4), config.Chain{}, testLogger())

	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	result := decodeBody(t, w.Result())
	assert.Nil(t, result["address"])
	assert.Equal(t, "disconnected", result["connectionState"])
	assert.Equal(t, "guest", result["role"])
	assert.Nil(t, result["balance"])
}

func TestHandleConnect_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"no provider", interfaces.ErrNoProviderAvailable, http.StatusServiceUnavailable},
		{"already connected", interfaces.ErrAlreadyConnected, http.StatusConflict},
		{"pending", interfaces.ErrConnectPending, http.StatusConflict},
		{"rejected", fmt.Errorf("%w: user rejected", interfaces.ErrConnectFailed), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionService)
			sessions.On("Connect").Return(tt.err)
			sessions.On("Snapshot").Return(connectedSession()).Maybe()
			h := NewHandler(sessions, new(MockWalletControl), notify.NewHub(4), config.Chain{}, testLogger())

			w := httptest.NewRecorder()
			newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/session/connect", nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.err != nil {
				assert.Contains(t, w.Body.String(), tt.err.Error())
			}
			sessions.AssertExpectations(t)
		})
	}
}

func TestHandleDisconnect_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"not connected", interfaces.ErrNotConnected, http.StatusConflict},
		{"wallet failure", fmt.Errorf("%w: locked", interfaces.ErrDisconnectFailed), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionService)
			sessions.On("Disconnect").Return(tt.err)
			sessions.On("Snapshot").Return(interfaces.Session{}).Maybe()
			h := NewHandler(sessions, new(MockWalletControl), notify.NewHub(4), config.Chain{}, testLogger())

			w := httptest.NewRecorder()
			newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/session/disconnect", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandleSelectAccount(t *testing.T) {
	tests := []struct {
		name    string
		address string
		err     error
		status  int
	}{
		{"selected", strings.ToLower(testAccount.Hex()), nil, http.StatusOK},
		{"invalid address", "0x1234", nil, http.StatusBadRequest},
		{"not held by wallet", testAccount.Hex(), interfaces.ErrUnknownAccount, http.StatusNotFound},
		{"not connected", testAccount.Hex(), interfaces.ErrNotConnected, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionService)
			sessions.On("Snapshot").Return(connectedSession()).Maybe()
			wallets := new(MockWalletControl)
			wallets.On("SelectAccount", testAccount).Return(tt.err).Maybe()
			h := NewHandler(sessions, wallets, notify.NewHub(4), config.Chain{}, testLogger())

			mux := chi.NewRouter()
			mux.Post("/api/wallet/account/{address}", h.HandleSelectAccount)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/wallet/account/"+tt.address, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusBadRequest {
				wallets.AssertNotCalled(t, "SelectAccount", mock.Anything)
			}
		})
	}
}

func TestHandleConnectors(t *testing.T) {
	wallets := new(MockWalletControl)
	wallets.On("Connectors").Return([]interfaces.ConnectorInfo{
		{ID: "keystore", Type: interfaces.InjectedConnectorType, Name: "Keystore"},
		{ID: "clef", Type: "external", Name: "External signer"},
	})
	wallets.On("ActiveConnector").Return("keystore")
	h := NewHandler(new(MockSessionService), wallets, notify.NewHub(4), config.Chain{}, testLogger())

	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/wallet/connectors", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result connectorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "keystore", result.Active)
	require.Len(t, result.Connectors, 2)
	assert.Equal(t, "clef", result.Connectors[1].ID)
}

func TestHandleChain(t *testing.T) {
	chain := config.Default().Chain
	h := NewHandler(new(MockSessionService), new(MockWalletControl), notify.NewHub(4), chain, testLogger())

	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chain", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result config.Chain
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, uint64(10143), result.ID)
	assert.Equal(t, "MON", result.NativeCurrency.Symbol)
}

func TestHandleNotifications(t *testing.T) {
	hub := notify.NewHub(4)
	hub.Notify(interfaces.KindConnected, "Successfully connected to wallet")
	hub.Notify(interfaces.KindDisconnectFailed, "Failed to disconnect wallet. Please try again.")
	h := NewHandler(new(MockSessionService), new(MockWalletControl), hub, config.Chain{}, testLogger())

	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result []notify.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "Wallet Connected", result[0].Title)
	assert.True(t, result[1].Destructive)
}

func TestHandleNotificationStream(t *testing.T) {
	hub := notify.NewHub(4)
	h := NewHandler(new(MockSessionService), new(MockWalletControl), hub, config.Chain{}, testLogger())
	ts := httptest.NewServer(newTestRouter(h))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/notifications/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The server subscribes after the handshake; keep publishing until the
	// first message arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Notify(interfaces.KindConnected, "Successfully connected to wallet")
			}
		}
	}()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var n notify.Notification
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, interfaces.KindConnected, n.Kind)
	assert.Equal(t, "Wallet Connected", n.Title)
	assert.NotEmpty(t, n.ID)
}

func TestServer_HealthAndDrain(t *testing.T) {
	h := NewHandler(new(MockSessionService), new(MockWalletControl), notify.NewHub(4), config.Chain{}, testLogger())
	router := newTestRouter(h)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, get("/livez").Code)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)
	assert.Contains(t, get("/drain").Body.String(), "draining")
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
	assert.Contains(t, get("/drain").Body.String(), "already draining")
	assert.Contains(t, get("/undrain").Body.String(), "ready")
	assert.Equal(t, http.StatusOK, get("/readyz").Code)
}

// TestSessionAPI_EndToEnd drives the API against a real reconciler and
// wallet provider.
func TestSessionAPI_EndToEnd(t *testing.T) {
	admin := config.Default().AdminAddress
	connector := wallet.NewStaticConnector("injected", testAccount, admin)
	provider := wallet.NewProvider(testLogger(), connector)
	defer provider.Close()

	issuers := new(registry.MockIssuerChecker)
	issuers.On("IsTrustedIssuer", mock.Anything).Return(false, nil)

	hub := notify.NewHub(8)
	reconciler := session.NewReconciler(&session.ReconcilerConfig{
		Provider: provider,
		Issuers:  issuers,
		Sink:     hub,
		Admin:    admin,
		Log:      testLogger(),
	})
	reconciler.Start()
	defer reconciler.Close()

	router := newTestRouter(NewHandler(reconciler, provider, hub, config.Default().Chain, testLogger()))
	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/api/session/disconnect").Code)

	w := do(http.MethodPost, "/api/session/connect")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), strings.ToLower(testAccount.Hex()))
	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/api/session/connect").Code)

	w = do(http.MethodPost, "/api/wallet/account/"+admin.Hex())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"isAdmin":true`)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	w = do(http.MethodPost, "/api/session/disconnect")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"address":null`)

	var kinds []interfaces.NotificationKind
	for _, n := range hub.Recent() {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []interfaces.NotificationKind{interfaces.KindConnected, interfaces.KindDisconnected}, kinds)
}
