package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/ruteri/erc3643-wallet-session/config"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
	"github.com/ruteri/erc3643-wallet-session/notify"
)

const wsWriteTimeout = 10 * time.Second

// SessionService is the part of the session reconciler exposed over HTTP.
type SessionService interface {
	Snapshot() interfaces.Session
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// WalletControl exposes wallet-side operations a user would perform in
// their wallet rather than in the application.
type WalletControl interface {
	Connectors() []interfaces.ConnectorInfo
	ActiveConnector() string
	SelectAccount(ctx context.Context, account common.Address) error
}

// NotificationFeed serves notification history and a live stream.
type NotificationFeed interface {
	Recent() []notify.Notification
	Subscribe(buffer int) (<-chan notify.Notification, func())
}

// RequestError provides structured error information for HTTP responses.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// requestError classifies a session or wallet error into an HTTP status.
func requestError(err error) *RequestError {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interfaces.ErrNoProviderAvailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, interfaces.ErrAlreadyConnected),
		errors.Is(err, interfaces.ErrConnectPending),
		errors.Is(err, interfaces.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, interfaces.ErrUnknownAccount):
		status = http.StatusNotFound
	case errors.Is(err, interfaces.ErrConnectFailed),
		errors.Is(err, interfaces.ErrDisconnectFailed),
		errors.Is(err, interfaces.ErrQueryFailed):
		status = http.StatusBadGateway
	}
	return &RequestError{StatusCode: status, Err: err}
}

// Handler serves the wallet session API.
type Handler struct {
	session SessionService
	wallet  WalletControl
	feed    NotificationFeed
	chain   config.Chain
	log     *slog.Logger
}

func NewHandler(session SessionService, wallet WalletControl, feed NotificationFeed, chain config.Chain, log *slog.Logger) *Handler {
	return &Handler{
		session: session,
		wallet:  wallet,
		feed:    feed,
		chain:   chain,
		log:     log,
	}
}

// HandleSession returns the current session snapshot.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleConnect connects the session through the injected connector and
// returns the resulting snapshot.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Connect(r.Context()); err != nil {
		h.writeError(w, requestError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleDisconnect disconnects the session and returns the resulting snapshot.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Disconnect(r.Context()); err != nil {
		h.writeError(w, requestError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleSelectAccount switches the wallet to another of its accounts.
// The session follows through the provider's account stream.
func (h *Handler) HandleSelectAccount(w http.ResponseWriter, r *http.Request) {
	account, err := interfaces.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		http.Error(w, "Invalid account address format", http.StatusBadRequest)
		return
	}

	if err := h.wallet.SelectAccount(r.Context(), account); err != nil {
		h.writeError(w, requestError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, h.session.Snapshot())
}

type connectorsResponse struct {
	Connectors []interfaces.ConnectorInfo `json:"connectors"`
	Active     string                     `json:"active"`
}

// HandleConnectors lists the wallet connectors and the active one.
func (h *Handler) HandleConnectors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, connectorsResponse{
		Connectors: h.wallet.Connectors(),
		Active:     h.wallet.ActiveConnector(),
	})
}

// HandleChain returns the configured chain metadata.
func (h *Handler) HandleChain(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.chain)
}

// HandleNotifications returns recent notifications, oldest first.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.feed.Recent())
}

// HandleNotificationStream streams notifications over a websocket until the
// client goes away.
func (h *Handler) HandleNotificationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Reads are only needed to observe the client closing the connection.
	ctx := conn.CloseRead(r.Context())

	updates, cancel := h.feed.Subscribe(16)
	defer cancel()

	if err := streamNotifications(ctx, conn, updates); err != nil {
		if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
			h.log.Warn("Notification stream failed", "err", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamNotifications(ctx context.Context, conn *websocket.Conn, updates <-chan notify.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeNotification(ctx, conn, n); err != nil {
				return err
			}
		}
	}
}

func writeNotification(ctx context.Context, conn *websocket.Conn, n notify.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err *RequestError) {
	if err.StatusCode >= http.StatusInternalServerError {
		h.log.Error("Request failed", "status", err.StatusCode, "err", err.Err)
	}
	http.Error(w, err.Error(), err.StatusCode)
}
