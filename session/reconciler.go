package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
	"github.com/ruteri/erc3643-wallet-session/metrics"
)

// ReconcilerConfig wires a Reconciler to its collaborators.
type ReconcilerConfig struct {
	Provider interfaces.ConnectionProvider
	Issuers  interfaces.IssuerChecker

	// Balances is optional. When nil the session never carries a balance.
	Balances interfaces.BalanceSource

	// Sink is optional. When nil notifications are only counted.
	Sink interfaces.NotificationSink

	// Admin is the single account granted administrator capabilities.
	Admin common.Address

	// QueryTimeout bounds each derived-state query. Zero means no timeout.
	QueryTimeout time.Duration

	// ConnectTimeout bounds how long the session stays Connecting after the
	// provider accepted a request without reporting an account. Zero means
	// it waits for the provider's next event.
	ConnectTimeout time.Duration

	Metrics *metrics.SessionMetrics
	Log     *slog.Logger
}

// Reconciler owns the wallet session. It is the only writer of Session state:
// provider account events, query completions and explicit connect/disconnect
// calls all mutate it under one lock, and every mutation publishes an
// immutable snapshot for readers.
type Reconciler struct {
	provider       interfaces.ConnectionProvider
	issuers        interfaces.IssuerChecker
	balances       interfaces.BalanceSource
	sink           interfaces.NotificationSink
	admin          common.Address
	queryTimeout   time.Duration
	connectTimeout time.Duration
	metrics        *metrics.SessionMetrics
	log            *slog.Logger

	// emitMu is taken before mu is released so notifications leave in the
	// order their state changes were published.
	emitMu sync.Mutex

	mu    sync.Mutex
	state interfaces.Session
	// epoch increments on every address transition; queries carry the epoch
	// and address they were started for.
	epoch         uint64
	cancelQueries context.CancelFunc
	unsubscribe   func()
	closed        bool
	// connectSeq identifies the current connection attempt.
	connectSeq   uint64
	connectTimer *time.Timer

	baseCtx    context.Context
	baseCancel context.CancelFunc
	queries    sync.WaitGroup

	snapshot atomic.Pointer[interfaces.Session]
}

func NewReconciler(cfg *ReconcilerConfig) *Reconciler {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	sink := cfg.Sink
	if sink == nil {
		sink = interfaces.NotificationSinkFunc(func(interfaces.NotificationKind, string) {})
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	r := &Reconciler{
		provider:       cfg.Provider,
		issuers:        cfg.Issuers,
		balances:       cfg.Balances,
		sink:           sink,
		admin:          cfg.Admin,
		queryTimeout:   cfg.QueryTimeout,
		connectTimeout: cfg.ConnectTimeout,
		metrics:        cfg.Metrics,
		log:            log,
		state:          interfaces.Session{ConnectionState: interfaces.Disconnected},
		baseCtx:        baseCtx,
		baseCancel:     baseCancel,
	}
	r.publishLocked()
	return r
}

// Start subscribes to the provider's account stream and adopts the
// provider's current account, if any.
func (r *Reconciler) Start() {
	unsubscribe := r.provider.SubscribeToAccountChanges(r.HandleAccountChange)

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	if current := r.provider.CurrentAddress(); current != nil {
		r.HandleAccountChange(current)
	}
}

// Close unsubscribes from the provider, cancels in-flight queries and waits
// for them to return. Results arriving after Close are discarded.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.epoch++
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.stopConnectTimerLocked()
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	r.baseCancel()
	r.queries.Wait()
}

// Snapshot returns a copy of the current session. It never blocks.
func (r *Reconciler) Snapshot() interfaces.Session {
	return r.snapshot.Load().Clone()
}

// HandleAccountChange applies one provider account notification.
// A nil account means the provider reports it is disconnected.
func (r *Reconciler) HandleAccountChange(account *common.Address) {
	r.mu.Lock()
	var notes []notification

	switch {
	case account == nil:
		if r.state.Address == nil {
			if r.state.ConnectionState == interfaces.Connecting {
				r.log.Info("Wallet reported no account while connecting")
				r.state.ConnectionState = interfaces.Disconnected
				r.stopConnectTimerLocked()
				r.publishLocked()
			}
			r.mu.Unlock()
			return
		}
		r.log.Info("Wallet disconnected", "account", *r.state.Address)
		r.resetLocked()
		r.metrics.AccountChange("disconnected")
		notes = append(notes, disconnectedNotification)

	case r.state.Address != nil && *r.state.Address == *account:
		r.mu.Unlock()
		return

	default:
		first := r.state.Address == nil
		r.switchLocked(*account)
		if first {
			r.log.Info("Wallet connected", "account", *account, "admin", r.state.IsAdmin)
			r.metrics.AccountChange("connected")
			notes = append(notes, connectedNotification)
		} else {
			r.log.Info("Wallet account switched", "account", *account, "admin", r.state.IsAdmin)
			r.metrics.AccountChange("switched")
		}
	}

	r.publishLocked()
	r.unlockAndEmit(notes...)
}

// Connect asks the provider to connect through its injected-style connector.
// The provider's account event drives the transition to Connected. When the
// provider accepts the request without having reported an account yet, the
// session stays Connecting until an account event, a nil event, or
// ConnectTimeout ends the attempt.
func (r *Reconciler) Connect(ctx context.Context) error {
	connector, ok := findInjected(r.provider.Connectors())

	r.mu.Lock()
	switch r.state.ConnectionState {
	case interfaces.Connected:
		r.mu.Unlock()
		return interfaces.ErrAlreadyConnected
	case interfaces.Connecting:
		r.mu.Unlock()
		return interfaces.ErrConnectPending
	}
	if !ok {
		return r.failLocked(interfaces.ErrNoProviderAvailable)
	}
	r.connectSeq++
	seq := r.connectSeq
	r.state.ConnectionState = interfaces.Connecting
	r.publishLocked()
	r.mu.Unlock()

	r.log.Debug("Requesting wallet connection", "connector", connector.ID)
	if err := r.provider.RequestConnect(ctx, connector.ID); err != nil {
		r.mu.Lock()
		if r.state.ConnectionState == interfaces.Connecting && r.connectSeq == seq {
			r.state.ConnectionState = interfaces.Disconnected
			r.publishLocked()
		}
		return r.failLocked(fmt.Errorf("%w: %w", interfaces.ErrConnectFailed, err))
	}

	if !r.connecting(seq) {
		return nil
	}
	if current := r.provider.CurrentAddress(); current != nil {
		r.HandleAccountChange(current)
		return nil
	}

	// Accepted, but the account event has not arrived yet.
	r.mu.Lock()
	if r.state.ConnectionState == interfaces.Connecting && r.connectSeq == seq && r.connectTimeout > 0 && !r.closed {
		r.stopConnectTimerLocked()
		r.connectTimer = time.AfterFunc(r.connectTimeout, func() { r.expireConnect(seq) })
	}
	r.mu.Unlock()
	return nil
}

// expireConnect gives up on attempt seq if it is still waiting for an account.
func (r *Reconciler) expireConnect(seq uint64) {
	r.mu.Lock()
	if r.closed || r.connectSeq != seq || r.state.ConnectionState != interfaces.Connecting {
		r.mu.Unlock()
		return
	}
	r.connectTimer = nil
	r.state.ConnectionState = interfaces.Disconnected
	r.publishLocked()
	r.failLocked(fmt.Errorf("%w: no account reported within %s", interfaces.ErrConnectFailed, r.connectTimeout))
}

func (r *Reconciler) stopConnectTimerLocked() {
	if r.connectTimer != nil {
		r.connectTimer.Stop()
		r.connectTimer = nil
	}
}

// Disconnect asks the provider to tear down the connection and resets the
// session on success. On failure the session is left unchanged.
func (r *Reconciler) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	if r.state.ConnectionState != interfaces.Connected {
		r.mu.Unlock()
		return interfaces.ErrNotConnected
	}
	epoch := r.epoch
	account := *r.state.Address
	r.mu.Unlock()

	if err := r.provider.RequestDisconnect(ctx); err != nil {
		return r.fail(fmt.Errorf("%w: %w", interfaces.ErrDisconnectFailed, err))
	}

	r.mu.Lock()
	// Providers that emit a nil account on disconnect have already reset
	// the session through HandleAccountChange. This covers those that do not.
	if r.epoch != epoch {
		r.mu.Unlock()
		return nil
	}
	r.log.Info("Wallet disconnected", "account", account)
	r.resetLocked()
	r.publishLocked()
	r.metrics.AccountChange("disconnected")
	r.unlockAndEmit(disconnectedNotification)
	return nil
}

func (r *Reconciler) connecting(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ConnectionState == interfaces.Connecting && r.connectSeq == seq
}

// switchLocked makes account current and launches its derived-state queries.
func (r *Reconciler) switchLocked(account common.Address) {
	r.epoch++
	if r.cancelQueries != nil {
		r.cancelQueries()
		r.cancelQueries = nil
	}

	r.stopConnectTimerLocked()
	addr := account
	r.state = interfaces.Session{
		Address:         &addr,
		ConnectionState: interfaces.Connected,
		IsAdmin:         account == r.admin,
	}

	if r.closed {
		return
	}

	ctx, cancel := context.WithCancel(r.baseCtx)
	r.cancelQueries = cancel
	epoch := r.epoch

	r.queries.Add(1)
	go r.resolveIssuer(ctx, epoch, account)

	if r.balances != nil {
		r.queries.Add(1)
		go r.resolveBalance(ctx, epoch, account)
	}
}

func (r *Reconciler) resetLocked() {
	r.epoch++
	if r.cancelQueries != nil {
		r.cancelQueries()
		r.cancelQueries = nil
	}
	r.state = interfaces.Session{ConnectionState: interfaces.Disconnected}
}

// currentLocked reports whether a query tagged with epoch and account still
// describes the session.
func (r *Reconciler) currentLocked(epoch uint64, account common.Address) bool {
	return r.epoch == epoch && r.state.Address != nil && *r.state.Address == account
}

func (r *Reconciler) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout > 0 {
		return context.WithTimeout(ctx, r.queryTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Reconciler) resolveIssuer(ctx context.Context, epoch uint64, account common.Address) {
	defer r.queries.Done()
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	trusted, err := guard(func() (bool, error) {
		return r.issuers.IsTrustedIssuer(ctx, account)
	})
	r.metrics.Query(metrics.QueryIssuer, err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.currentLocked(epoch, account) {
		r.metrics.StaleResult(metrics.QueryIssuer)
		r.log.Debug("Discarding stale issuer status", "account", account, "trusted", trusted, "err", err)
		return
	}
	if err != nil {
		r.log.Warn("Issuer status query failed, treating account as not trusted", "account", account, "err", err)
		trusted = false
	}
	r.state.IsTrustedIssuer = trusted
	r.state.IssuerResolved = true
	r.publishLocked()
}

func (r *Reconciler) resolveBalance(ctx context.Context, epoch uint64, account common.Address) {
	defer r.queries.Done()
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	balance, err := guard(func() (*interfaces.Balance, error) {
		return r.balances.BalanceOf(ctx, account)
	})
	r.metrics.Query(metrics.QueryBalance, err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.currentLocked(epoch, account) {
		r.metrics.StaleResult(metrics.QueryBalance)
		r.log.Debug("Discarding stale balance", "account", account)
		return
	}
	if err != nil {
		r.log.Warn("Balance query failed", "account", account, "err", err)
		balance = nil
	}
	r.state.Balance = balance.Clone()
	r.publishLocked()
}

// guard turns a panicking collaborator into an ordinary query failure.
func guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			result, err = zero, fmt.Errorf("%w: panic: %v", interfaces.ErrQueryFailed, p)
		}
	}()
	return fn()
}

func (r *Reconciler) publishLocked() {
	snapshot := r.state.Clone()
	r.snapshot.Store(&snapshot)
	r.metrics.SetConnected(snapshot.IsConnected())
}

func findInjected(connectors []interfaces.ConnectorInfo) (interfaces.ConnectorInfo, bool) {
	for _, c := range connectors {
		if c.ID == interfaces.InjectedConnectorType || c.Type == interfaces.InjectedConnectorType {
			return c, true
		}
	}
	return interfaces.ConnectorInfo{}, false
}
