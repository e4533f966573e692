package session

import (
	"errors"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

const (
	msgConnected        = "Successfully connected to wallet"
	msgDisconnected     = "Successfully disconnected from wallet"
	msgConnectFailed    = "Failed to connect wallet. Please install MetaMask or another injected wallet extension."
	msgDisconnectFailed = "Failed to disconnect wallet. Please try again."
	msgNoProvider       = "No injected wallet found. Please install MetaMask or another wallet extension."
)

type notification struct {
	kind    interfaces.NotificationKind
	message string
}

var (
	connectedNotification    = notification{interfaces.KindConnected, msgConnected}
	disconnectedNotification = notification{interfaces.KindDisconnected, msgDisconnected}
)

// notificationFor maps an operation error to the notification shown for it.
// Precondition violations and query failures are not surfaced.
func notificationFor(err error) (notification, bool) {
	switch {
	case errors.Is(err, interfaces.ErrNoProviderAvailable):
		return notification{interfaces.KindNoProvider, msgNoProvider}, true
	case errors.Is(err, interfaces.ErrConnectFailed):
		return notification{interfaces.KindConnectFailed, msgConnectFailed}, true
	case errors.Is(err, interfaces.ErrDisconnectFailed):
		return notification{interfaces.KindDisconnectFailed, msgDisconnectFailed}, true
	}
	return notification{}, false
}

// fail logs err, emits its notification and returns it unchanged.
func (r *Reconciler) fail(err error) error {
	r.mu.Lock()
	return r.failLocked(err)
}

// failLocked is fail for callers holding r.mu. It releases r.mu.
func (r *Reconciler) failLocked(err error) error {
	r.log.Error("Wallet operation failed", "err", err)
	n, ok := notificationFor(err)
	if !ok {
		r.mu.Unlock()
		return err
	}
	r.unlockAndEmit(n)
	return err
}

// unlockAndEmit releases r.mu and delivers notes before any later state
// change can deliver its own. The sink must not call back into the reconciler.
func (r *Reconciler) unlockAndEmit(notes ...notification) {
	if len(notes) == 0 {
		r.mu.Unlock()
		return
	}
	r.emitMu.Lock()
	r.mu.Unlock()
	defer r.emitMu.Unlock()

	for _, n := range notes {
		r.metrics.Notification(string(n.kind))
		r.sink.Notify(n.kind, n.message)
	}
}
