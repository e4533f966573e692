package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// AccountChangeHandler receives the provider's current account, or nil when
// the provider reports it is disconnected.
type AccountChangeHandler func(account *common.Address)

// ConnectionProvider bridges to an external wallet.
// Account change notifications are delivered serially, in the order the
// provider observed them.
type ConnectionProvider interface {
	// Connectors lists the connectors the provider can use.
	Connectors() []ConnectorInfo

	// SubscribeToAccountChanges registers a handler and returns a function
	// removing it.
	SubscribeToAccountChanges(handler AccountChangeHandler) (unsubscribe func())

	// RequestConnect establishes a connection using the given connector.
	RequestConnect(ctx context.Context, connectorID string) error

	// RequestDisconnect tears down the active connection.
	RequestDisconnect(ctx context.Context) error

	// CurrentAddress returns the currently connected account, if any.
	CurrentAddress() *common.Address
}

// QueryClient executes stateless read-only contract calls.
// Failures wrap ErrQueryFailed.
type QueryClient interface {
	Read(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error)
}

// IssuerChecker resolves the trusted-issuer status of an account.
type IssuerChecker interface {
	IsTrustedIssuer(ctx context.Context, account common.Address) (bool, error)
}

// BalanceSource resolves the native currency balance of an account.
type BalanceSource interface {
	BalanceOf(ctx context.Context, account common.Address) (*Balance, error)
}

// NotificationSink receives fire-and-forget user-facing notifications.
type NotificationSink interface {
	Notify(kind NotificationKind, message string)
}

// NotificationSinkFunc adapts a function to NotificationSink.
type NotificationSinkFunc func(kind NotificationKind, message string)

// Notify calls f.
func (f NotificationSinkFunc) Notify(kind NotificationKind, message string) {
	f(kind, message)
}
