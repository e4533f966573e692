package interfaces

import "errors"

var (
	// ErrNoProviderAvailable is returned when no injected-style connector is offered.
	ErrNoProviderAvailable = errors.New("no injected wallet connector available")

	// ErrConnectFailed is returned when the connector rejects or fails a connection attempt.
	ErrConnectFailed = errors.New("wallet connection failed")

	// ErrDisconnectFailed is returned when tearing down the connection fails.
	// The connection may still be live.
	ErrDisconnectFailed = errors.New("wallet disconnect failed")

	// ErrQueryFailed wraps any failure of a read-only contract call.
	ErrQueryFailed = errors.New("contract query failed")

	// ErrAlreadyConnected is returned by connect when a session is already connected.
	ErrAlreadyConnected = errors.New("wallet already connected")

	// ErrConnectPending is returned by connect while an earlier attempt is still running.
	ErrConnectPending = errors.New("wallet connection already in progress")

	// ErrNotConnected is returned by disconnect when there is no connected session.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrUnknownConnector is returned when a connector id is not registered.
	ErrUnknownConnector = errors.New("unknown wallet connector")

	// ErrNoAccounts is returned when a connector exposes no accounts.
	ErrNoAccounts = errors.New("wallet exposes no accounts")

	// ErrUnknownAccount is returned when selecting an account the wallet does not hold.
	ErrUnknownAccount = errors.New("account not available in wallet")
)
