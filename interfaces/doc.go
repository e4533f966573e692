// Package interfaces defines the core interfaces and types for the wallet
// session service, separating interface definitions from implementations.
//
// # Session
//
// Session is the derived state of the single wallet session owned by a running
// instance: the connected address, the connection state, the administrator
// flag, the trusted-issuer flag and the native balance. Only the session
// reconciler writes it; everyone else reads copies.
//
// # Collaborators
//
// ConnectionProvider: bridges to an external wallet. It offers connectors,
// connect/disconnect primitives and a serial stream of account changes.
//
// QueryClient: executes a single read-only contract call given a contract
// address, an ABI, a method name and arguments.
//
// IssuerChecker and BalanceSource: typed lookups the reconciler runs for each
// new address.
//
// NotificationSink: receives user-facing connect/disconnect notifications.
//
// # Errors
//
// The package also defines the sentinel errors shared across the service.
// Callers match them with errors.Is; implementations wrap them with %w.
package interfaces
