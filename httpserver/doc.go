/*
Package httpserver serves the wallet session over HTTP.

# Session API

  - GET  /api/session: current session snapshot
  - POST /api/session/connect: connect through the injected connector
  - POST /api/session/disconnect: disconnect the session
  - POST /api/wallet/account/{address}: switch the wallet's selected account
  - GET  /api/wallet/connectors: available connectors and the active one
  - GET  /api/chain: configured chain metadata
  - GET  /api/notifications: recent user-facing notifications
  - GET  /api/notifications/ws: live notification stream (websocket)

Session snapshots are JSON objects with the lowercase address (or null), the
connection state, the admin and trusted-issuer flags, the derived role and
the native balance.

Errors are returned as plain text with a status derived from the failure:
503 when no injected wallet is available, 409 for connect/disconnect calls
in the wrong state, 404 when selecting an account the wallet does not hold
and 502 when the wallet or chain rejects the operation.

# Operations

Health endpoints /livez and /readyz, and /drain and /undrain for load
balancer rotation. pprof is mounted under /debug when enabled. Prometheus
metrics are served on a separate listener.
*/
package httpserver
