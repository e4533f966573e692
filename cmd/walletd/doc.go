// Command walletd runs the wallet session service.
//
// It owns a single wallet session for one ERC-3643 deployment: it watches the
// configured wallet connectors for account changes, derives the administrator
// flag from the configured admin address and resolves the trusted-issuer flag
// and native balance from chain. The session, connector list, chain metadata
// and user-facing notifications are served over HTTP (see package httpserver).
//
// Wallet connectors:
//
//   - --dev-accounts: a static list of accounts, exposed as an injected wallet
//   - --keystore-dir: a go-ethereum keystore directory, exposed as an injected
//     wallet; removing key files is observed as account changes
//   - --clef-endpoint: an external signer, polled for account changes
//
// Static configuration (admin address, contract addresses, chain) defaults to
// the embedded Monad Testnet deployment and can be replaced with --config.
package main
