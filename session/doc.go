// Package session reconciles the wallet session.
//
// A Reconciler subscribes to a ConnectionProvider's account stream and keeps
// one Session up to date. Administrator status is derived synchronously from
// the configured admin address. Trusted-issuer status and the native balance
// are resolved asynchronously; each query is tagged with the address
// transition it was started for and its result is dropped if the session has
// moved on by the time it completes.
//
// Readers call Snapshot, which returns a copy of the last published state and
// never blocks on in-flight queries.
package session
