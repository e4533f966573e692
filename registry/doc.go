// Package registry provides read-only access to the on-chain ERC-3643
// compliance contracts deployed for the service.
//
// ContractReader is the generic query client: given a contract address, a
// parsed ABI, a method name and arguments it performs a single eth_call and
// returns the unpacked outputs. Any failure (transport error, revert, missing
// code, undecodable output) is wrapped in interfaces.ErrQueryFailed. The
// reader performs no retries.
//
// ComplianceClient layers typed lookups on top of a query client:
//
//   - IsTrustedIssuer, TrustedIssuers, IssuerClaimTopics on the trusted issuers registry
//   - IsVerified, HasIdentity on the identity registry
//   - ClaimTopics on the claim topics registry
//
// BalanceReader resolves native balances and annotates them with the chain's
// currency metadata.
//
// Typical wiring:
//
//	client, err := ethclient.Dial(rpcURL)
//	reader := registry.NewContractReader(client, log)
//	compliance := registry.NewComplianceClient(reader, cfg.Contracts)
//	trusted, err := compliance.IsTrustedIssuer(ctx, account)
//
// Testify mocks for the query, issuer and balance interfaces are provided for
// use by dependent packages.
package registry
