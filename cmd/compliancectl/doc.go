// Command compliancectl runs one-shot read-only queries against the ERC-3643
// contracts of the configured deployment: trusted issuers and their claim
// topics, investor verification, identity registration and native balances.
//
// Example:
//
//	compliancectl issuer 0x35C6e706EE23CD898b2C15fEB20f0fE726E734D2
//	compliancectl --rpc-addr http://127.0.0.1:8545 topics
package main
