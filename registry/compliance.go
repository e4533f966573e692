package registry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/erc3643-wallet-session/config"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// ComplianceClient performs typed lookups against the ERC-3643 registries.
// It implements interfaces.IssuerChecker.
type ComplianceClient struct {
	reader    interfaces.QueryClient
	contracts config.Contracts
}

// NewComplianceClient creates a client reading the given contracts through reader.
func NewComplianceClient(reader interfaces.QueryClient, contracts config.Contracts) *ComplianceClient {
	return &ComplianceClient{
		reader:    reader,
		contracts: contracts,
	}
}

// IsTrustedIssuer reports whether account is registered in the trusted issuers registry.
func (c *ComplianceClient) IsTrustedIssuer(ctx context.Context, account common.Address) (bool, error) {
	return c.readBool(ctx, c.contracts.TrustedIssuersRegistry, TrustedIssuersRegistryABI, "isTrustedIssuer", account)
}

// TrustedIssuers lists the issuers registered in the trusted issuers registry.
func (c *ComplianceClient) TrustedIssuers(ctx context.Context) ([]common.Address, error) {
	out, err := c.reader.Read(ctx, c.contracts.TrustedIssuersRegistry, TrustedIssuersRegistryABI, "getTrustedIssuers")
	if err != nil {
		return nil, err
	}
	return single[[]common.Address]("getTrustedIssuers", out)
}

// IssuerClaimTopics lists the claim topics an issuer is trusted for.
func (c *ComplianceClient) IssuerClaimTopics(ctx context.Context, issuer common.Address) ([]*big.Int, error) {
	out, err := c.reader.Read(ctx, c.contracts.TrustedIssuersRegistry, TrustedIssuersRegistryABI, "getTrustedIssuerClaimTopics", issuer)
	if err != nil {
		return nil, err
	}
	return single[[]*big.Int]("getTrustedIssuerClaimTopics", out)
}

// IsVerified reports whether account holds a verified identity in the identity registry.
func (c *ComplianceClient) IsVerified(ctx context.Context, account common.Address) (bool, error) {
	return c.readBool(ctx, c.contracts.IdentityRegistry, IdentityRegistryABI, "isVerified", account)
}

// HasIdentity reports whether account is stored in the identity registry at all.
func (c *ComplianceClient) HasIdentity(ctx context.Context, account common.Address) (bool, error) {
	return c.readBool(ctx, c.contracts.IdentityRegistry, IdentityRegistryABI, "contains", account)
}

// ClaimTopics lists the claim topics required by the claim topics registry.
func (c *ComplianceClient) ClaimTopics(ctx context.Context) ([]*big.Int, error) {
	out, err := c.reader.Read(ctx, c.contracts.ClaimTopicsRegistry, ClaimTopicsRegistryABI, "getClaimTopics")
	if err != nil {
		return nil, err
	}
	return single[[]*big.Int]("getClaimTopics", out)
}

func (c *ComplianceClient) readBool(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, account common.Address) (bool, error) {
	out, err := c.reader.Read(ctx, contract, contractABI, method, account)
	if err != nil {
		return false, err
	}
	return single[bool](method, out)
}

// single extracts the only output of a call, failing on shape mismatches.
func single[T any](method string, out []any) (T, error) {
	var zero T
	if len(out) != 1 {
		return zero, fmt.Errorf("%w: %s returned %d values, expected 1", interfaces.ErrQueryFailed, method, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, expected %T", interfaces.ErrQueryFailed, method, out[0], zero)
	}
	return v, nil
}
