package registry

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	//go:embed abi/TrustedIssuersRegistry.json
	trustedIssuersRegistryJSON []byte

	//go:embed abi/IdentityRegistry.json
	identityRegistryJSON []byte

	//go:embed abi/ClaimTopicsRegistry.json
	claimTopicsRegistryJSON []byte
)

// Parsed ABIs of the ERC-3643 contracts the service reads from.
// Only the view methods are included.
var (
	TrustedIssuersRegistryABI = mustParseABI("TrustedIssuersRegistry", trustedIssuersRegistryJSON)
	IdentityRegistryABI       = mustParseABI("IdentityRegistry", identityRegistryJSON)
	ClaimTopicsRegistryABI    = mustParseABI("ClaimTopicsRegistry", claimTopicsRegistryJSON)
)

func mustParseABI(name string, data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded %s ABI: %v", name, err))
	}
	return parsed
}
