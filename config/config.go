// Package config holds the static configuration of the service: the chain
// descriptor, the ERC-3643 contract addresses and the administrator account.
// It is loaded once at startup and treated as read-only afterwards.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed default.toml
var defaultConfig []byte

type Config struct {
	AdminAddress common.Address   `toml:"AdminAddress"`
	Contracts    Contracts        `toml:"Contracts"`
	ClaimTopics  map[string]int64 `toml:"ClaimTopics"`
	Chain        Chain            `toml:"Chain"`
}

// Contracts maps each compliance role to its deployed contract.
type Contracts struct {
	ClaimTopicsRegistry    common.Address `toml:"ClaimTopicsRegistry"`
	TrustedIssuersRegistry common.Address `toml:"TrustedIssuersRegistry"`
	Identity               common.Address `toml:"Identity"`
	IdentityRegistry       common.Address `toml:"IdentityRegistry"`
	Compliance             common.Address `toml:"Compliance"`
	Token                  common.Address `toml:"Token"`
}

// Role names a logical contract role.
type Role string

const (
	RoleClaimTopicsRegistry    Role = "claim-topics-registry"
	RoleTrustedIssuersRegistry Role = "trusted-issuers-registry"
	RoleIdentity               Role = "identity"
	RoleIdentityRegistry       Role = "identity-registry"
	RoleCompliance             Role = "compliance"
	RoleToken                  Role = "token"
)

// Roles lists every contract role in a stable order.
var Roles = []Role{
	RoleClaimTopicsRegistry,
	RoleTrustedIssuersRegistry,
	RoleIdentity,
	RoleIdentityRegistry,
	RoleCompliance,
	RoleToken,
}

// ByRole returns the contract deployed for role. The zero address means unset.
func (c Contracts) ByRole(role Role) (common.Address, bool) {
	var addr common.Address
	switch role {
	case RoleClaimTopicsRegistry:
		addr = c.ClaimTopicsRegistry
	case RoleTrustedIssuersRegistry:
		addr = c.TrustedIssuersRegistry
	case RoleIdentity:
		addr = c.Identity
	case RoleIdentityRegistry:
		addr = c.IdentityRegistry
	case RoleCompliance:
		addr = c.Compliance
	case RoleToken:
		addr = c.Token
	default:
		return common.Address{}, false
	}
	return addr, addr != (common.Address{})
}

// NativeCurrency describes the chain's gas token.
type NativeCurrency struct {
	Name     string `toml:"Name" json:"name"`
	Symbol   string `toml:"Symbol" json:"symbol"`
	Decimals uint8  `toml:"Decimals" json:"decimals"`
}

type Explorer struct {
	Name string `toml:"Name" json:"name"`
	URL  string `toml:"URL" json:"url"`
}

// Chain describes one EVM network.
type Chain struct {
	ID             uint64         `toml:"ID" json:"id"`
	Name           string         `toml:"Name" json:"name"`
	Network        string         `toml:"Network" json:"network"`
	RPCURLs        []string       `toml:"RPCURLs" json:"rpcUrls"`
	NativeCurrency NativeCurrency `toml:"NativeCurrency" json:"nativeCurrency"`
	Explorer       Explorer       `toml:"Explorer" json:"explorer"`
	Testnet        bool           `toml:"Testnet" json:"testnet"`
}

// DefaultRPCURL returns the first configured RPC endpoint.
func (c Chain) DefaultRPCURL() string {
	if len(c.RPCURLs) == 0 {
		return ""
	}
	return c.RPCURLs[0]
}

// AddressURL links to an account page on the block explorer.
func (c Chain) AddressURL(addr common.Address) string {
	if c.Explorer.URL == "" {
		return ""
	}
	return strings.TrimRight(c.Explorer.URL, "/") + "/address/" + strings.ToLower(addr.Hex())
}

// TopicName returns the configured name for a claim topic id.
func (c *Config) TopicName(id int64) string {
	names := make([]string, 0, 1)
	for name, topic := range c.ClaimTopics {
		if topic == id {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// Default returns the embedded Monad Testnet configuration.
func Default() *Config {
	cfg, err := decode(defaultConfig, &Config{})
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// Load reads a TOML file on top of the embedded defaults. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not decode config %s: %w", path, err)
	}
	if err := checkUndecoded(meta); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) (*Config, error) {
	meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(meta); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkUndecoded(meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, key := range undecoded {
		keys = append(keys, key.String())
	}
	return errors.New("unknown keys: " + strings.Join(keys, ", "))
}
