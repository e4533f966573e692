package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/erc3643-wallet-session/cmd/flags"
	"github.com/ruteri/erc3643-wallet-session/config"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
	"github.com/ruteri/erc3643-wallet-session/registry"
)

const usage string = `Query the ERC-3643 contracts of the configured deployment.
Results are printed as JSON.`

func main() {
	app := &cli.App{
		Name:  "compliancectl",
		Usage: usage,
		Flags: append([]cli.Flag{
			flags.ConfigFlag,
			flags.RpcAddrFlag,
			flags.LogServiceFlagFn("compliancectl"),
		}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:      "issuer",
				Usage:     "report whether an account is a trusted claim issuer",
				ArgsUsage: "<address>",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					account, err := accountArg(cCtx)
					if err != nil {
						return nil, err
					}
					return c.Issuer(ctx, account)
				}),
			},
			{
				Name:  "issuers",
				Usage: "list the trusted issuers",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					return c.compliance.TrustedIssuers(ctx)
				}),
			},
			{
				Name:      "issuer-topics",
				Usage:     "list the claim topics a trusted issuer may attest",
				ArgsUsage: "<address>",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					account, err := accountArg(cCtx)
					if err != nil {
						return nil, err
					}
					topics, err := c.compliance.IssuerClaimTopics(ctx, account)
					if err != nil {
						return nil, err
					}
					return c.namedTopics(topics), nil
				}),
			},
			{
				Name:      "verified",
				Usage:     "report whether an account is a verified investor",
				ArgsUsage: "<address>",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					account, err := accountArg(cCtx)
					if err != nil {
						return nil, err
					}
					verified, err := c.compliance.IsVerified(ctx, account)
					if err != nil {
						return nil, err
					}
					return map[string]any{"address": interfaces.NormalizeAddress(account), "verified": verified}, nil
				}),
			},
			{
				Name:      "identity",
				Usage:     "report whether an account has an identity in the identity registry",
				ArgsUsage: "<address>",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					account, err := accountArg(cCtx)
					if err != nil {
						return nil, err
					}
					registered, err := c.compliance.HasIdentity(ctx, account)
					if err != nil {
						return nil, err
					}
					return map[string]any{"address": interfaces.NormalizeAddress(account), "registered": registered}, nil
				}),
			},
			{
				Name:  "topics",
				Usage: "list the claim topics required by the token",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					topics, err := c.compliance.ClaimTopics(ctx)
					if err != nil {
						return nil, err
					}
					return c.namedTopics(topics), nil
				}),
			},
			{
				Name:      "balance",
				Usage:     "print the native currency balance of an account",
				ArgsUsage: "<address>",
				Action: withClient(func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error) {
					account, err := accountArg(cCtx)
					if err != nil {
						return nil, err
					}
					return c.balances.BalanceOf(ctx, account)
				}),
			},
			{
				Name:  "chain",
				Usage: "print the configured chain",
				Action: func(cCtx *cli.Context) error {
					cfg, err := flags.LoadConfig(cCtx)
					if err != nil {
						return err
					}
					return printJSON(cfg.Chain)
				},
			},
			{
				Name:  "contracts",
				Usage: "print the configured admin and contract addresses",
				Action: func(cCtx *cli.Context) error {
					cfg, err := flags.LoadConfig(cCtx)
					if err != nil {
						return err
					}
					out := map[string]string{"admin": interfaces.NormalizeAddress(cfg.AdminAddress)}
					for _, role := range config.Roles {
						if addr, ok := cfg.Contracts.ByRole(role); ok {
							out[string(role)] = interfaces.NormalizeAddress(addr)
						}
					}
					return printJSON(out)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type Client struct {
	cfg        *config.Config
	compliance *registry.ComplianceClient
	balances   *registry.BalanceReader
}

func NewClient(cCtx *cli.Context) (*Client, func(), error) {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load configuration: %w", err)
	}

	ethClient, err := ethclient.Dial(flags.RPCAddr(cCtx, cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("could not dial RPC: %w", err)
	}

	return &Client{
		cfg:        cfg,
		compliance: registry.NewComplianceClient(registry.NewContractReader(ethClient, logger), cfg.Contracts),
		balances:   registry.NewBalanceReader(ethClient, cfg.Chain.NativeCurrency),
	}, ethClient.Close, nil
}

type issuerStatus struct {
	Address       string `json:"address"`
	TrustedIssuer bool   `json:"trustedIssuer"`
	Admin         bool   `json:"admin"`
	Explorer      string `json:"explorer,omitempty"`
}

// Issuer reports the trusted-issuer and admin flags a session for account would carry.
func (c *Client) Issuer(ctx context.Context, account common.Address) (*issuerStatus, error) {
	trusted, err := c.compliance.IsTrustedIssuer(ctx, account)
	if err != nil {
		return nil, err
	}
	return &issuerStatus{
		Address:       interfaces.NormalizeAddress(account),
		TrustedIssuer: trusted,
		Admin:         account == c.cfg.AdminAddress,
		Explorer:      c.cfg.Chain.AddressURL(account),
	}, nil
}

type namedTopic struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (c *Client) namedTopics(topics []*big.Int) []namedTopic {
	out := make([]namedTopic, 0, len(topics))
	for _, t := range topics {
		nt := namedTopic{ID: t.String()}
		if t.IsInt64() {
			nt.Name = c.cfg.TopicName(t.Int64())
		}
		out = append(out, nt)
	}
	return out
}

func withClient(fn func(ctx context.Context, c *Client, cCtx *cli.Context) (any, error)) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		c, closeClient, err := NewClient(cCtx)
		if err != nil {
			return err
		}
		defer closeClient()

		result, err := fn(cCtx.Context, c, cCtx)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

func accountArg(cCtx *cli.Context) (common.Address, error) {
	if cCtx.NArg() != 1 {
		return common.Address{}, fmt.Errorf("expected exactly one address argument, got %d", cCtx.NArg())
	}
	account, err := interfaces.ParseAddress(cCtx.Args().First())
	if err != nil {
		return common.Address{}, fmt.Errorf("could not parse address: %w", err)
	}
	return account, nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
