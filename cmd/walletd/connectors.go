package main

import (
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/erc3643-wallet-session/cmd/flags"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
	"github.com/ruteri/erc3643-wallet-session/wallet"
)

// buildConnectors creates the wallet connectors enabled on the command line.
// The first injected-type connector is the one Connect uses.
func buildConnectors(cCtx *cli.Context, logger *slog.Logger) ([]wallet.Connector, error) {
	var connectors []wallet.Connector

	devAccounts, err := flags.DevAccounts(cCtx)
	if err != nil {
		logger.Error("Invalid dev accounts", "err", err)
		return nil, err
	}
	if len(devAccounts) > 0 {
		logger.Info("Using static dev accounts", "count", len(devAccounts))
		connectors = append(connectors, wallet.NewStaticConnector(interfaces.InjectedConnectorType, devAccounts...))
	}

	if dir := cCtx.String(flags.KeystoreDirFlag.Name); dir != "" {
		logger.Info("Using keystore directory", "dir", dir)
		connectors = append(connectors, wallet.NewKeystoreConnector(dir, logger))
	}

	if endpoint := cCtx.String(flags.ClefEndpointFlag.Name); endpoint != "" {
		logger.Info("Using external signer", "endpoint", endpoint)
		connectors = append(connectors, wallet.NewExternalConnector(endpoint, cCtx.Duration(flags.ClefPollFlag.Name), logger))
	}

	if len(connectors) == 0 {
		// Connect still works and reports that no injected wallet is available.
		logger.Warn("No wallet connectors configured, set --dev-accounts, --keystore-dir or --clef-endpoint")
	}
	return connectors, nil
}
