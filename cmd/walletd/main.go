package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/erc3643-wallet-session/cmd/flags"
	"github.com/ruteri/erc3643-wallet-session/common"
	"github.com/ruteri/erc3643-wallet-session/httpserver"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
	"github.com/ruteri/erc3643-wallet-session/metrics"
	"github.com/ruteri/erc3643-wallet-session/notify"
	"github.com/ruteri/erc3643-wallet-session/registry"
	"github.com/ruteri/erc3643-wallet-session/session"
	"github.com/ruteri/erc3643-wallet-session/wallet"
)

var walletFlags = []cli.Flag{
	flags.ConfigFlag,
	flags.RpcAddrFlag,
	flags.ListenAddrFlag,
	flags.KeystoreDirFlag,
	flags.ClefEndpointFlag,
	flags.ClefPollFlag,
	flags.DevAccountsFlag,
	flags.QueryTimeoutFlag,
	flags.ConnectTimeoutFlag,
	flags.NotificationHistoryFlag,
	flags.AutoConnectFlag,
	flags.LogServiceFlagFn("walletd"),
}

func main() {
	app := &cli.App{
		Name:  "walletd",
		Usage: "Serve the ERC-3643 wallet session: connection state, admin and trusted-issuer flags, balance",
		Flags: append(walletFlags, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := flags.LoadConfig(cCtx)
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}

			rpcAddress := flags.RPCAddr(cCtx, cfg)
			logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
			ethClient, err := ethclient.Dial(rpcAddress)
			if err != nil {
				logger.Error("Failed to dial RPC", "err", err)
				return err
			}
			defer ethClient.Close()

			chainID, err := ethClient.ChainID(cCtx.Context)
			switch {
			case err != nil:
				logger.Warn("Could not read chain ID from RPC", "err", err)
			case chainID.Uint64() != cfg.Chain.ID:
				logger.Warn("RPC chain ID differs from configured chain", "rpc", chainID, "configured", cfg.Chain.ID, "chain", cfg.Chain.Name)
			default:
				logger.Info("Connected to chain", "chain", cfg.Chain.Name, "id", chainID)
			}

			reader := registry.NewContractReader(ethClient, logger)
			compliance := registry.NewComplianceClient(reader, cfg.Contracts)
			balances := registry.NewBalanceReader(ethClient, cfg.Chain.NativeCurrency)

			connectors, err := buildConnectors(cCtx, logger)
			if err != nil {
				return err
			}
			provider := wallet.NewProvider(logger, connectors...)
			defer provider.Close()

			metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			hub := notify.NewHub(cCtx.Int(flags.NotificationHistoryFlag.Name))
			reconciler := session.NewReconciler(&session.ReconcilerConfig{
				Provider:       provider,
				Issuers:        compliance,
				Balances:       balances,
				Sink:           notify.Multi{hub, notify.NewLogSink(logger)},
				Admin:          cfg.AdminAddress,
				QueryTimeout:   cCtx.Duration(flags.QueryTimeoutFlag.Name),
				ConnectTimeout: cCtx.Duration(flags.ConnectTimeoutFlag.Name),
				Metrics:        metricsSrv.Session,
				Log:            logger,
			})
			reconciler.Start()
			defer reconciler.Close()

			if cCtx.Bool(flags.AutoConnectFlag.Name) {
				if err := reconciler.Connect(cCtx.Context); err != nil {
					logger.Warn("Auto-connect failed", "err", err)
				}
			}

			handler := httpserver.NewHandler(reconciler, provider, hub, cfg.Chain, logger)
			server := httpserver.New(flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name)), handler, metricsSrv)

			logger.Info("Starting server", "admin", interfaces.NormalizeAddress(cfg.AdminAddress), "connectors", len(connectors))
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
