package flags

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	wcommon "github.com/ruteri/erc3643-wallet-session/common"
	"github.com/ruteri/erc3643-wallet-session/config"
	"github.com/ruteri/erc3643-wallet-session/httpserver"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")
	logFile := cCtx.String(LogFileFlag.Name)

	logger := wcommon.SetupLogger(&wcommon.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: wcommon.Version,
		File:    logFile,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadConfig loads the TOML file named by --config, or the embedded defaults.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	return config.Load(cCtx.String(ConfigFlag.Name))
}

// RPCAddr returns --rpc-addr, falling back to the chain's default RPC URL.
func RPCAddr(cCtx *cli.Context, cfg *config.Config) string {
	if addr := cCtx.String(RpcAddrFlag.Name); addr != "" {
		return addr
	}
	return cfg.Chain.DefaultRPCURL()
}

// DevAccounts parses the comma-separated --dev-accounts list.
func DevAccounts(cCtx *cli.Context) ([]common.Address, error) {
	var accounts []common.Address
	for _, s := range cCtx.StringSlice(DevAccountsFlag.Name) {
		for _, part := range strings.Split(s, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			addr, err := interfaces.ParseAddress(part)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", DevAccountsFlag.Name, err)
			}
			accounts = append(accounts, addr)
		}
	}
	return accounts, nil
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "TOML file with admin, contract and chain configuration (defaults to the embedded Monad Testnet deployment)",
	EnvVars: []string{"WALLETD_CONFIG"},
}

var RpcAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Usage: "address to connect to RPC (defaults to the configured chain's first RPC URL)",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var KeystoreDirFlag = &cli.StringFlag{
	Name:  "keystore-dir",
	Usage: "keystore directory exposed as an injected wallet",
}

var ClefEndpointFlag = &cli.StringFlag{
	Name:  "clef-endpoint",
	Usage: "external signer endpoint (e.g. http://127.0.0.1:8550 or an IPC path)",
}

var ClefPollFlag = &cli.DurationFlag{
	Name:  "clef-poll",
	Value: 5 * time.Second,
	Usage: "interval to poll the external signer for account changes",
}

var DevAccountsFlag = &cli.StringSliceFlag{
	Name:  "dev-accounts",
	Usage: "comma-separated accounts exposed as a static injected wallet",
}

var QueryTimeoutFlag = &cli.DurationFlag{
	Name:  "query-timeout",
	Value: 15 * time.Second,
	Usage: "timeout for each on-chain read (0 disables)",
}

var ConnectTimeoutFlag = &cli.DurationFlag{
	Name:  "connect-timeout",
	Value: 2 * time.Minute,
	Usage: "how long a connection accepted by the wallet may wait for an account (0 waits indefinitely)",
}

var NotificationHistoryFlag = &cli.IntFlag{
	Name:  "notification-history",
	Value: 50,
	Usage: "number of recent notifications kept for /api/notifications",
}

var AutoConnectFlag = &cli.BoolFlag{
	Name:  "auto-connect",
	Value: false,
	Usage: "connect through the injected wallet on startup",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogFileFlag = &cli.StringFlag{
	Name:  "log-file",
	Usage: "also write logs to this file, rotated by size",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogFileFlag,
}

var CommonFlags = append(append([]cli.Flag{}, LogFlags...),
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
)
