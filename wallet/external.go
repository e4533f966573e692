package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
)

// ExternalConnectorID identifies the external signer connector.
const ExternalConnectorID = "clef"

// ExternalConnector exposes the accounts of an external signer (clef) reached
// over RPC. The signer offers no account events, so Watch polls.
type ExternalConnector struct {
	endpoint string
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	backend *external.ExternalBackend
}

func NewExternalConnector(endpoint string, pollInterval time.Duration, log *slog.Logger) *ExternalConnector {
	return &ExternalConnector{
		endpoint: endpoint,
		interval: pollInterval,
		log:      log,
	}
}

func (c *ExternalConnector) ID() string   { return ExternalConnectorID }
func (c *ExternalConnector) Type() string { return "external" }
func (c *ExternalConnector) Name() string { return "External signer" }

func (c *ExternalConnector) dial() (*external.ExternalBackend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.backend, nil
	}
	backend, err := external.NewExternalBackend(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("could not reach external signer at %s: %w", c.endpoint, err)
	}
	c.backend = backend
	return backend, nil
}

func (c *ExternalConnector) Accounts(ctx context.Context) ([]common.Address, error) {
	backend, err := c.dial()
	if err != nil {
		return nil, err
	}
	var out []common.Address
	for _, w := range backend.Wallets() {
		for _, acc := range w.Accounts() {
			out = append(out, acc.Address)
		}
	}
	return out, nil
}

func (c *ExternalConnector) Watch(onChange func([]common.Address)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	last, err := c.Accounts(ctx)
	known := err == nil
	if err != nil {
		c.log.Warn("Reading external signer accounts failed", "endpoint", c.endpoint, "err", err)
	}

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				accounts, err := c.Accounts(ctx)
				if err != nil {
					c.log.Warn("Polling external signer failed", "endpoint", c.endpoint, "err", err)
					continue
				}
				// Without a first reading any successful poll is news.
				if !known || !sameAccounts(last, accounts) {
					known = true
					last = accounts
					onChange(accounts)
				}
			}
		}
	}()

	return cancel
}

func sameAccounts(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
