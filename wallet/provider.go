// Package wallet implements the connection provider: it bridges wallet
// connectors (keystore directory, external signer, static accounts) to the
// session reconciler through connect/disconnect primitives and a serial stream
// of account changes.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

type subscription struct {
	id      uint64
	handler interfaces.AccountChangeHandler
}

// Provider implements interfaces.ConnectionProvider over a set of connectors.
// At most one connector is active at a time.
type Provider struct {
	connectors []Connector
	log        *slog.Logger

	// opMu spans every state change together with the delivery of the
	// resulting event, so handlers observe changes in order.
	opMu sync.Mutex

	mu        sync.Mutex
	active    Connector
	current   *common.Address
	stopWatch func()
	subs      []subscription
	nextSubID uint64
}

func NewProvider(log *slog.Logger, connectors ...Connector) *Provider {
	return &Provider{
		connectors: connectors,
		log:        log,
	}
}

func (p *Provider) Connectors() []interfaces.ConnectorInfo {
	infos := make([]interfaces.ConnectorInfo, 0, len(p.connectors))
	for _, c := range p.connectors {
		infos = append(infos, interfaces.ConnectorInfo{ID: c.ID(), Type: c.Type(), Name: c.Name()})
	}
	return infos
}

func (p *Provider) connector(id string) Connector {
	for _, c := range p.connectors {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func (p *Provider) SubscribeToAccountChanges(handler interfaces.AccountChangeHandler) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subs = append(p.subs, subscription{id: id, handler: handler})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// CurrentAddress returns the connected account, or nil when disconnected.
func (p *Provider) CurrentAddress() *common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyAddress(p.current)
}

// ActiveConnector returns the id of the active connector, or an empty string.
func (p *Provider) ActiveConnector() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return ""
	}
	return p.active.ID()
}

// RequestConnect activates the connector and selects its first account.
func (p *Provider) RequestConnect(ctx context.Context, connectorID string) error {
	conn := p.connector(connectorID)
	if conn == nil {
		return fmt.Errorf("%w: %s", interfaces.ErrUnknownConnector, connectorID)
	}

	accounts, err := conn.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("connector %s: %w", connectorID, err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("connector %s: %w", connectorID, interfaces.ErrNoAccounts)
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	previousStop := p.stopWatch
	p.active = conn
	p.current = copyAddress(&accounts[0])
	p.stopWatch = nil
	p.mu.Unlock()

	if previousStop != nil {
		previousStop()
	}

	stop := conn.Watch(func(accounts []common.Address) {
		p.onAccountsChanged(conn, accounts)
	})

	p.mu.Lock()
	p.stopWatch = stop
	current, subs := copyAddress(p.current), p.subscribers()
	p.mu.Unlock()

	p.log.Info("Wallet connected", "connector", connectorID, "account", current)
	p.emit(subs, current)
	return nil
}

// RequestDisconnect deactivates the active connector.
func (p *Provider) RequestDisconnect(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if p.active == nil {
		p.mu.Unlock()
		return interfaces.ErrNotConnected
	}
	connectorID := p.active.ID()
	stop := p.stopWatch
	p.active, p.current, p.stopWatch = nil, nil, nil
	subs := p.subscribers()
	p.mu.Unlock()

	if stop != nil {
		stop()
	}

	p.log.Info("Wallet disconnected", "connector", connectorID)
	p.emit(subs, nil)
	return nil
}

// SelectAccount switches the connected account to another account held by
// the active wallet, as a user would in their wallet UI.
func (p *Provider) SelectAccount(ctx context.Context, account common.Address) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	conn := p.active
	p.mu.Unlock()
	if conn == nil {
		return interfaces.ErrNotConnected
	}

	accounts, err := conn.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("connector %s: %w", conn.ID(), err)
	}
	if !containsAccount(accounts, account) {
		return fmt.Errorf("%w: %s", interfaces.ErrUnknownAccount, account.Hex())
	}

	p.mu.Lock()
	if p.active != conn {
		p.mu.Unlock()
		return interfaces.ErrNotConnected
	}
	p.current = copyAddress(&account)
	subs := p.subscribers()
	p.mu.Unlock()

	p.log.Info("Wallet account selected", "account", account)
	p.emit(subs, copyAddress(&account))
	return nil
}

func (p *Provider) onAccountsChanged(conn Connector, accounts []common.Address) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if p.active != conn {
		p.mu.Unlock()
		return
	}

	var (
		next *common.Address
		stop func()
	)
	switch {
	case len(accounts) == 0:
		stop = p.stopWatch
		p.active, p.stopWatch = nil, nil
	case p.current != nil && containsAccount(accounts, *p.current):
		p.mu.Unlock()
		return
	default:
		next = copyAddress(&accounts[0])
	}
	p.current = next
	subs := p.subscribers()
	p.mu.Unlock()

	if stop != nil {
		stop()
	}

	if next == nil {
		p.log.Info("Wallet disconnected externally", "connector", conn.ID())
	} else {
		p.log.Info("Wallet account changed", "connector", conn.ID(), "account", *next)
	}
	p.emit(subs, next)
}

func (p *Provider) subscribers() []subscription {
	return append([]subscription(nil), p.subs...)
}

func (p *Provider) emit(subs []subscription, account *common.Address) {
	for _, s := range subs {
		s.handler(copyAddress(account))
	}
}

// Close stops watching the active connector. Subscribers are not notified.
func (p *Provider) Close() {
	p.mu.Lock()
	stop := p.stopWatch
	p.stopWatch = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func copyAddress(addr *common.Address) *common.Address {
	if addr == nil {
		return nil
	}
	cp := *addr
	return &cp
}
