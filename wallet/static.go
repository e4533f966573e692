package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// StaticConnector exposes a fixed, externally mutable list of accounts.
// It stands in for an injected wallet in development setups and tests.
type StaticConnector struct {
	id   string
	name string

	mu       sync.Mutex
	accounts []common.Address
	watchers map[int]func([]common.Address)
	nextID   int
	err      error
}

func NewStaticConnector(id string, accounts ...common.Address) *StaticConnector {
	return &StaticConnector{
		id:       id,
		name:     "Static accounts",
		accounts: append([]common.Address(nil), accounts...),
		watchers: make(map[int]func([]common.Address)),
	}
}

func (c *StaticConnector) ID() string   { return c.id }
func (c *StaticConnector) Type() string { return interfaces.InjectedConnectorType }
func (c *StaticConnector) Name() string { return c.name }

func (c *StaticConnector) Accounts(ctx context.Context) ([]common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]common.Address(nil), c.accounts...), nil
}

// FailWith makes subsequent Accounts calls return err. Pass nil to clear.
func (c *StaticConnector) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// SetAccounts replaces the account list and notifies watchers.
func (c *StaticConnector) SetAccounts(accounts ...common.Address) {
	c.mu.Lock()
	c.accounts = append([]common.Address(nil), accounts...)
	watchers := make([]func([]common.Address), 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	snapshot := append([]common.Address(nil), c.accounts...)
	c.mu.Unlock()

	for _, w := range watchers {
		w(snapshot)
	}
}

func (c *StaticConnector) Watch(onChange func([]common.Address)) (stop func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = onChange
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}
