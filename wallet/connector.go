package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Connector is a source of accounts the provider can connect through.
type Connector interface {
	ID() string
	Type() string
	Name() string

	// Accounts returns the accounts currently exposed by the wallet, in the
	// wallet's preferred order.
	Accounts(ctx context.Context) ([]common.Address, error)

	// Watch calls onChange with the full account list whenever the wallet's
	// accounts change, until the returned function is called.
	Watch(onChange func(accounts []common.Address)) (stop func())
}

func containsAccount(accounts []common.Address, account common.Address) bool {
	for _, a := range accounts {
		if a == account {
			return true
		}
	}
	return false
}
