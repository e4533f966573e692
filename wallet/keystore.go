package wallet

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// KeystoreConnectorID identifies the keystore-directory connector.
const KeystoreConnectorID = "keystore"

// KeystoreConnector exposes the accounts of a go-ethereum keystore directory.
// Adding or removing key files changes the exposed accounts; removing the
// connected account's key file is observed as an external disconnect or switch.
// Keys are never unlocked.
type KeystoreConnector struct {
	ks  *keystore.KeyStore
	log *slog.Logger
}

func NewKeystoreConnector(dir string, log *slog.Logger) *KeystoreConnector {
	return &KeystoreConnector{
		ks:  keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		log: log,
	}
}

func (c *KeystoreConnector) ID() string   { return KeystoreConnectorID }
func (c *KeystoreConnector) Type() string { return interfaces.InjectedConnectorType }
func (c *KeystoreConnector) Name() string { return "Keystore" }

func (c *KeystoreConnector) Accounts(ctx context.Context) ([]common.Address, error) {
	return c.addresses(), nil
}

func (c *KeystoreConnector) addresses() []common.Address {
	accs := c.ks.Accounts()
	out := make([]common.Address, 0, len(accs))
	for _, acc := range accs {
		out = append(out, acc.Address)
	}
	return out
}

func (c *KeystoreConnector) Watch(onChange func([]common.Address)) (stop func()) {
	events := make(chan accounts.WalletEvent, 16)
	sub := c.ks.Subscribe(events)

	go func() {
		for {
			select {
			case ev := <-events:
				if ev.Kind == accounts.WalletOpened {
					continue
				}
				c.log.Debug("Keystore wallet event", "kind", int(ev.Kind), "url", ev.Wallet.URL().String())
				onChange(c.addresses())
			case <-sub.Err():
				return
			}
		}
	}()

	return sub.Unsubscribe
}
