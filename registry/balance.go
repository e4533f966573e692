package registry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/erc3643-wallet-session/config"
	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// BalanceAtReader is the subset of ethclient.Client used for balance lookups.
type BalanceAtReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// BalanceReader implements interfaces.BalanceSource for the chain's native currency.
type BalanceReader struct {
	client   BalanceAtReader
	currency config.NativeCurrency
}

func NewBalanceReader(client BalanceAtReader, currency config.NativeCurrency) *BalanceReader {
	return &BalanceReader{
		client:   client,
		currency: currency,
	}
}

// BalanceOf returns the latest native balance of account.
func (r *BalanceReader) BalanceOf(ctx context.Context, account common.Address) (*interfaces.Balance, error) {
	value, err := r.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: balance of %s: %w", interfaces.ErrQueryFailed, account.Hex(), err)
	}
	return &interfaces.Balance{
		Value:    value,
		Decimals: r.currency.Decimals,
		Symbol:   r.currency.Symbol,
	}, nil
}
