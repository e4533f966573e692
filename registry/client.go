package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// ContractReader implements interfaces.QueryClient on top of a go-ethereum
// ContractCaller such as *ethclient.Client.
type ContractReader struct {
	caller bind.ContractCaller
	log    *slog.Logger
}

// NewContractReader creates a reader issuing eth_call requests through caller.
func NewContractReader(caller bind.ContractCaller, log *slog.Logger) *ContractReader {
	return &ContractReader{
		caller: caller,
		log:    log,
	}
}

// Read calls a view method on contract and returns the unpacked outputs.
// Every failure, including a missing contract, is wrapped in interfaces.ErrQueryFailed.
func (r *ContractReader) Read(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	opts := &bind.CallOpts{Context: ctx}
	bound := bind.NewBoundContract(contract, contractABI, r.caller, nil, nil)

	var out []any
	if err := bound.Call(opts, &out, method, args...); err != nil {
		r.log.Debug("Contract read failed", "contract", contract, "method", method, "err", err)
		return nil, fmt.Errorf("%w: %s on %s: %w", interfaces.ErrQueryFailed, method, contract.Hex(), err)
	}

	r.log.Debug("Contract read", "contract", contract, "method", method, "outputs", len(out))
	return out, nil
}
