package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// MockQueryClient mocks the QueryClient interface
type MockQueryClient struct {
	mock.Mock
}

// Read mocks the Read method. The ABI is not passed to the mock expectations.
func (m *MockQueryClient) Read(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	called := m.Called(contract, method, args)
	out, _ := called.Get(0).([]any)
	return out, called.Error(1)
}

// MockIssuerChecker mocks the IssuerChecker interface
type MockIssuerChecker struct {
	mock.Mock
}

// IsTrustedIssuer mocks the IsTrustedIssuer method
func (m *MockIssuerChecker) IsTrustedIssuer(ctx context.Context, account common.Address) (bool, error) {
	args := m.Called(account)
	return args.Bool(0), args.Error(1)
}

// MockBalanceSource mocks the BalanceSource interface
type MockBalanceSource struct {
	mock.Mock
}

// BalanceOf mocks the BalanceOf method
func (m *MockBalanceSource) BalanceOf(ctx context.Context, account common.Address) (*interfaces.Balance, error) {
	args := m.Called(account)
	balance, _ := args.Get(0).(*interfaces.Balance)
	return balance, args.Error(1)
}
