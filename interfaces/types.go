package interfaces

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState describes where the session is in its connect/disconnect cycle.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

// String returns the lowercase name of the state.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Role is the coarse capability level derived from a session.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleUser   Role = "user"
	RoleIssuer Role = "issuer"
	RoleAdmin  Role = "admin"
)

// Balance is a native currency amount in base units together with its
// currency metadata.
type Balance struct {
	Value    *big.Int
	Decimals uint8
	Symbol   string
}

// Clone returns a deep copy of the balance.
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	cp := *b
	if b.Value != nil {
		cp.Value = new(big.Int).Set(b.Value)
	}
	return &cp
}

// Formatted renders the value in whole units, e.g. "1.5" for 1.5e18 wei at 18 decimals.
// Trailing fractional zeros are dropped.
func (b *Balance) Formatted() string {
	if b == nil || b.Value == nil {
		return "0"
	}
	value := new(big.Int).Set(b.Value)
	neg := value.Sign() < 0
	value.Abs(value)

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(b.Decimals)), nil)
	whole, frac := new(big.Int).QuoRem(value, unit, new(big.Int))

	out := whole.String()
	if b.Decimals > 0 && frac.Sign() != 0 {
		fracStr := frac.String()
		fracStr = strings.Repeat("0", int(b.Decimals)-len(fracStr)) + fracStr
		out += "." + strings.TrimRight(fracStr, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// String returns the formatted amount followed by the currency symbol.
func (b *Balance) String() string {
	return strings.TrimSpace(b.Formatted() + " " + b.Symbol)
}

// MarshalJSON encodes the raw value as a decimal string to avoid precision loss.
func (b *Balance) MarshalJSON() ([]byte, error) {
	value := "0"
	if b.Value != nil {
		value = b.Value.String()
	}
	return json.Marshal(struct {
		Value     string `json:"value"`
		Decimals  uint8  `json:"decimals"`
		Symbol    string `json:"symbol"`
		Formatted string `json:"formatted"`
	}{value, b.Decimals, b.Symbol, b.Formatted()})
}

// Session is the derived wallet state of one running client instance.
//
// IsAdmin and IsTrustedIssuer always read false while Address is nil.
// ConnectionState == Connected implies Address != nil.
type Session struct {
	Address         *common.Address
	ConnectionState ConnectionState
	IsAdmin         bool
	IsTrustedIssuer bool
	// IssuerResolved is set once the issuer query for the current address
	// has completed, whether it succeeded or not.
	IssuerResolved bool
	Balance        *Balance
}

// Clone returns a deep copy so callers cannot alias reconciler state.
func (s Session) Clone() Session {
	cp := s
	if s.Address != nil {
		addr := *s.Address
		cp.Address = &addr
	}
	cp.Balance = s.Balance.Clone()
	return cp
}

// IsConnected reports whether the session holds a connected account.
func (s Session) IsConnected() bool {
	return s.ConnectionState == Connected && s.Address != nil
}

// Role returns the highest capability of the connected account.
func (s Session) Role() Role {
	switch {
	case s.Address == nil:
		return RoleGuest
	case s.IsAdmin:
		return RoleAdmin
	case s.IsTrustedIssuer:
		return RoleIssuer
	default:
		return RoleUser
	}
}

// DisplayAddress returns the lowercase hex address, or an empty string when
// disconnected.
func (s Session) DisplayAddress() string {
	if s.Address == nil {
		return ""
	}
	return NormalizeAddress(*s.Address)
}

// MarshalJSON renders the session as served to rendering layers.
func (s Session) MarshalJSON() ([]byte, error) {
	var addr *string
	if s.Address != nil {
		a := s.DisplayAddress()
		addr = &a
	}
	return json.Marshal(struct {
		Address         *string         `json:"address"`
		ConnectionState ConnectionState `json:"connectionState"`
		IsAdmin         bool            `json:"isAdmin"`
		IsTrustedIssuer bool            `json:"isTrustedIssuer"`
		IssuerResolved  bool            `json:"issuerResolved"`
		Role            Role            `json:"role"`
		Balance         *Balance        `json:"balance"`
	}{addr, s.ConnectionState, s.IsAdmin, s.IsTrustedIssuer, s.IssuerResolved, s.Role(), s.Balance})
}

// NormalizeAddress returns the lowercase 0x-prefixed hex form of an address.
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ParseAddress parses a 0x-prefixed or bare 40 character hex address.
// Parsing is case-insensitive.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q: must be 40 hex characters", s)
	}
	return common.HexToAddress(s), nil
}

// NotificationKind classifies user-facing session notifications.
type NotificationKind string

const (
	KindConnected        NotificationKind = "connected"
	KindDisconnected     NotificationKind = "disconnected"
	KindConnectFailed    NotificationKind = "connect_failed"
	KindDisconnectFailed NotificationKind = "disconnect_failed"
	KindNoProvider       NotificationKind = "no_provider"
)

// Destructive reports whether the notification describes a failure.
func (k NotificationKind) Destructive() bool {
	switch k {
	case KindConnectFailed, KindDisconnectFailed, KindNoProvider:
		return true
	}
	return false
}

// ConnectorInfo describes a wallet connector offered by a connection provider.
type ConnectorInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// InjectedConnectorType is the connector type used for locally injected wallets.
const InjectedConnectorType = "injected"
