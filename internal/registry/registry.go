package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Entry is a raw token definition as it appears in configuration.
type Entry struct {
	Symbol      string `mapstructure:"symbol"`
	Address     string `mapstructure:"address"`
	TickSpacing int32  `mapstructure:"tick-spacing"`
	PairAddress string `mapstructure:"pair-address"`
}

// Token is a validated registry entry. PairAddress identifies the pool the
// price oracle quotes for this token against the native currency.
type Token struct {
	Symbol      string
	Address     common.Address
	TickSpacing int32
	PairAddress common.Address
}

// Registry resolves tokens by symbol or contract address. All entries are
// validated at load time so lookups never produce an undefined value.
type Registry struct {
	bySymbol  map[string]Token
	byAddress map[common.Address]Token
}

// Load validates entries and builds a Registry.
func Load(entries []Entry) (*Registry, error) {
	r := &Registry{
		bySymbol:  make(map[string]Token, len(entries)),
		byAddress: make(map[common.Address]Token, len(entries)),
	}

	for _, entry := range entries {
		symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("token entry missing symbol")
		}
		if _, ok := r.bySymbol[symbol]; ok {
			return nil, fmt.Errorf("duplicate token symbol: %s", symbol)
		}
		if !common.IsHexAddress(entry.Address) {
			return nil, fmt.Errorf("token %s: invalid address: %s", symbol, entry.Address)
		}
		if !common.IsHexAddress(entry.PairAddress) {
			return nil, fmt.Errorf("token %s: invalid pair address: %s", symbol, entry.PairAddress)
		}
		if entry.TickSpacing <= 0 {
			return nil, fmt.Errorf("token %s: tick spacing must be positive, got %d", symbol, entry.TickSpacing)
		}

		token := Token{
			Symbol:      symbol,
			Address:     common.HexToAddress(entry.Address),
			TickSpacing: entry.TickSpacing,
			PairAddress: common.HexToAddress(entry.PairAddress),
		}
		r.bySymbol[symbol] = token
		r.byAddress[token.Address] = token
	}

	return r, nil
}

// Lookup resolves a token by symbol, case-insensitively.
func (r *Registry) Lookup(symbol string) (Token, bool) {
	token, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return token, ok
}

// ByAddress resolves a token by its contract address.
func (r *Registry) ByAddress(address common.Address) (Token, bool) {
	token, ok := r.byAddress[address]
	return token, ok
}

// Len reports the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.bySymbol)
}
