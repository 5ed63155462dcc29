// Package registry holds the static per-chain configuration table:
// display names, token metadata, contract addresses, and the fallback
// RPC and explorer endpoints used when the injected provider cannot be
// trusted. The table is immutable after construction.
package registry

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/types"
)

// Config is one network's entry in the registry.
type Config struct {
	ChainID uint64
	Name    string

	// Tokens accepted for invoice payment on this network. The first
	// entry with a zero address is the native asset.
	Tokens []types.Token

	// InvoiceAddr and AutomationAddr are the deployed contract
	// addresses. A zero address disables the corresponding write
	// operations for this network instead of failing.
	InvoiceAddr    common.Address
	AutomationAddr common.Address

	// FallbackRPC is a direct JSON-RPC endpoint used when the injected
	// provider's chain reporting lags the wallet state. Empty means no
	// safe fallback exists for this chain.
	FallbackRPC string

	// ExplorerAPI is the block-explorer read API base URL, display only.
	// ExplorerKey authenticates against it; basescan and polygonscan
	// issue separate keys, so the key is per network.
	ExplorerAPI string
	ExplorerKey string
}

// Token looks up token metadata by contract address.
func (c Config) Token(addr common.Address) (types.Token, bool) {
	for _, t := range c.Tokens {
		if t.Address == addr {
			return t, true
		}
	}
	return types.Token{}, false
}

// TokenDecimals returns the configured decimal count for addr, or the
// native convention of 18 when the token is unknown. Per-address
// hard-coding here is a compatibility shim; prefer configured metadata.
func (c Config) TokenDecimals(addr common.Address) int32 {
	if t, ok := c.Token(addr); ok {
		return t.Decimals
	}
	return types.NativeDecimals
}

// InvoiceWritesEnabled reports whether invoice write operations may run
// on this network.
func (c Config) InvoiceWritesEnabled() bool {
	return c.InvoiceAddr != (common.Address{})
}

// AutomationWritesEnabled reports whether scheduled-payment writes may
// run on this network.
func (c Config) AutomationWritesEnabled() bool {
	return c.AutomationAddr != (common.Address{})
}

// Registry maps chain ids to network configs with one designated
// default. Lookups never fail: unsupported chains degrade to the
// default, which callers must treat as a "may be displaying data for the
// wrong chain" condition.
type Registry struct {
	configs        map[uint64]Config
	defaultChainID uint64
}

// New builds a registry from configs. The default chain id must be one
// of the supplied configs.
func New(configs []Config, defaultChainID uint64) (*Registry, error) {
	m := make(map[uint64]Config, len(configs))
	for _, c := range configs {
		if c.ChainID == 0 {
			return nil, fmt.Errorf("registry: config %q has no chain id", c.Name)
		}
		if _, dup := m[c.ChainID]; dup {
			return nil, fmt.Errorf("registry: duplicate chain id %d", c.ChainID)
		}
		m[c.ChainID] = c
	}
	if _, ok := m[defaultChainID]; !ok {
		return nil, fmt.Errorf("registry: default chain id %d is not registered", defaultChainID)
	}
	return &Registry{configs: m, defaultChainID: defaultChainID}, nil
}

// Resolve returns the exact config for chainID, or the designated
// default when the chain is unsupported. Use Lookup when the caller
// needs to distinguish the two.
func (r *Registry) Resolve(chainID uint64) Config {
	if c, ok := r.configs[chainID]; ok {
		return c
	}
	return r.configs[r.defaultChainID]
}

// Lookup returns the config for chainID and whether the match was
// exact. A false second return means Resolve would have silently fallen
// back to the default.
func (r *Registry) Lookup(chainID uint64) (Config, bool) {
	c, ok := r.configs[chainID]
	if !ok {
		return r.configs[r.defaultChainID], false
	}
	return c, true
}

// Default returns the designated default config.
func (r *Registry) Default() Config {
	return r.configs[r.defaultChainID]
}

// All returns every registered config.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	return out
}

// Supported networks. USDC addresses are the official Circle
// deployments per chain; decimals differ per token and must not be
// assumed uniform.
const (
	ChainPolygon     uint64 = 137
	ChainPolygonAmoy uint64 = 80002
	ChainBase        uint64 = 8453
	ChainBaseSepolia uint64 = 84532
)

func builtinConfigs() []Config {
	return []Config{
		{
			ChainID: ChainBaseSepolia,
			Name:    "base-sepolia",
			Tokens: []types.Token{
				{Symbol: "ETH", Decimals: 18},
				{
					Address:  common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
					Symbol:   "USDC",
					Decimals: 6,
					LogoURL:  "https://ethereum-optimism.github.io/data/USDC/logo.png",
				},
			},
			FallbackRPC: "https://sepolia.base.org",
			ExplorerAPI: "https://api-sepolia.basescan.org/api",
		},
		{
			ChainID: ChainBase,
			Name:    "base",
			Tokens: []types.Token{
				{Symbol: "ETH", Decimals: 18},
				{
					Address:  common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
					Symbol:   "USDC",
					Decimals: 6,
					LogoURL:  "https://ethereum-optimism.github.io/data/USDC/logo.png",
				},
			},
			FallbackRPC: "https://mainnet.base.org",
			ExplorerAPI: "https://api.basescan.org/api",
		},
		{
			ChainID: ChainPolygon,
			Name:    "polygon",
			Tokens: []types.Token{
				{Symbol: "POL", Decimals: 18},
				{
					Address:  common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
					Symbol:   "USDC",
					Decimals: 6,
				},
			},
			FallbackRPC: "https://polygon-rpc.com",
			ExplorerAPI: "https://api.polygonscan.com/api",
		},
		{
			ChainID: ChainPolygonAmoy,
			Name:    "polygon-amoy",
			Tokens: []types.Token{
				{Symbol: "POL", Decimals: 18},
				{
					Address:  common.HexToAddress("0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"),
					Symbol:   "USDC",
					Decimals: 6,
				},
			},
			FallbackRPC: "https://rpc-amoy.polygon.technology",
			ExplorerAPI: "https://api-amoy.polygonscan.com/api",
		},
	}
}

// Builtin returns the compiled-in registry with contract addresses
// merged from the environment. Missing addresses leave the network
// readable but disable its write operations.
func Builtin() (*Registry, error) {
	configs := builtinConfigs()
	for i := range configs {
		configs[i].InvoiceAddr = envAddress("CHAINVOICE_INVOICE_ADDR", configs[i].ChainID)
		configs[i].AutomationAddr = envAddress("CHAINVOICE_AUTOMATION_ADDR", configs[i].ChainID)
		configs[i].ExplorerKey = envExplorerKey(configs[i].ChainID)
	}
	return New(configs, ChainBaseSepolia)
}

// envExplorerKey reads the per-network explorer API key, falling back
// to the shared CHAINVOICE_EXPLORER_KEY.
func envExplorerKey(chainID uint64) string {
	if v := os.Getenv(fmt.Sprintf("CHAINVOICE_EXPLORER_KEY_%d", chainID)); v != "" {
		return v
	}
	return os.Getenv("CHAINVOICE_EXPLORER_KEY")
}

func envAddress(prefix string, chainID uint64) common.Address {
	v := os.Getenv(fmt.Sprintf("%s_%d", prefix, chainID))
	if !common.IsHexAddress(v) {
		return common.Address{}
	}
	return common.HexToAddress(v)
}
