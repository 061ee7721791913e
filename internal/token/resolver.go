// internal/token/resolver.go
// Package token resolves ERC-20 style token metadata, tolerating the
// many tokens that implement the interface only partially.
package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
)

// Sentinels substituted for individual fields that revert or time out,
// so a non-standard token does not abort the whole resolution.
const (
	UnknownName   = "Unknown"
	UnknownSymbol = "???"
)

const defaultDecimals = 18

// Info is an immutable snapshot of a token's declared facts. It is
// re-fetched per analysis and never cached: supply and owner can change.
type Info struct {
	Address     common.Address
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	Owner       *common.Address // nil when no owner is reported
}

// MetadataReader is the chain-gateway slice the resolver consumes.
type MetadataReader interface {
	HasCode(ctx context.Context, addr common.Address) (bool, error)
	TokenName(ctx context.Context, token common.Address) (string, error)
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	TokenTotalSupply(ctx context.Context, token common.Address) (*big.Int, error)
	TokenOwner(ctx context.Context, token common.Address, accessor string) (common.Address, error)
}

// Resolver fetches token metadata through the chain gateway.
type Resolver struct {
	reader MetadataReader
	logger *zap.Logger
}

// NewResolver creates a metadata resolver.
func NewResolver(reader MetadataReader, logger *zap.Logger) *Resolver {
	return &Resolver{
		reader: reader,
		logger: logger.Named("token_resolver"),
	}
}

// Resolve validates the address and fetches the token snapshot. It fails
// wholesale only for malformed addresses and addresses with no contract
// code; any individual field falls back to its sentinel instead.
func (r *Resolver) Resolve(ctx context.Context, address string) (*Info, error) {
	addr, err := chain.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return r.ResolveAddress(ctx, addr)
}

// ResolveAddress fetches the token snapshot for a validated address.
func (r *Resolver) ResolveAddress(ctx context.Context, addr common.Address) (*Info, error) {
	hasCode, err := r.reader.HasCode(ctx, addr)
	if err == nil && !hasCode {
		return nil, chain.ErrNotContract
	}

	info := &Info{Address: addr}

	info.Name = stringField(UnknownName, func() (string, error) {
		return r.reader.TokenName(ctx, addr)
	})
	info.Symbol = stringField(UnknownSymbol, func() (string, error) {
		return r.reader.TokenSymbol(ctx, addr)
	})

	if decimals, err := r.reader.TokenDecimals(ctx, addr); err == nil {
		info.Decimals = decimals
	} else {
		r.logger.Debug("decimals call failed, using default",
			zap.String("token", addr.Hex()), zap.Error(err))
		info.Decimals = defaultDecimals
	}

	if supply, err := r.reader.TokenTotalSupply(ctx, addr); err == nil {
		info.TotalSupply = supply
	} else {
		r.logger.Debug("totalSupply call failed, using zero",
			zap.String("token", addr.Hex()), zap.Error(err))
		info.TotalSupply = big.NewInt(0)
	}

	info.Owner = r.probeOwner(ctx, addr)

	return info, nil
}

// stringField runs a probe and substitutes the sentinel on failure.
func stringField(fallback string, probe func() (string, error)) string {
	value, err := probe()
	if err != nil || value == "" {
		return fallback
	}
	return value
}

// probeOwner tries the alternative owner accessors in order. Both
// failing means "no owner reported", not an error.
func (r *Resolver) probeOwner(ctx context.Context, addr common.Address) *common.Address {
	for _, accessor := range []string{"owner", "getOwner"} {
		owner, err := r.reader.TokenOwner(ctx, addr, accessor)
		if err == nil {
			return &owner
		}
	}
	r.logger.Debug("no owner accessor answered", zap.String("token", addr.Hex()))
	return nil
}
