// internal/chain/types.go
package chain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidAddress is returned before any network call when a caller
	// supplies a malformed chain address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNotContract is returned when an address has no contract code.
	ErrNotContract = errors.New("no contract code at address")

	// ErrReadOnly is returned by write operations when no signing key is
	// configured.
	ErrReadOnly = errors.New("read-only mode: no signing key configured")

	// ErrConfirmTimeout is returned when a submitted transaction was not
	// confirmed within the deadline. The transaction may still be mined
	// later; this is not equivalent to a revert.
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation: transaction may still be mined")

	// ErrReverted is returned when a confirmed receipt reports failure.
	ErrReverted = errors.New("transaction reverted")
)

var (
	// ZeroAddress is the canonical null address.
	ZeroAddress = common.Address{}

	// DeadAddress is the conventional burn address used for ownership
	// renouncement.
	DeadAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	// MaxUint256 is used for effectively unlimited token allowances.
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// DefaultGasPrice is the fallback gas price (30 gwei) used when the
	// node declines to report fee data.
	DefaultGasPrice = new(big.Int).Mul(big.NewInt(30), big.NewInt(1_000_000_000))
)

// PairReserves holds a pool's reserves together with its token ordering.
// Pools do not guarantee which side a given token occupies; Token0
// disambiguates.
type PairReserves struct {
	Pair     common.Address
	Token0   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// TxOutcome summarizes a confirmed transaction.
type TxOutcome struct {
	Hash        string
	GasUsed     uint64
	BlockNumber uint64
}

// ParseAddress validates and normalizes a hex chain address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(s), nil
}

// IsRenouncedOwner reports whether an owner address counts as renounced:
// the zero address and the conventional burn address are both unusable.
func IsRenouncedOwner(owner common.Address) bool {
	return owner == ZeroAddress || owner == DeadAddress
}
