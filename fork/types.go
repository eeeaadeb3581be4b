package fork

import (
	"context"
	"fmt"
	"math/big"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// Kind is the kind of a fork lookup.
type Kind byte

// lookup kinds.
const (
	KindAccount Kind = iota + 1
	KindStorage
	KindCode
	KindHeader
	kindCodeHash // local index only, never fetched
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindStorage:
		return "storage"
	case KindCode:
		return "code"
	case KindHeader:
		return "header"
	case kindCodeHash:
		return "codehash"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Account is an account as the remote reports it at the pinned height.
type Account struct {
	Nonce   uint64
	Balance *big.Int
	Code    []byte
}

// CodeHash returns the keccak256 of the account's code.
func (a *Account) CodeHash() ganache.Bytes32 {
	return ganache.Keccak256(a.Code)
}

// IsEmpty reports whether the account has no nonce, balance or code.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.Sign() == 0) && len(a.Code) == 0
}

// Header is the subset of a remote block header the local chain needs.
type Header struct {
	Number      uint64
	Hash        ganache.Bytes32
	ParentHash  ganache.Bytes32
	Timestamp   uint64
	GasLimit    uint64
	GasUsed     uint64
	BaseFee     *big.Int `rlp:"nil"`
	StateRoot   ganache.Bytes32
	Beneficiary ganache.Address
}

// Remote answers historical state queries against a remote chain.
// Failures that may succeed when retried must be marked with Transient.
type Remote interface {
	Account(ctx context.Context, addr ganache.Address, height uint64) (*Account, error)
	Storage(ctx context.Context, addr ganache.Address, key ganache.Bytes32, height uint64) (ganache.Bytes32, error)
	Code(ctx context.Context, addr ganache.Address, height uint64) ([]byte, error)
	Header(ctx context.Context, number uint64) (*Header, error)
}
