// Copyright (c) 2018 The VeChainThor developers

package state

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/trie"
)

// Account is the consensus representation of an account.
// RLP encoded objects are stored in main account trie.
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	CodeHash    []byte // hash of code, empty if no code
	StorageRoot []byte // merkle root of the storage trie, empty if no storage
	Detached    bool   `rlp:"optional"` // storage does not fall through to the fork
}

// IsEmpty returns if an account is empty.
// An empty account has zero nonce, zero balance and zero length code hash.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 &&
		a.Balance.Sign() == 0 &&
		len(a.CodeHash) == 0
}

func emptyAccount() *Account {
	return &Account{Balance: &big.Int{}}
}

// accountFromFork converts the remote account into local form.
func accountFromFork(fa *fork.Account) *Account {
	a := emptyAccount()
	a.Nonce = fa.Nonce
	if fa.Balance != nil {
		a.Balance.Set(fa.Balance)
	}
	if len(fa.Code) > 0 {
		a.CodeHash = fa.CodeHash().Bytes()
	}
	return a
}

// secureKey hashes trie keys so that paths are evenly distributed.
func secureKey(key []byte) []byte {
	h := ganache.Keccak256(key)
	return h[:]
}

// loadAccount load an account object by address in trie.
// It returns nil if no account found at the address.
func loadAccount(tr *trie.Trie, addr ganache.Address) (*Account, error) {
	data, err := tr.Get(secureKey(addr[:]))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var a Account
	if err := rlp.DecodeBytes(data, &a); err != nil {
		return nil, err
	}
	if a.Balance == nil {
		a.Balance = &big.Int{}
	}
	return &a, nil
}

// saveAccount save account into trie at given address.
// If the given account is empty and keep is false, the value for given address is deleted.
func saveAccount(tr *trie.Trie, addr ganache.Address, a *Account, keep bool) error {
	if a.IsEmpty() && !keep {
		return tr.Delete(secureKey(addr[:]))
	}
	data, err := rlp.EncodeToBytes(a)
	if err != nil {
		return err
	}
	return tr.Update(secureKey(addr[:]), data)
}

// encodeStorage encodes the storage value in its trie form.
// A zero value encodes to nil, or to an explicit zero when tombstone is set.
func encodeStorage(value ganache.Bytes32, tombstone bool) rlp.RawValue {
	trimmed := bytes.TrimLeft(value[:], "\x00")
	if len(trimmed) == 0 && !tombstone {
		return nil
	}
	v, _ := rlp.EncodeToBytes(trimmed)
	return v
}

// decodeStorage decodes the trie form of a storage value.
func decodeStorage(raw rlp.RawValue) (ganache.Bytes32, error) {
	if len(raw) == 0 {
		return ganache.Bytes32{}, nil
	}
	_, content, _, err := rlp.Split(raw)
	if err != nil {
		return ganache.Bytes32{}, err
	}
	return ganache.BytesToBytes32(content), nil
}

// loadStorage load storage data for given key.
func loadStorage(tr *trie.Trie, key ganache.Bytes32) (rlp.RawValue, error) {
	return tr.Get(secureKey(key[:]))
}

// saveStorage save value for given key.
// If the data is empty, the given key will be deleted.
func saveStorage(tr *trie.Trie, key ganache.Bytes32, data rlp.RawValue) error {
	return tr.Update(secureKey(key[:]), data)
}
