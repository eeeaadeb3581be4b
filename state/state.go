// Copyright (c) 2018 The VeChainThor developers

package state

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/stackedmap"
	"github.com/trufflesuite/ganache-sub010/trie"
)

// CodeBucket is the bucket codes are persisted in, keyed by code hash.
const CodeBucket = kv.Bucket("c")

var (
	errInsufficientBalance = errors.New("insufficient balance")
	errNonceDecrease       = errors.New("nonce decrease")
	errNegativeBalance     = errors.New("negative balance")
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsInsufficientBalance returns whether the error is caused by subtracting
// more than the balance.
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, errInsufficientBalance)
}

// IsNonceDecrease returns whether the error is caused by lowering a nonce.
func IsNonceDecrease(err error) bool {
	return errors.Is(err, errNonceDecrease)
}

// State manages the world state.
type State struct {
	db    *trie.Database
	store kv.Store
	codes kv.Getter
	fork  *fork.Cache
	trie  *trie.Trie                        // the accounts trie reader
	cache map[ganache.Address]*cachedObject // cache of accounts trie
	sm    *stackedmap.StackedMap            // keeps revisions of accounts state
}

// New create state object.
// The fork cache may be nil, in which case the state is not forked.
func New(db *trie.Database, store kv.Store, root ganache.Bytes32, fc *fork.Cache) *State {
	state := State{
		db:    db,
		store: store,
		codes: CodeBucket.NewGetter(store),
		fork:  fc,
		trie:  trie.New(root, db, 32),
		cache: make(map[ganache.Address]*cachedObject),
	}

	state.sm = stackedmap.New(func(key any) (any, bool, error) {
		return state.cacheGetter(key)
	})
	return &state
}

// Checkout checkouts to another state.
func (s *State) Checkout(root ganache.Bytes32) *State {
	return New(s.db, s.store, root, s.fork)
}

// Forked returns whether the state falls through to a remote chain.
func (s *State) Forked() bool {
	return s.fork != nil
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case ganache.Address: // get account
		obj, err := s.getCachedObject(k)
		if err != nil {
			return nil, false, err
		}
		return &obj.data, true, nil
	case codeKey: // get code
		obj, err := s.getCachedObject(ganache.Address(k))
		if err != nil {
			return nil, false, err
		}
		code, err := obj.GetCode()
		if err != nil {
			return nil, false, err
		}
		return code, true, nil
	case storageKey: // get storage
		// the address was deleted in the life-cycle of this state instance,
		// treat its storage as an empty set.
		if k.barrier != 0 {
			return ganache.Bytes32{}, true, nil
		}
		obj, err := s.getCachedObject(k.addr)
		if err != nil {
			return nil, false, err
		}
		v, err := obj.GetStorage(k.key)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	case storageBarrierKey: // get barrier, 0 as initial value
		return 0, true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

func (s *State) getCachedObject(addr ganache.Address) (*cachedObject, error) {
	if co, ok := s.cache[addr]; ok {
		return co, nil
	}
	co := &cachedObject{db: s.db, codes: s.codes, fork: s.fork, addr: addr}

	a, err := loadAccount(s.trie, addr)
	if err != nil {
		return nil, err
	}
	switch {
	case a != nil:
		metricAccountReads().AddWithLabel(1, map[string]string{"source": "trie"})
		co.data = *a
	case s.fork != nil:
		metricAccountReads().AddWithLabel(1, map[string]string{"source": "fork"})
		fa, err := s.fork.Account(context.Background(), addr)
		if err != nil {
			return nil, err
		}
		co.data = *accountFromFork(fa)
		if len(fa.Code) > 0 {
			co.cache.code = fa.Code
		}
	default:
		metricAccountReads().AddWithLabel(1, map[string]string{"source": "empty"})
		co.data = *emptyAccount()
	}
	s.cache[addr] = co
	return co, nil
}

// getAccount gets account by address. the returned account should not be modified.
func (s *State) getAccount(addr ganache.Address) (*Account, error) {
	v, _, err := s.sm.Get(addr)
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

// getAccountCopy get a copy of account by address.
func (s *State) getAccountCopy(addr ganache.Address) (Account, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return Account{}, err
	}
	cpy := *acc
	cpy.Balance = new(big.Int).Set(acc.Balance)
	return cpy, nil
}

func (s *State) updateAccount(addr ganache.Address, acc *Account) {
	s.sm.Put(addr, acc)
}

func (s *State) getStorageBarrier(addr ganache.Address) int {
	b, _, _ := s.sm.Get(storageBarrierKey(addr))
	return b.(int)
}

func (s *State) setStorageBarrier(addr ganache.Address, barrier int) {
	s.sm.Put(storageBarrierKey(addr), barrier)
}

// GetAccount returns a copy of the account at the given address.
func (s *State) GetAccount(addr ganache.Address) (*Account, error) {
	acc, err := s.getAccountCopy(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return &acc, nil
}

// GetBalance returns balance for the given address.
func (s *State) GetBalance(addr ganache.Address) (*big.Int, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return new(big.Int).Set(acc.Balance), nil
}

// SetBalance set balance for the given address.
func (s *State) SetBalance(addr ganache.Address, balance *big.Int) error {
	if balance.Sign() < 0 {
		return &Error{errNegativeBalance}
	}
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Balance.Set(balance)
	s.updateAccount(addr, &cpy)
	return nil
}

// AddBalance adds amount to the balance of the given address.
func (s *State) AddBalance(addr ganache.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Balance.Add(cpy.Balance, amount)
	if cpy.Balance.Sign() < 0 {
		return &Error{errNegativeBalance}
	}
	s.updateAccount(addr, &cpy)
	return nil
}

// SubBalance subtracts amount from the balance of the given address.
// The balance is left untouched if it is less than amount.
func (s *State) SubBalance(addr ganache.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	if cpy.Balance.Cmp(amount) < 0 {
		return &Error{errInsufficientBalance}
	}
	cpy.Balance.Sub(cpy.Balance, amount)
	s.updateAccount(addr, &cpy)
	return nil
}

// GetNonce returns nonce for the given address.
func (s *State) GetNonce(addr ganache.Address) (uint64, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return 0, &Error{err}
	}
	return acc.Nonce, nil
}

// SetNonce set nonce for the given address. The nonce never decreases.
func (s *State) SetNonce(addr ganache.Address, nonce uint64) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	if nonce < cpy.Nonce {
		return &Error{errors.Wrapf(errNonceDecrease, "%d -> %d", cpy.Nonce, nonce)}
	}
	cpy.Nonce = nonce
	s.updateAccount(addr, &cpy)
	return nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr ganache.Address, key ganache.Bytes32) (ganache.Bytes32, error) {
	v, _, err := s.sm.Get(storageKey{addr, s.getStorageBarrier(addr), key})
	if err != nil {
		return ganache.Bytes32{}, &Error{err}
	}
	return v.(ganache.Bytes32), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr ganache.Address, key, value ganache.Bytes32) {
	s.sm.Put(storageKey{addr, s.getStorageBarrier(addr), key}, value)
}

// GetCode returns code for the given address.
func (s *State) GetCode(addr ganache.Address) ([]byte, error) {
	v, _, err := s.sm.Get(codeKey(addr))
	if err != nil {
		return nil, &Error{err}
	}
	return v.([]byte), nil
}

// GetCodeHash returns code hash for the given address.
func (s *State) GetCodeHash(addr ganache.Address) (ganache.Bytes32, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return ganache.Bytes32{}, &Error{err}
	}
	return ganache.BytesToBytes32(acc.CodeHash), nil
}

// GetCodeByHash returns code by its hash, from the local code store or codes
// already fetched from the fork. It returns nil if not found.
func (s *State) GetCodeByHash(hash ganache.Bytes32) ([]byte, error) {
	if hash == ganache.EmptyCodeHash {
		return nil, nil
	}
	code, err := loadCode(s.codes, s.fork, hash)
	if err != nil {
		return nil, &Error{err}
	}
	return code, nil
}

// SetCode set code for the given address.
func (s *State) SetCode(addr ganache.Address, code []byte) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}

	var codeHash []byte
	if len(code) > 0 {
		s.sm.Put(codeKey(addr), code)
		hash := ganache.Keccak256(code)
		codeHash = hash.Bytes()
		codeCache.Add(hash, code)
	} else {
		s.sm.Put(codeKey(addr), []byte(nil))
	}
	cpy.CodeHash = codeHash
	s.updateAccount(addr, &cpy)
	return nil
}

// Exists returns whether an account exists at the given address.
// See Account.IsEmpty()
func (s *State) Exists(addr ganache.Address) (bool, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return false, &Error{err}
	}
	return !acc.IsEmpty(), nil
}

// Delete delete an account at the given address.
// That's set nonce, balance, code and storage to zero value.
func (s *State) Delete(addr ganache.Address) {
	s.sm.Put(codeKey(addr), []byte(nil))
	acc := emptyAccount()
	acc.Detached = s.fork != nil
	s.updateAccount(addr, acc)
	// increase the barrier value
	s.setStorageBarrier(addr, s.getStorageBarrier(addr)+1)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns the handle of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// Commit merges writes since the checkpoint into its parent.
// Only the innermost checkpoint can be committed, it panics otherwise.
func (s *State) Commit(checkpoint int) {
	if checkpoint < 1 || checkpoint != s.sm.Depth()-1 {
		panic(fmt.Sprintf("state: commit checkpoint %d at depth %d", checkpoint, s.sm.Depth()))
	}
	s.sm.Merge()
}

// RevertTo reverts to the checkpoint, discarding every write since it was
// made, including those of nested checkpoints committed into it.
func (s *State) RevertTo(checkpoint int) {
	if checkpoint < 1 {
		panic(fmt.Sprintf("state: revert to checkpoint %d", checkpoint))
	}
	s.sm.PopTo(checkpoint)
}

// Depth returns the number of open checkpoints plus the base frame.
func (s *State) Depth() int {
	return s.sm.Depth()
}

type (
	storageKey struct {
		addr    ganache.Address
		barrier int
		key     ganache.Bytes32
	}
	codeKey           ganache.Address
	storageBarrierKey ganache.Address
)
