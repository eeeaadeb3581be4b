// Package fork implements the read-through cache in front of a remote chain,
// pinned to one historical height.
//
// State at a fixed height never changes, so every resolved entry is kept for
// good: first in a bounded in-memory blob cache, then in a kv store which may
// be persisted across restarts. Concurrent lookups of one key share a single
// remote request.
package fork

import (
	"context"
	"encoding/binary"
	"math/big"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/qianbin/directcache"
	"golang.org/x/sync/singleflight"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/log"
)

var logger = log.WithContext("pkg", "fork")

// Options options for the fork cache.
type Options struct {
	MaxAttempts    int           // attempts per lookup for transient failures
	InitialBackoff time.Duration // delay before the first retry
	MaxBackoff     time.Duration // delay ceiling
	RequestTimeout time.Duration // timeout of a single remote request
	HotCacheSize   int           // size in bytes of the in-memory blob cache
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RequestTimeout: 30 * time.Second,
		HotCacheSize:   64 * 1024 * 1024,
	}
}

// Cache is the fork cache. A nil *Cache is valid and represents the
// non-forked mode, in which every lookup reports absent.
type Cache struct {
	remote Remote
	height uint64
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	group singleflight.Group
	hot   *directcache.Cache
	store kv.GetPutter

	remoteCalls atomic.Uint64
}

// New creates a fork cache for the remote chain pinned at height.
// Resolved entries are written to store, in a bucket of their own per height.
func New(remote Remote, height uint64, store kv.Store, opts Options) *Cache {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = max(def.MaxBackoff, opts.InitialBackoff)
	}
	if opts.HotCacheSize <= 0 {
		opts.HotCacheSize = def.HotCacheSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		remote: remote,
		height: height,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		hot:    directcache.New(opts.HotCacheSize),
		store:  bucketOf(height).NewStore(store),
	}
}

func bucketOf(height uint64) kv.Bucket {
	var b [9]byte
	b[0] = 'f'
	binary.BigEndian.PutUint64(b[1:], height)
	return kv.Bucket(b[:])
}

// Close aborts in-flight remote requests. Cached entries stay readable.
func (c *Cache) Close() {
	if c != nil {
		c.cancel()
	}
}

// Height returns the pinned height, or 0 for the nil cache.
func (c *Cache) Height() uint64 {
	if c == nil {
		return 0
	}
	return c.height
}

// RemoteCalls returns the number of remote requests issued, retries included.
func (c *Cache) RemoteCalls() uint64 {
	if c == nil {
		return 0
	}
	return c.remoteCalls.Load()
}

// Lookup resolves the value of kind for key.
// Keys are: address (account, code), address followed by slot (storage),
// 8-byte big endian block number (header).
// Values are *Account, ganache.Bytes32, []byte and *Header respectively.
// It returns nil value and nil error in non-forked mode.
func (c *Cache) Lookup(ctx context.Context, kind Kind, key []byte) (any, error) {
	if c == nil {
		return nil, nil
	}
	switch kind {
	case KindAccount:
		if len(key) != ganache.AddressLength {
			break
		}
		return c.Account(ctx, ganache.BytesToAddress(key))
	case KindStorage:
		if len(key) != ganache.AddressLength+32 {
			break
		}
		return c.Storage(ctx, ganache.BytesToAddress(key[:ganache.AddressLength]), ganache.BytesToBytes32(key[ganache.AddressLength:]))
	case KindCode:
		if len(key) != ganache.AddressLength {
			break
		}
		return c.Code(ctx, ganache.BytesToAddress(key))
	case KindHeader:
		if len(key) != 8 {
			break
		}
		return c.Header(ctx, binary.BigEndian.Uint64(key))
	}
	return nil, &Error{Kind: kind, Key: key, Err: errors.New("invalid lookup key")}
}

// Account returns the account at the pinned height.
// It returns nil in non-forked mode.
func (c *Cache) Account(ctx context.Context, addr ganache.Address) (*Account, error) {
	if c == nil {
		return nil, nil
	}
	blob, err := c.get(ctx, KindAccount, addr.Bytes(), func(ctx context.Context) ([]byte, error) {
		acc, err := c.remote.Account(ctx, addr, c.height)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			return nil, errors.New("remote returned no account")
		}
		if acc.Balance == nil {
			acc.Balance = new(big.Int)
		}
		// index the code by address and by hash, accounts carry it anyway
		codeBlob, err := rlp.EncodeToBytes(acc.Code)
		if err != nil {
			return nil, err
		}
		c.put(KindCode, addr.Bytes(), codeBlob)
		codeHash := acc.CodeHash()
		c.put(kindCodeHash, codeHash.Bytes(), codeBlob)

		return rlp.EncodeToBytes(acc)
	})
	if err != nil {
		return nil, err
	}
	var acc Account
	if err := rlp.DecodeBytes(blob, &acc); err != nil {
		return nil, errors.Wrap(err, "decode cached account")
	}
	return &acc, nil
}

// Storage returns the storage value at the pinned height.
// It returns zero in non-forked mode.
func (c *Cache) Storage(ctx context.Context, addr ganache.Address, key ganache.Bytes32) (ganache.Bytes32, error) {
	if c == nil {
		return ganache.Bytes32{}, nil
	}
	ck := append(addr.Bytes(), key.Bytes()...)
	blob, err := c.get(ctx, KindStorage, ck, func(ctx context.Context) ([]byte, error) {
		val, err := c.remote.Storage(ctx, addr, key, c.height)
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes(val)
	})
	if err != nil {
		return ganache.Bytes32{}, err
	}
	var val ganache.Bytes32
	if err := rlp.DecodeBytes(blob, &val); err != nil {
		return ganache.Bytes32{}, errors.Wrap(err, "decode cached storage")
	}
	return val, nil
}

// Code returns the code of the account at the pinned height.
// It returns nil in non-forked mode.
func (c *Cache) Code(ctx context.Context, addr ganache.Address) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	blob, err := c.get(ctx, KindCode, addr.Bytes(), func(ctx context.Context) ([]byte, error) {
		code, err := c.remote.Code(ctx, addr, c.height)
		if err != nil {
			return nil, err
		}
		blob, err := rlp.EncodeToBytes(code)
		if err != nil {
			return nil, err
		}
		codeHash := ganache.Keccak256(code)
		c.put(kindCodeHash, codeHash.Bytes(), blob)
		return blob, nil
	})
	if err != nil {
		return nil, err
	}
	return decodeCode(blob)
}

// CodeByHash returns code already fetched from the remote by its hash.
// It never issues a remote request.
func (c *Cache) CodeByHash(hash ganache.Bytes32) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	blob, ok := c.cached(kindCodeHash, hash.Bytes())
	if !ok {
		return nil, false
	}
	code, err := decodeCode(blob)
	if err != nil {
		return nil, false
	}
	return code, true
}

func decodeCode(blob []byte) ([]byte, error) {
	var code []byte
	if err := rlp.DecodeBytes(blob, &code); err != nil {
		return nil, errors.Wrap(err, "decode cached code")
	}
	return code, nil
}

// Header returns the remote block header of the given number, which must
// not be above the pinned height. It returns nil in non-forked mode.
func (c *Cache) Header(ctx context.Context, number uint64) (*Header, error) {
	if c == nil {
		return nil, nil
	}
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], number)
	if number > c.height {
		return nil, &Error{Kind: KindHeader, Key: key[:], Err: errAboveForkHeight}
	}
	blob, err := c.get(ctx, KindHeader, key[:], func(ctx context.Context) ([]byte, error) {
		h, err := c.remote.Header(ctx, number)
		if err != nil {
			return nil, err
		}
		if h == nil || h.Number != number {
			return nil, errors.New("remote returned mismatched header")
		}
		return rlp.EncodeToBytes(h)
	})
	if err != nil {
		return nil, err
	}
	var h Header
	if err := rlp.DecodeBytes(blob, &h); err != nil {
		return nil, errors.Wrap(err, "decode cached header")
	}
	return &h, nil
}

func entryKey(kind Kind, key []byte) []byte {
	return append([]byte{byte(kind)}, key...)
}

// cached returns the entry if it is already resolved.
func (c *Cache) cached(kind Kind, key []byte) ([]byte, bool) {
	k := entryKey(kind, key)

	var blob []byte
	if c.hot.AdvGet(k, func(val []byte) {
		blob = slices.Clone(val)
	}, false) && len(blob) > 0 {
		return blob, true
	}

	data, err := c.store.Get(k)
	if err != nil {
		if !c.store.IsNotFound(err) {
			logger.Warn("failed to read fork cache store", "kind", kind, "err", err)
		}
		return nil, false
	}
	c.hot.Set(k, data)
	return data, true
}

func (c *Cache) put(kind Kind, key, blob []byte) {
	k := entryKey(kind, key)
	c.hot.Set(k, blob)
	if err := c.store.Put(k, blob); err != nil {
		// the hot cache still has it; a later miss only costs a refetch
		logger.Warn("failed to persist fork cache entry", "kind", kind, "err", err)
	}
}

// get resolves an entry, fetching it from the remote at most once among concurrent callers.
// The fetch runs on the cache's own context, so a caller giving up does not fail the others.
func (c *Cache) get(ctx context.Context, kind Kind, key []byte, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if blob, ok := c.cached(kind, key); ok {
		metricLookups().AddWithLabel(1, map[string]string{"kind": kind.String(), "result": "hit"})
		return blob, nil
	}
	metricLookups().AddWithLabel(1, map[string]string{"kind": kind.String(), "result": "miss"})

	ch := c.group.DoChan(string(entryKey(kind, key)), func() (any, error) {
		// resolved by a flight which completed after our check
		if blob, ok := c.cached(kind, key); ok {
			return blob, nil
		}

		var blob []byte
		start := mclock.Now()
		attempts, err := retryWithBackoff(c.ctx, c.opts.MaxAttempts, c.opts.InitialBackoff, c.opts.MaxBackoff, c.opts.RequestTimeout,
			func(ctx context.Context) (err error) {
				c.remoteCalls.Add(1)
				metricRemoteCalls().AddWithLabel(1, map[string]string{"kind": kind.String()})
				blob, err = fetch(ctx)
				return
			})
		metricRemoteDuration().ObserveWithLabels(time.Duration(mclock.Now()-start).Milliseconds(), map[string]string{"kind": kind.String()})

		if err != nil {
			ferr := &Error{
				Kind:      kind,
				Key:       slices.Clone(key),
				Attempts:  attempts,
				Retryable: IsTransient(err),
				Err:       err,
			}
			if ferr.Retryable {
				logger.Warn("remote lookup failed", "kind", kind, "attempts", attempts, "err", err)
			} else {
				logger.Debug("remote lookup rejected", "kind", kind, "attempts", attempts, "err", err)
			}
			return nil, ferr
		}
		c.put(kind, key, blob)
		return blob, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
