// Copyright (c) 2018 The VeChainThor developers

package genesis

import (
	"crypto/ecdsa"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// DevAccount account for development.
type DevAccount struct {
	Address    ganache.Address
	PrivateKey *ecdsa.PrivateKey
}

// DefaultDevBalance is the balance of each dev account, 1000 ether.
var DefaultDevBalance = new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))

var (
	devKeys = []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
		"88d2d80b12b92feaa0da6d62309463d20408157723f2d7e799b6a74ead9a673b",
		"fbb9e7ba5fe9969a71c6599052237b91adeb1e5fc0c96727b66e56ff5d02f9d0",
		"547fb081e73dc2e22b4aae5c60e2970b008ac4fc3073aebc27d41ace9c4f53e9",
		"c8c53657e41a8d669349fc287f57457bd746cb1fcfc38cf94d235deb2cfca81b",
		"87e0eba9c86c494d98353800571089f316740b0cb84c9a7cdf2fe5c9997c7966",
	}

	devAccountsMu sync.Mutex
	devAccounts   []DevAccount
)

// DevAccounts returns the first n deterministic dev accounts.
// Accounts past the built-in keys are derived by hashing their index.
func DevAccounts(n int) []DevAccount {
	devAccountsMu.Lock()
	defer devAccountsMu.Unlock()

	for i := len(devAccounts); i < n; i++ {
		var (
			pk  *ecdsa.PrivateKey
			err error
		)
		if i < len(devKeys) {
			pk, err = crypto.HexToECDSA(devKeys[i])
		} else {
			var seed [8]byte
			binary.BigEndian.PutUint64(seed[:], uint64(i))
			pk, err = crypto.ToECDSA(crypto.Keccak256([]byte("dev account"), seed[:]))
		}
		if err != nil {
			panic(err)
		}
		devAccounts = append(devAccounts, DevAccount{ganache.Address(crypto.PubkeyToAddress(pk.PublicKey)), pk})
	}
	return append([]DevAccount(nil), devAccounts[:n]...)
}

// AllocDevAccounts funds each of accounts with balance.
func (b *Builder) AllocDevAccounts(accounts []DevAccount, balance *big.Int) *Builder {
	for _, acc := range accounts {
		b.Alloc(acc.Address, balance)
	}
	return b
}
