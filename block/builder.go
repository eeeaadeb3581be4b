package block

import (
	"math/big"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// Builder to make it easy to build a block object.
type Builder struct {
	headerBody headerBody
	txs        tx.Transactions
}

// ParentHash set parent hash.
func (b *Builder) ParentHash(hash ganache.Bytes32) *Builder {
	b.headerBody.ParentHash = hash
	return b
}

// Number set block number.
func (b *Builder) Number(n uint64) *Builder {
	b.headerBody.Number = n
	return b
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(ts uint64) *Builder {
	b.headerBody.Timestamp = ts
	return b
}

// Beneficiary set recipient of reward.
func (b *Builder) Beneficiary(addr ganache.Address) *Builder {
	b.headerBody.Beneficiary = addr
	return b
}

// GasLimit set gas limit.
func (b *Builder) GasLimit(limit uint64) *Builder {
	b.headerBody.GasLimit = limit
	return b
}

// GasUsed set gas used.
func (b *Builder) GasUsed(used uint64) *Builder {
	b.headerBody.GasUsed = used
	return b
}

// BaseFee set base fee per gas.
func (b *Builder) BaseFee(fee *big.Int) *Builder {
	if fee == nil {
		b.headerBody.BaseFee = nil
	} else {
		b.headerBody.BaseFee = new(big.Int).Set(fee)
	}
	return b
}

// StateRoot set state root.
func (b *Builder) StateRoot(hash ganache.Bytes32) *Builder {
	b.headerBody.StateRoot = hash
	return b
}

// ReceiptsRoot set receipts root.
func (b *Builder) ReceiptsRoot(hash ganache.Bytes32) *Builder {
	b.headerBody.ReceiptsRoot = hash
	return b
}

// Transaction add a transaction.
func (b *Builder) Transaction(tx *tx.Transaction) *Builder {
	b.txs = append(b.txs, tx)
	return b
}

// Build build a block object.
// The txs root is computed from the added transactions.
func (b *Builder) Build() *Block {
	header := Header{body: b.headerBody}
	header.body.TxsRoot = b.txs.RootHash()

	return &Block{
		header: &header,
		txs:    b.txs,
	}
}
