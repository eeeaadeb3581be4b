package tx

import (
	"math/big"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// Builder to make it easy to build transaction.
type Builder struct {
	txType               byte
	chainID              uint64
	nonce                uint64
	gas                  uint64
	to                   *ganache.Address
	value                *big.Int
	data                 []byte
	maxFeePerGas         *big.Int
	maxPriorityFeePerGas *big.Int
}

// NewBuilder creates a builder of the given tx type.
func NewBuilder(txType byte) *Builder {
	return &Builder{txType: txType}
}

// ChainID set chain id.
func (b *Builder) ChainID(id uint64) *Builder {
	b.chainID = id
	return b
}

// Nonce set nonce.
func (b *Builder) Nonce(nonce uint64) *Builder {
	b.nonce = nonce
	return b
}

// Gas set gas provision for tx.
func (b *Builder) Gas(gas uint64) *Builder {
	b.gas = gas
	return b
}

// To set the recipient. nil means contract creation.
func (b *Builder) To(to *ganache.Address) *Builder {
	b.to = copyAddress(to)
	return b
}

// Value set the amount to transfer.
func (b *Builder) Value(value *big.Int) *Builder {
	b.value = new(big.Int).Set(value)
	return b
}

// Data set the input data.
func (b *Builder) Data(data []byte) *Builder {
	b.data = append([]byte(nil), data...)
	return b
}

// GasPrice set gas price. It sets both fee fields of a dynamic fee tx.
func (b *Builder) GasPrice(price *big.Int) *Builder {
	b.maxFeePerGas = new(big.Int).Set(price)
	b.maxPriorityFeePerGas = new(big.Int).Set(price)
	return b
}

// MaxFeePerGas set the fee cap.
func (b *Builder) MaxFeePerGas(fee *big.Int) *Builder {
	b.maxFeePerGas = new(big.Int).Set(fee)
	return b
}

// MaxPriorityFeePerGas set the tip cap.
func (b *Builder) MaxPriorityFeePerGas(fee *big.Int) *Builder {
	b.maxPriorityFeePerGas = new(big.Int).Set(fee)
	return b
}

// Build builds a tx object.
func (b *Builder) Build() (*Transaction, error) {
	var body TxData
	switch b.txType {
	case TypeLegacy:
		body = &LegacyTransaction{
			ChainID:  b.chainID,
			Nonce:    b.nonce,
			GasPrice: orNew(b.maxFeePerGas),
			Gas:      b.gas,
			To:       b.to,
			Value:    orNew(b.value),
			Data:     b.data,
		}
	case TypeDynamicFee:
		body = &DynamicFeeTransaction{
			ChainID:              b.chainID,
			Nonce:                b.nonce,
			MaxPriorityFeePerGas: orNew(b.maxPriorityFeePerGas),
			MaxFeePerGas:         orNew(b.maxFeePerGas),
			Gas:                  b.gas,
			To:                   b.to,
			Value:                orNew(b.value),
			Data:                 b.data,
		}
	default:
		return nil, ErrTxTypeNotSupported
	}
	return &Transaction{body: body.copy()}, nil
}

// MustBuild builds a tx object, it panics on failure.
func (b *Builder) MustBuild() *Transaction {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func orNew(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
