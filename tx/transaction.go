package tx

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// Transaction types.
const (
	TypeLegacy     = byte(0x00)
	TypeDynamicFee = byte(0x02)
)

var (
	ErrTxTypeNotSupported = errors.New("transaction type not supported")
	errEmptyTypedTx       = errors.New("empty typed transaction bytes")
	errShortTypedTx       = errors.New("typed transaction too short")
)

// Transaction is an immutable tx type.
type Transaction struct {
	body TxData

	cache struct {
		signingHash atomic.Value
		origin      atomic.Value
		hash        atomic.Value
		size        atomic.Value
	}
}

// TxData is the underlying data of a transaction.
type TxData interface {
	txType() byte
	copy() TxData

	chainID() uint64
	nonce() uint64
	gas() uint64
	to() *ganache.Address
	value() *big.Int
	data() []byte
	maxFeePerGas() *big.Int
	maxPriorityFeePerGas() *big.Int
	signature() []byte
	setSignature(sig []byte)
}

// Type returns the transaction type.
func (t *Transaction) Type() byte {
	return t.body.txType()
}

// ChainID returns the id of the chain the tx is signed for.
func (t *Transaction) ChainID() uint64 {
	return t.body.chainID()
}

// Nonce returns the sender account nonce of the tx.
func (t *Transaction) Nonce() uint64 {
	return t.body.nonce()
}

// Gas returns gas provision for this tx.
func (t *Transaction) Gas() uint64 {
	return t.body.gas()
}

// To returns the recipient, nil for contract creation.
func (t *Transaction) To() *ganache.Address {
	if to := t.body.to(); to != nil {
		cpy := *to
		return &cpy
	}
	return nil
}

// Value returns the amount transferred.
func (t *Transaction) Value() *big.Int {
	return new(big.Int).Set(t.body.value())
}

// Data returns the input data.
func (t *Transaction) Data() []byte {
	return bytes.Clone(t.body.data())
}

// MaxFeePerGas returns the fee cap per gas. It is the gas price of a legacy tx.
func (t *Transaction) MaxFeePerGas() *big.Int {
	return new(big.Int).Set(t.body.maxFeePerGas())
}

// MaxPriorityFeePerGas returns the tip cap per gas. It is the gas price of a legacy tx.
func (t *Transaction) MaxPriorityFeePerGas() *big.Int {
	return new(big.Int).Set(t.body.maxPriorityFeePerGas())
}

// Signature returns signature.
func (t *Transaction) Signature() []byte {
	return bytes.Clone(t.body.signature())
}

// WithSignature create a new tx with signature set.
func (t *Transaction) WithSignature(sig []byte) *Transaction {
	newTx := Transaction{body: t.body.copy()}
	newTx.body.setSignature(bytes.Clone(sig))
	return &newTx
}

// SigningHash returns hash of tx excludes signature.
func (t *Transaction) SigningHash() (hash ganache.Bytes32) {
	if cached := t.cache.signingHash.Load(); cached != nil {
		return cached.(ganache.Bytes32)
	}
	defer func() { t.cache.signingHash.Store(hash) }()

	var to []byte
	if addr := t.body.to(); addr != nil {
		to = addr.Bytes()
	}
	return ganache.Keccak256Fn(func(w io.Writer) {
		rlp.Encode(w, []any{
			t.body.txType(),
			t.body.chainID(),
			t.body.nonce(),
			t.body.maxPriorityFeePerGas(),
			t.body.maxFeePerGas(),
			t.body.gas(),
			to,
			t.body.value(),
			t.body.data(),
		})
	})
}

// Origin returns the sender of the tx, recovered from the signature.
func (t *Transaction) Origin() (ganache.Address, error) {
	if cached := t.cache.origin.Load(); cached != nil {
		return cached.(ganache.Address), nil
	}

	sig := t.body.signature()
	if len(sig) != crypto.SignatureLength {
		return ganache.Address{}, errors.New("invalid signature length")
	}
	r, s, v := new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:64]), sig[64]
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return ganache.Address{}, errors.New("invalid signature values")
	}
	hash := t.SigningHash()
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return ganache.Address{}, err
	}
	origin := ganache.Address(crypto.PubkeyToAddress(*pub))
	t.cache.origin.Store(origin)
	return origin, nil
}

// Hash returns the hash of the tx, keccak256 of its binary encoding.
func (t *Transaction) Hash() (hash ganache.Bytes32) {
	if cached := t.cache.hash.Load(); cached != nil {
		return cached.(ganache.Bytes32)
	}
	defer func() { t.cache.hash.Store(hash) }()

	if t.Type() == TypeLegacy {
		return ganache.Keccak256Fn(func(w io.Writer) {
			rlp.Encode(w, t.body)
		})
	}
	return ganache.Keccak256Fn(func(w io.Writer) {
		w.Write([]byte{t.Type()})
		rlp.Encode(w, t.body)
	})
}

// Size returns size in bytes of the binary encoding.
func (t *Transaction) Size() uint64 {
	if cached := t.cache.size.Load(); cached != nil {
		return cached.(uint64)
	}
	data, _ := t.MarshalBinary()
	size := uint64(len(data))
	t.cache.size.Store(size)
	return size
}

// IntrinsicGas returns intrinsic gas of tx.
func (t *Transaction) IntrinsicGas() (uint64, error) {
	return IntrinsicGas(t.body.data(), t.body.to() == nil)
}

// IntrinsicGas computes the gas charged before any execution.
func IntrinsicGas(data []byte, contractCreation bool) (uint64, error) {
	gas := ganache.TxGas
	if contractCreation {
		gas = ganache.TxGasContractCreation
	}
	if len(data) == 0 {
		return gas, nil
	}
	var nz uint64
	for _, b := range data {
		if b != 0 {
			nz++
		}
	}
	z := uint64(len(data)) - nz

	if (math.MaxUint64-gas)/ganache.TxDataNonZeroGas < nz {
		return 0, errors.New("intrinsic gas too large")
	}
	gas += nz * ganache.TxDataNonZeroGas
	if (math.MaxUint64-gas)/ganache.TxDataZeroGas < z {
		return 0, errors.New("intrinsic gas too large")
	}
	gas += z * ganache.TxDataZeroGas
	return gas, nil
}

// EffectiveGasPrice returns the price per gas actually paid under the base fee:
// min(maxFeePerGas, baseFee + maxPriorityFeePerGas).
// A nil base fee gives the fee cap.
func (t *Transaction) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	feeCap := t.body.maxFeePerGas()
	if baseFee == nil {
		return new(big.Int).Set(feeCap)
	}
	price := new(big.Int).Add(baseFee, t.body.maxPriorityFeePerGas())
	if price.Cmp(feeCap) > 0 {
		price.Set(feeCap)
	}
	return price
}

// EffectivePriorityFee returns the fee per gas paid to the block producer:
// min(maxPriorityFeePerGas, maxFeePerGas - baseFee).
// It is negative if the fee cap is below the base fee.
func (t *Transaction) EffectivePriorityFee(baseFee *big.Int) *big.Int {
	tip := new(big.Int).Set(t.body.maxPriorityFeePerGas())
	if baseFee == nil {
		return tip
	}
	if headroom := new(big.Int).Sub(t.body.maxFeePerGas(), baseFee); headroom.Cmp(tip) < 0 {
		return headroom
	}
	return tip
}

// Cost returns the maximum the sender pays: gas * maxFeePerGas + value.
func (t *Transaction) Cost() *big.Int {
	cost := new(big.Int).SetUint64(t.body.gas())
	cost.Mul(cost, t.body.maxFeePerGas())
	return cost.Add(cost, t.body.value())
}

// TestFeatures returns an error if the tx is malformed, regardless of chain state.
func (t *Transaction) TestFeatures() error {
	if t.body.value().Sign() < 0 {
		return errors.New("negative value")
	}
	if t.body.maxFeePerGas().Sign() < 0 || t.body.maxPriorityFeePerGas().Sign() < 0 {
		return errors.New("negative fee")
	}
	if t.body.maxFeePerGas().BitLen() > 256 || t.body.maxPriorityFeePerGas().BitLen() > 256 {
		return errors.New("fee too large")
	}
	if t.body.maxFeePerGas().Cmp(t.body.maxPriorityFeePerGas()) < 0 {
		return errors.New("max priority fee per gas higher than max fee per gas")
	}
	return nil
}

// MarshalBinary returns the canonical encoding of the transaction.
// For legacy transactions, it returns the RLP encoding. For typed
// transactions, it returns the type and payload.
func (t *Transaction) MarshalBinary() ([]byte, error) {
	if t.Type() == TypeLegacy {
		return rlp.EncodeToBytes(t.body)
	}
	var buf bytes.Buffer
	buf.WriteByte(t.Type())
	if err := rlp.Encode(&buf, t.body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the canonical encoding of transactions.
func (t *Transaction) UnmarshalBinary(b []byte) error {
	if len(b) > 0 && b[0] > 0x7f {
		var body LegacyTransaction
		if err := rlp.DecodeBytes(b, &body); err != nil {
			return err
		}
		t.setDecoded(&body, uint64(len(b)))
		return nil
	}
	body, err := t.decodeTyped(b)
	if err != nil {
		return err
	}
	t.setDecoded(body, uint64(len(b)))
	return nil
}

// EncodeRLP implements rlp.Encoder.
// Typed transactions are encoded as an RLP string of type and payload.
func (t *Transaction) EncodeRLP(w io.Writer) error {
	if t.Type() == TypeLegacy {
		return rlp.Encode(w, t.body)
	}
	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	return rlp.Encode(w, data)
}

// DecodeRLP implements rlp.Decoder.
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	kind, size, err := s.Kind()
	switch {
	case err != nil:
		return err
	case kind == rlp.List:
		var body LegacyTransaction
		if err := s.Decode(&body); err != nil {
			return err
		}
		t.setDecoded(&body, rlp.ListSize(size))
		return nil
	case kind == rlp.Byte:
		return errShortTypedTx
	default:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		body, err := t.decodeTyped(b)
		if err != nil {
			return err
		}
		t.setDecoded(body, uint64(len(b)))
		return nil
	}
}

func (t *Transaction) decodeTyped(b []byte) (TxData, error) {
	if len(b) == 0 {
		return nil, errEmptyTypedTx
	}
	if len(b) <= 1 {
		return nil, errShortTypedTx
	}
	switch b[0] {
	case TypeDynamicFee:
		var body DynamicFeeTransaction
		if err := rlp.DecodeBytes(b[1:], &body); err != nil {
			return nil, err
		}
		return &body, nil
	default:
		return nil, ErrTxTypeNotSupported
	}
}

func (t *Transaction) setDecoded(body TxData, size uint64) {
	t.body = body
	if size > 0 {
		t.cache.size.Store(size)
	}
}

func (t *Transaction) String() string {
	var (
		from string
		to   = "contract creation"
	)
	if origin, err := t.Origin(); err == nil {
		from = origin.String()
	} else {
		from = "N/A"
	}
	if addr := t.body.to(); addr != nil {
		to = addr.String()
	}
	return fmt.Sprintf(`
	Tx(%v, %v %v)
	Type:                   %v
	From:                   %v
	To:                     %v
	ChainID:                %v
	Nonce:                  %v
	Gas:                    %v
	MaxFeePerGas:           %v
	MaxPriorityFeePerGas:   %v
	Value:                  %v
	Data:                   0x%x`, t.Hash(), t.Size(), "bytes",
		t.Type(), from, to, t.body.chainID(), t.body.nonce(), t.body.gas(),
		t.body.maxFeePerGas(), t.body.maxPriorityFeePerGas(), t.body.value(), t.body.data())
}
