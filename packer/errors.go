// Copyright (c) 2018 The VeChainThor developers

package packer

import "errors"

var (
	errGasLimitReached   = errors.New("gas limit reached")
	errTxNotAdoptableNow = errors.New("tx not adoptable now")
	errKnownTx           = errors.New("known tx")
	errFlowClosed        = errors.New("flow already packed or aborted")
)

// IsGasLimitReached block if full of txs.
func IsGasLimitReached(err error) bool {
	return errors.Is(err, errGasLimitReached)
}

// IsTxNotAdoptableNow tx can not be adopted now.
func IsTxNotAdoptableNow(err error) bool {
	return errors.Is(err, errTxNotAdoptableNow)
}

// IsKnownTx tx is already in the block.
func IsKnownTx(err error) bool {
	return errors.Is(err, errKnownTx)
}

// IsBadTx not a valid tx.
func IsBadTx(err error) bool {
	return errors.As(err, &badTxError{})
}

// IsFatal the engine failed, the block must be abandoned.
func IsFatal(err error) bool {
	return errors.As(err, &fatalError{})
}

type badTxError struct {
	msg string
}

func (e badTxError) Error() string {
	return "bad tx: " + e.msg
}

type fatalError struct {
	cause error
}

func (e fatalError) Error() string {
	return "fatal: " + e.cause.Error()
}

func (e fatalError) Unwrap() error {
	return e.cause
}
