package txpool

import "github.com/pkg/errors"

var (
	errNonceTooLow       = errors.New("nonce too low")
	errInsufficientFunds = errors.New("insufficient funds for gas * price + value")
	errUnderpriced       = errors.New("replacement transaction underpriced")
	errPoolFull          = errors.New("pool is full")
	errAccountQuota      = errors.New("account quota exceeded")
	errTipTooLow         = errors.New("max priority fee per gas below minimum")
)

// IsBadTx returns whether the tx itself is malformed, regardless of chain state.
func IsBadTx(err error) bool {
	return errors.As(err, &badTxError{})
}

// IsTxRejected returns whether the tx is well formed but not acceptable now.
func IsTxRejected(err error) bool {
	return errors.As(err, &txRejectedError{})
}

// IsNonceTooLow returns whether the tx nonce is below the committed nonce of its sender.
func IsNonceTooLow(err error) bool {
	return errors.Is(err, errNonceTooLow)
}

// IsInsufficientFunds returns whether the sender can not afford the tx.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, errInsufficientFunds)
}

// IsUnderpriced returns whether a replacement did not bump the fee enough.
func IsUnderpriced(err error) bool {
	return errors.Is(err, errUnderpriced)
}

// IsPoolFull returns whether the pool or the sender's quota is exhausted.
func IsPoolFull(err error) bool {
	return errors.Is(err, errPoolFull) || errors.Is(err, errAccountQuota)
}

type badTxError struct {
	msg string
}

func (e badTxError) Error() string {
	return "bad tx: " + e.msg
}

type txRejectedError struct {
	cause error
}

func (e txRejectedError) Error() string {
	return "tx rejected: " + e.cause.Error()
}

func (e txRejectedError) Unwrap() error {
	return e.cause
}
