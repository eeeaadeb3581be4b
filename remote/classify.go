package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/trufflesuite/ganache-sub010/fork"
)

// classify marks failures which may go away on retry as transient.
// JSON-RPC error objects (pruned state, unknown block) and malformed
// responses are permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// the node answered, the answer is final
		return err
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
			return fork.Transient(err)
		}
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return fork.Transient(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fork.Transient(err)
	}
	return err
}
