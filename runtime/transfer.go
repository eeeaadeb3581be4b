package runtime

import (
	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// RevertOpcode marks code that always reverts when called or deployed.
// The remaining bytes are returned as the revert output.
const RevertOpcode = byte(0xfd)

// CallEventTopic is the topic of the log emitted on every call to an account with code.
var CallEventTopic = ganache.Keccak256([]byte("Called(address,uint256,bytes)"))

// TransferEngine is the built-in engine. It moves value and deploys code
// without interpreting it.
//
//   - calls to accounts whose code starts with RevertOpcode revert
//   - calls to other accounts with code emit one log carrying the calldata
//   - creations deploy the data as code, reverting if it starts with RevertOpcode
type TransferEngine struct{}

var _ Engine = TransferEngine{}

// ApplyTransaction implements Engine.
func (TransferEngine) ApplyTransaction(st *state.State, blockCtx *BlockContext, trx *tx.Transaction, sender ganache.Address) (*Result, error) {
	if blockCtx == nil {
		return nil, errors.New("missing block context")
	}
	if trx.ChainID() != blockCtx.ChainID {
		return nil, errors.Errorf("tx chain id %d, block chain id %d", trx.ChainID(), blockCtx.ChainID)
	}
	intrinsic, err := trx.IntrinsicGas()
	if err != nil {
		return nil, err
	}
	if trx.Gas() < intrinsic {
		return nil, errors.Errorf("intrinsic gas %d exceeds gas limit %d", intrinsic, trx.Gas())
	}

	result := &Result{GasUsed: intrinsic}
	if to := trx.To(); to != nil {
		err = call(st, trx, sender, *to, result)
	} else {
		err = create(st, trx, sender, result)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func call(st *state.State, trx *tx.Transaction, sender, to ganache.Address, result *Result) error {
	code, err := st.GetCode(to)
	if err != nil {
		return err
	}
	if len(code) > 0 && code[0] == RevertOpcode {
		result.Reverted = true
		result.ReturnData = append([]byte(nil), code[1:]...)
		return nil
	}
	reverted, err := transfer(st, sender, to, trx)
	if err != nil || reverted {
		result.Reverted = reverted
		return err
	}
	if len(code) > 0 {
		topics := []ganache.Bytes32{CallEventTopic, ganache.BytesToBytes32(sender.Bytes())}
		result.Logs = append(result.Logs, &tx.Log{
			Address: to,
			Topics:  topics,
			Data:    append([]byte(nil), trx.Data()...),
		})
	}
	return nil
}

func create(st *state.State, trx *tx.Transaction, sender ganache.Address, result *Result) error {
	code := trx.Data()
	addr := ganache.CreateContractAddress(sender, trx.Nonce())
	if len(code) > 0 && code[0] == RevertOpcode {
		result.Reverted = true
		result.ReturnData = append([]byte(nil), code[1:]...)
		return nil
	}

	depositGas := uint64(len(code)) * params.CreateDataGas
	if len(code) > params.MaxCodeSize || result.GasUsed+depositGas > trx.Gas() {
		// out of gas consumes everything
		result.Reverted = true
		result.GasUsed = trx.Gas()
		return nil
	}
	if existing, err := st.GetCode(addr); err != nil {
		return err
	} else if len(existing) > 0 {
		// address collision
		result.Reverted = true
		result.GasUsed = trx.Gas()
		return nil
	}

	reverted, err := transfer(st, sender, addr, trx)
	if err != nil || reverted {
		result.Reverted = reverted
		return err
	}
	if err := st.SetNonce(addr, 1); err != nil {
		return err
	}
	if err := st.SetCode(addr, code); err != nil {
		return err
	}
	result.GasUsed += depositGas
	result.ContractAddress = &addr
	return nil
}

// transfer moves the tx value. Insufficient balance reverts.
func transfer(st *state.State, from, to ganache.Address, trx *tx.Transaction) (bool, error) {
	value := trx.Value()
	if value.Sign() == 0 {
		return false, nil
	}
	if err := st.SubBalance(from, value); err != nil {
		if state.IsInsufficientBalance(err) {
			return true, nil
		}
		return false, err
	}
	return false, st.AddBalance(to, value)
}
