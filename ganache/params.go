package ganache

import (
	"github.com/ethereum/go-ethereum/params"
)

// Constants of block chain.
const (
	TxGas                 uint64 = params.TxGas                 // intrinsic gas of a plain transaction
	TxGasContractCreation uint64 = params.TxGasContractCreation // intrinsic gas of a contract creation
	TxDataZeroGas         uint64 = params.TxDataZeroGas
	TxDataNonZeroGas      uint64 = params.TxDataNonZeroGasEIP2028

	MinGasLimit     uint64 = 5000
	InitialGasLimit uint64 = 30_000_000 // gas limit of a fresh dev chain

	// base fee rule
	InitialBaseFee           uint64 = params.InitialBaseFee // 1 gwei
	MinBaseFee               uint64 = 7                     // protocol floor
	ElasticityMultiplier     uint64 = params.DefaultElasticityMultiplier
	BaseFeeChangeDenominator uint64 = params.DefaultBaseFeeChangeDenominator

	DefaultChainID uint64 = 1337
)
