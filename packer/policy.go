package packer

import "github.com/pkg/errors"

// RevertGasPolicy decides the fee charged for a reverted tx.
type RevertGasPolicy int

const (
	// ChargeGasUsed charges the gas consumed up to the revert, as post-byzantium networks do.
	ChargeGasUsed RevertGasPolicy = iota
	// ChargeGasLimit charges the whole gas limit, as a failed tx did before byzantium.
	ChargeGasLimit
	// ChargeNothing only bumps the nonce.
	ChargeNothing
)

var policyNames = map[RevertGasPolicy]string{
	ChargeGasUsed:  "gas-used",
	ChargeGasLimit: "gas-limit",
	ChargeNothing:  "none",
}

func (p RevertGasPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParseRevertGasPolicy parses a policy name as printed by String.
func ParseRevertGasPolicy(s string) (RevertGasPolicy, error) {
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown revert gas policy %q", s)
}

// gas returns the gas accounted for a tx, and the part of it charged to the sender.
func (p RevertGasPolicy) gas(reverted bool, used, limit uint64) (accounted, charged uint64) {
	if !reverted {
		return used, used
	}
	switch p {
	case ChargeGasLimit:
		return limit, limit
	case ChargeNothing:
		return used, 0
	default:
		return used, used
	}
}
