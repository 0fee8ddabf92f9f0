package evm

import (
	"bytes"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
)

// decodeRevert maps a node error carrying revert data onto a
// *tx.RevertError when the selector matches a coordinator custom error.
// Anything else is returned unchanged.
func decodeRevert(contract abi.ABI, err error) error {
	if err == nil {
		return nil
	}
	var rerr *tx.RevertError
	if errors.As(err, &rerr) || errors.Is(err, tx.ErrUserRejected) {
		return err
	}
	var de rpc.DataError
	if !errors.As(err, &de) {
		return err
	}
	data := revertData(de.ErrorData())
	if len(data) < 4 {
		return err
	}
	for name, e := range contract.Errors {
		if bytes.Equal(e.ID[:4], data[:4]) {
			return &tx.RevertError{Name: name}
		}
	}
	return err
}

func revertData(v any) []byte {
	switch d := v.(type) {
	case string:
		if !strings.HasPrefix(d, "0x") {
			return nil
		}
		b, err := hexutil.Decode(d)
		if err != nil {
			return nil
		}
		return b
	case []byte:
		return d
	case hexutil.Bytes:
		return d
	}
	return nil
}
