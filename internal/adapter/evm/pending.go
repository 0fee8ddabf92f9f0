package evm

import (
	"context"
	"errors"
	"fmt"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
)

// ErrReverted is returned by Wait when the receipt reports failure and the
// revert reason could not be recovered.
var ErrReverted = errors.New("transaction reverted")

// pendingTx is a broadcast transaction awaiting its receipt.
type pendingTx struct {
	client *Client
	from   common.Address
	tx     *types.Transaction
}

func (p *pendingTx) Hash() string { return p.tx.Hash().Hex() }

// Wait blocks until the transaction is mined. A failed receipt is replayed
// as a call at its block to recover the custom error.
func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.client.backend, p.tx)
	if err != nil {
		return fmt.Errorf("wait %s: %w", p.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusFailed {
		return nil
	}
	msg := ethereum.CallMsg{
		From:  p.from,
		To:    p.tx.To(),
		Gas:   p.tx.Gas(),
		Value: p.tx.Value(),
		Data:  p.tx.Data(),
	}
	_, callErr := p.client.backend.CallContract(ctx, msg, receipt.BlockNumber)
	if callErr == nil {
		return ErrReverted
	}
	var rerr *tx.RevertError
	if errors.As(decodeRevert(p.client.coordABI, callErr), &rerr) {
		return rerr
	}
	return fmt.Errorf("%w: %v", ErrReverted, callErr)
}
