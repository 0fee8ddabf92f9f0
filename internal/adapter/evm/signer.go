package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
)

// ConfirmFunc is asked before each transaction is signed. Returning false
// declines the signature.
type ConfirmFunc func(ctx context.Context, method string) bool

// Signer submits coordinator and token transactions from one key.
type Signer struct {
	client  *Client
	opts    *bind.TransactOpts
	account address.Address
	confirm ConfirmFunc
}

// Compile-time check.
var _ ledger.Writer = (*Signer)(nil)

// LoadKey decrypts a V3 keystore file.
func LoadKey(path, passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied keystore path
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}

// NewSigner binds key to client for chainID.
func NewSigner(client *Client, key *ecdsa.PrivateKey, chainID int64) (*Signer, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	account, err := address.Parse(opts.From.Hex())
	if err != nil {
		return nil, err
	}
	return &Signer{client: client, opts: opts, account: account}, nil
}

// SetConfirm installs an interactive signature prompt.
func (s *Signer) SetConfirm(fn ConfirmFunc) {
	s.confirm = fn
}

// Account returns the signing address.
func (s *Signer) Account() address.Address { return s.account }

// Approve grants the coordinator an allowance of amount.
func (s *Signer) Approve(ctx context.Context, amount *big.Int) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.token, "approve", s.client.coordAddr, amount)
}

func (s *Signer) CreateTask(ctx context.Context, p ledger.CreateTaskParams) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "createTask",
		p.Reward, p.Bond, p.DescriptionHash, big.NewInt(p.Deadline.Unix()), new(big.Int).SetUint64(p.ParentTaskID))
}

func (s *Signer) ClaimTask(ctx context.Context, taskID uint64) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "claimTask", new(big.Int).SetUint64(taskID))
}

func (s *Signer) SubmitWork(ctx context.Context, taskID uint64, proofHash string) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "submitWork", new(big.Int).SetUint64(taskID), proofHash)
}

func (s *Signer) ApproveWork(ctx context.Context, taskID uint64) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "approveWork", new(big.Int).SetUint64(taskID))
}

func (s *Signer) CancelTask(ctx context.Context, taskID uint64) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "cancelTask", new(big.Int).SetUint64(taskID))
}

func (s *Signer) OpenDispute(ctx context.Context, taskID uint64) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "openDispute", new(big.Int).SetUint64(taskID))
}

func (s *Signer) CastVote(ctx context.Context, disputeID uint64, inFavorOfAssignee bool) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "castVote", new(big.Int).SetUint64(disputeID), inFavorOfAssignee)
}

func (s *Signer) RegisterJuror(ctx context.Context) (ledger.TxHandle, error) {
	return s.transact(ctx, s.client.coordinator, "registerJuror")
}

func (s *Signer) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (ledger.TxHandle, error) {
	opts := *s.opts
	opts.Context = ctx
	if s.confirm != nil {
		sign := s.opts.Signer
		opts.Signer = func(from common.Address, t *types.Transaction) (*types.Transaction, error) {
			if !s.confirm(ctx, method) {
				return nil, tx.ErrUserRejected
			}
			return sign(from, t)
		}
	}
	sent, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, decodeRevert(s.client.coordABI, err))
	}
	return &pendingTx{client: s.client, from: opts.From, tx: sent}, nil
}
