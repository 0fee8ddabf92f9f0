// Package evm implements the ledger port against the coordinator contract
// and its ERC-20 token over a JSON-RPC endpoint.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
)

// Backend is the node capability the client needs: contract calls and
// transactions plus receipt lookup. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client reads the coordinator and token contracts.
type Client struct {
	backend     Backend
	coordAddr   common.Address
	coordABI    abi.ABI
	coordinator *bind.BoundContract
	token       *bind.BoundContract
}

// Compile-time check.
var _ ledger.Reader = (*Client)(nil)

// Dial connects to rpcURL and binds the two contracts.
func Dial(ctx context.Context, rpcURL string, coordinator, token address.Address) (*Client, *ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	c, err := NewClient(ec, coordinator, token)
	if err != nil {
		ec.Close()
		return nil, nil, err
	}
	return c, ec, nil
}

// NewClient binds the coordinator and token contracts on backend.
func NewClient(backend Backend, coordinator, token address.Address) (*Client, error) {
	coordABI, tokenABI, err := contractABIs()
	if err != nil {
		return nil, err
	}
	coordAddr := common.HexToAddress(coordinator.String())
	return &Client{
		backend:     backend,
		coordAddr:   coordAddr,
		coordABI:    coordABI,
		coordinator: bind.NewBoundContract(coordAddr, coordABI, backend, backend, backend),
		token:       bind.NewBoundContract(common.HexToAddress(token.String()), tokenABI, backend, backend, backend),
	}, nil
}

// Count returns taskCount or disputeCount.
func (c *Client) Count(ctx context.Context, kind ledger.Kind) (uint64, error) {
	var method string
	switch kind {
	case ledger.KindTask:
		method = "taskCount"
	case ledger.KindDispute:
		method = "disputeCount"
	default:
		return 0, fmt.Errorf("count: unknown kind %q", kind)
	}
	n, err := c.callUint(ctx, c.coordinator, method)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", method, err)
	}
	return n, nil
}

// taskTuple mirrors the getTask return struct.
type taskTuple struct {
	Id              *big.Int //nolint:revive // field name fixed by the ABI
	Creator         common.Address
	Assignee        common.Address
	Reward          *big.Int
	BondAmount      *big.Int
	ParentTaskId    *big.Int //nolint:revive // field name fixed by the ABI
	Status          uint8
	DescriptionHash string
	ProofHash       string
	Deadline        *big.Int
	CreatedAt       *big.Int
	ChildCount      *big.Int
	ChildCompleted  *big.Int
}

// Task reads getTask(id).
func (c *Client) Task(ctx context.Context, id uint64) (task.Raw, error) {
	if id == 0 {
		return task.Raw{}, ledger.ErrOutOfRange
	}
	var out []any
	if err := c.coordinator.Call(&bind.CallOpts{Context: ctx}, &out, "getTask", new(big.Int).SetUint64(id)); err != nil {
		return task.Raw{}, fmt.Errorf("getTask %d: %w", id, c.readError(ctx, ledger.KindTask, id, err))
	}
	if len(out) != 1 {
		return task.Raw{}, fmt.Errorf("getTask %d: unexpected %d outputs", id, len(out))
	}
	t := *abi.ConvertType(out[0], new(taskTuple)).(*taskTuple)
	if t.Creator == (common.Address{}) {
		// Unassigned storage slot: the ledger has no task with this id.
		return task.Raw{}, fmt.Errorf("getTask %d: %w", id, ledger.ErrOutOfRange)
	}
	return task.Raw{
		ID:              t.Id,
		Creator:         t.Creator.Hex(),
		Assignee:        t.Assignee.Hex(),
		Reward:          t.Reward,
		BondAmount:      t.BondAmount,
		Status:          t.Status,
		DescriptionHash: t.DescriptionHash,
		ProofHash:       t.ProofHash,
		Deadline:        t.Deadline,
		CreatedAt:       t.CreatedAt,
		ParentTaskID:    t.ParentTaskId,
		ChildCount:      t.ChildCount,
		ChildCompleted:  t.ChildCompleted,
	}, nil
}

// disputeTuple mirrors the getDispute return struct.
type disputeTuple struct {
	TaskId    *big.Int //nolint:revive // field name fixed by the ABI
	Jurors    [dispute.JurySize]common.Address
	Votes     [dispute.JurySize]bool
	VoteCount uint8
	Resolved  bool
}

// Dispute reads getDispute(id).
func (c *Client) Dispute(ctx context.Context, id uint64) (dispute.Raw, error) {
	if id == 0 {
		return dispute.Raw{}, ledger.ErrOutOfRange
	}
	var out []any
	if err := c.coordinator.Call(&bind.CallOpts{Context: ctx}, &out, "getDispute", new(big.Int).SetUint64(id)); err != nil {
		return dispute.Raw{}, fmt.Errorf("getDispute %d: %w", id, c.readError(ctx, ledger.KindDispute, id, err))
	}
	if len(out) != 1 {
		return dispute.Raw{}, fmt.Errorf("getDispute %d: unexpected %d outputs", id, len(out))
	}
	d := *abi.ConvertType(out[0], new(disputeTuple)).(*disputeTuple)
	if d.TaskId == nil || d.TaskId.Sign() == 0 {
		return dispute.Raw{}, fmt.Errorf("getDispute %d: %w", id, ledger.ErrOutOfRange)
	}
	raw := dispute.Raw{
		TaskID:    d.TaskId,
		Votes:     d.Votes,
		VoteCount: d.VoteCount,
		Resolved:  d.Resolved,
	}
	for i, j := range d.Jurors {
		raw.Jurors[i] = j.Hex()
	}
	return raw, nil
}

// readError classifies a failed per-id read. Coded reverts are decoded;
// a bare revert for an id above the current count is ErrOutOfRange.
func (c *Client) readError(ctx context.Context, kind ledger.Kind, id uint64, err error) error {
	decoded := decodeRevert(c.coordABI, err)
	var rerr *tx.RevertError
	if errors.As(decoded, &rerr) || ctx.Err() != nil {
		return decoded
	}
	if n, cerr := c.Count(ctx, kind); cerr == nil && id > n {
		return ledger.ErrOutOfRange
	}
	return decoded
}

// JurorPoolSize reads getJurorPoolSize().
func (c *Client) JurorPoolSize(ctx context.Context) (uint64, error) {
	n, err := c.callUint(ctx, c.coordinator, "getJurorPoolSize")
	if err != nil {
		return 0, fmt.Errorf("getJurorPoolSize: %w", err)
	}
	return n, nil
}

// IsRegisteredJuror reads registeredJurors(account).
func (c *Client) IsRegisteredJuror(ctx context.Context, account address.Address) (bool, error) {
	var out []any
	if err := c.coordinator.Call(&bind.CallOpts{Context: ctx}, &out, "registeredJurors", common.HexToAddress(account.String())); err != nil {
		return false, fmt.Errorf("registeredJurors: %w", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Allowance reads allowance(owner, coordinator) on the token.
func (c *Client) Allowance(ctx context.Context, owner address.Address) (*big.Int, error) {
	v, err := c.callBig(ctx, c.token, "allowance", common.HexToAddress(owner.String()), c.coordAddr)
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}
	return v, nil
}

// BalanceOf reads balanceOf(owner) on the token.
func (c *Client) BalanceOf(ctx context.Context, owner address.Address) (*big.Int, error) {
	v, err := c.callBig(ctx, c.token, "balanceOf", common.HexToAddress(owner.String()))
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return v, nil
}

func (c *Client) callBig(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (*big.Int, error) {
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Client) callUint(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (uint64, error) {
	v, err := c.callBig(ctx, contract, method, args...)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s: value %s overflows uint64", method, v)
	}
	return v.Uint64(), nil
}
