// Package ledger defines the port to the external task coordinator contract
// and its stable-value token. The ledger is the only writer of task and
// dispute state; everything behind this port is read through it.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
)

// Kind selects which entity counter to read.
type Kind string

const (
	KindTask    Kind = "task"
	KindDispute Kind = "dispute"
)

var (
	// ErrOutOfRange is returned for an id outside [1, count] at call time.
	ErrOutOfRange = errors.New("id out of range")
	// ErrNoSigner is returned by writes when no wallet is configured.
	ErrNoSigner = errors.New("no signer configured")
)

// Reader performs read-only calls.
type Reader interface {
	// Count returns the highest assigned id for kind.
	Count(ctx context.Context, kind Kind) (uint64, error)
	Task(ctx context.Context, id uint64) (task.Raw, error)
	Dispute(ctx context.Context, id uint64) (dispute.Raw, error)
	JurorPoolSize(ctx context.Context) (uint64, error)
	IsRegisteredJuror(ctx context.Context, account address.Address) (bool, error)
	// Allowance is the token amount owner has approved the coordinator to spend.
	Allowance(ctx context.Context, owner address.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, owner address.Address) (*big.Int, error)
}

// TxHandle tracks a submitted transaction. Wait blocks until the
// transaction is mined and returns an error if it failed on chain.
type TxHandle interface {
	Hash() string
	Wait(ctx context.Context) error
}

// CreateTaskParams are the createTask arguments.
type CreateTaskParams struct {
	Reward          *big.Int
	Bond            *big.Int
	DescriptionHash string
	Deadline        time.Time
	ParentTaskID    uint64
}

// Writer submits signed transactions. Each call returns once the
// transaction is signed and broadcast; a signing refusal surfaces as
// tx.ErrUserRejected and a coded revert as *tx.RevertError.
type Writer interface {
	// Account is the signer's address.
	Account() address.Address
	// Approve grants the coordinator a token allowance of amount.
	Approve(ctx context.Context, amount *big.Int) (TxHandle, error)
	CreateTask(ctx context.Context, p CreateTaskParams) (TxHandle, error)
	ClaimTask(ctx context.Context, taskID uint64) (TxHandle, error)
	SubmitWork(ctx context.Context, taskID uint64, proofHash string) (TxHandle, error)
	ApproveWork(ctx context.Context, taskID uint64) (TxHandle, error)
	CancelTask(ctx context.Context, taskID uint64) (TxHandle, error)
	OpenDispute(ctx context.Context, taskID uint64) (TxHandle, error)
	CastVote(ctx context.Context, disputeID uint64, inFavorOfAssignee bool) (TxHandle, error)
	RegisterJuror(ctx context.Context) (TxHandle, error)
}
