package task

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// ErrInvalidRecord wraps every decode failure.
var ErrInvalidRecord = errors.New("invalid task record")

// Decode converts a raw ledger record fetched for id into a Task. The id
// comes from the fetch loop; an embedded id that disagrees is rejected.
// A zero creator means the ledger returned an empty slot.
func Decode(id uint64, r Raw) (Task, error) {
	if id == 0 {
		return Task{}, fmt.Errorf("%w: id must be positive", ErrInvalidRecord)
	}
	if r.ID != nil && (!r.ID.IsUint64() || r.ID.Uint64() != id) {
		return Task{}, fmt.Errorf("%w: embedded id %s does not match %d", ErrInvalidRecord, r.ID, id)
	}

	creator, err := address.Parse(r.Creator)
	if err != nil {
		return Task{}, fmt.Errorf("%w: creator: %w", ErrInvalidRecord, err)
	}
	if creator.IsZero() {
		return Task{}, fmt.Errorf("%w: task %d has no creator", ErrInvalidRecord, id)
	}
	assignee, err := address.Optional(r.Assignee)
	if err != nil {
		return Task{}, fmt.Errorf("%w: assignee: %w", ErrInvalidRecord, err)
	}

	status := Status(r.Status)
	if !status.Valid() {
		return Task{}, fmt.Errorf("%w: status %d", ErrInvalidRecord, r.Status)
	}

	t := Task{
		ID:              id,
		Creator:         creator,
		Assignee:        assignee,
		Status:          status,
		DescriptionHash: r.DescriptionHash,
		ProofHash:       r.ProofHash,
	}
	if t.Reward, err = usdc.FromBig(r.Reward); err != nil {
		return Task{}, fmt.Errorf("%w: reward: %w", ErrInvalidRecord, err)
	}
	if t.BondAmount, err = usdc.FromBig(r.BondAmount); err != nil {
		return Task{}, fmt.Errorf("%w: bond: %w", ErrInvalidRecord, err)
	}
	if t.Deadline, err = unixTime(r.Deadline); err != nil {
		return Task{}, fmt.Errorf("%w: deadline: %w", ErrInvalidRecord, err)
	}
	if t.CreatedAt, err = unixTime(r.CreatedAt); err != nil {
		return Task{}, fmt.Errorf("%w: createdAt: %w", ErrInvalidRecord, err)
	}
	if t.ParentTaskID, err = toUint64(r.ParentTaskID); err != nil {
		return Task{}, fmt.Errorf("%w: parentTaskId: %w", ErrInvalidRecord, err)
	}
	if t.ChildCount, err = toUint64(r.ChildCount); err != nil {
		return Task{}, fmt.Errorf("%w: childCount: %w", ErrInvalidRecord, err)
	}
	if t.ChildCompleted, err = toUint64(r.ChildCompleted); err != nil {
		return Task{}, fmt.Errorf("%w: childCompleted: %w", ErrInvalidRecord, err)
	}
	if t.ChildCompleted > t.ChildCount {
		return Task{}, fmt.Errorf("%w: %d of %d children completed", ErrInvalidRecord, t.ChildCompleted, t.ChildCount)
	}
	return t, nil
}

// toUint64 treats a nil ledger integer as zero.
func toUint64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("value %s out of range", v)
	}
	return v.Uint64(), nil
}

func unixTime(v *big.Int) (time.Time, error) {
	if v == nil {
		return time.Time{}, errors.New("missing timestamp")
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return time.Time{}, fmt.Errorf("timestamp %s out of range", v)
	}
	return time.Unix(v.Int64(), 0).UTC(), nil
}
