package dispute

import (
	"errors"
	"math/big"
	"testing"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
)

var (
	j1 = address.MustParse("0x00000000000000000000000000000000000000a1")
	j2 = address.MustParse("0x00000000000000000000000000000000000000a2")
	j3 = address.MustParse("0x00000000000000000000000000000000000000a3")
)

func full(votes [JurySize]bool, count uint8) Dispute {
	return Dispute{ID: 1, TaskID: 7, Jurors: [JurySize]*address.Address{&j1, &j2, &j3}, Votes: votes, VoteCount: count}
}

func TestApprovePercent(t *testing.T) {
	tests := []struct {
		name  string
		d     Dispute
		want  int
		votes int
	}{
		{"no votes is neutral", full([3]bool{}, 0), 50, 0},
		{"one for one against", full([3]bool{true, false, false}, 2), 50, 1},
		{"two of three", full([3]bool{true, true, false}, 3), 67, 2},
		{"one of three", full([3]bool{false, true, false}, 3), 33, 1},
		{"unanimous", full([3]bool{true, true, true}, 3), 100, 3},
		{"votes past count are ignored", full([3]bool{false, true, true}, 1), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.ApprovePercent(); got != tt.want {
				t.Errorf("ApprovePercent = %d, want %d", got, tt.want)
			}
			if got := tt.d.ApproveVotes(); got != tt.votes {
				t.Errorf("ApproveVotes = %d, want %d", got, tt.votes)
			}
			if tt.d.ApprovePercent()+tt.d.RejectPercent() != 100 {
				t.Error("percentages must sum to 100")
			}
		})
	}
}

func TestVerdict(t *testing.T) {
	if got := full([3]bool{true, true, false}, 3).Verdict(); got != "Worker approved" {
		t.Errorf("Verdict = %q", got)
	}
	if got := full([3]bool{true, false, false}, 3).Verdict(); got != "Creator upheld" {
		t.Errorf("Verdict = %q", got)
	}
}

func TestCanVote(t *testing.T) {
	d := full([3]bool{true}, 1)
	upperJ2 := address.Address("0x00000000000000000000000000000000000000A2")

	if d.CanVote(j1) {
		t.Error("slot 0 already voted")
	}
	if !d.CanVote(upperJ2) {
		t.Error("juror lookup must ignore case")
	}
	if d.CanVote(address.MustParse("0x00000000000000000000000000000000000000ff")) {
		t.Error("non-juror must not vote")
	}
	d.Resolved = true
	if d.CanVote(j3) {
		t.Error("resolved dispute accepts no votes")
	}
}

func TestDecode(t *testing.T) {
	raw := Raw{
		TaskID:    big.NewInt(7),
		Jurors:    [JurySize]string{j1.Checksum(), address.Zero.String(), j3.String()},
		Votes:     [JurySize]bool{true, false, false},
		VoteCount: 1,
	}
	d, err := Decode(2, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.ID != 2 || d.TaskID != 7 {
		t.Errorf("ids = %d/%d", d.ID, d.TaskID)
	}
	if d.Jurors[1] != nil {
		t.Error("zero juror slot should decode to nil")
	}
	if d.Jurors[0] == nil || *d.Jurors[0] != j1 {
		t.Errorf("juror 0 = %v", d.Jurors[0])
	}
}

func TestDecodeRejects(t *testing.T) {
	bad := []Raw{
		{TaskID: nil},
		{TaskID: big.NewInt(0)},
		{TaskID: big.NewInt(1), VoteCount: 4},
		{TaskID: big.NewInt(1), Jurors: [JurySize]string{"nope", "", ""}},
	}
	for i, r := range bad {
		if _, err := Decode(1, r); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("case %d: expected ErrInvalidRecord, got %v", i, err)
		}
	}
}

func TestSlots(t *testing.T) {
	d := Dispute{ID: 1, TaskID: 7, Jurors: [JurySize]*address.Address{&j1, nil, &j3}, Votes: [JurySize]bool{false, true}, VoteCount: 2}
	slots := d.Slots(j3)
	if len(slots) != JurySize {
		t.Fatalf("len = %d", len(slots))
	}
	if slots[0].Vote != "For creator" || !slots[0].Voted {
		t.Errorf("slot 0 = %+v", slots[0])
	}
	if slots[1].Label != "Empty" || slots[1].Vote != "For worker" {
		t.Errorf("slot 1 = %+v", slots[1])
	}
	if slots[2].Voted || !slots[2].IsYou {
		t.Errorf("slot 2 = %+v", slots[2])
	}
}
