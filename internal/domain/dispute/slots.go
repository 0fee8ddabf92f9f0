package dispute

import "github.com/hivemind-swarm/hivemind/internal/domain/address"

// Slot is a display row for one juror position.
type Slot struct {
	Index int              `json:"index"`
	Juror *address.Address `json:"juror,omitempty"`
	Label string           `json:"label"`
	Voted bool             `json:"voted"`
	Vote  string           `json:"vote,omitempty"`
	IsYou bool             `json:"is_you,omitempty"`
}

// Slots renders the three juror positions for viewer.
func (d Dispute) Slots(viewer address.Address) []Slot {
	out := make([]Slot, 0, JurySize)
	for i, j := range d.Jurors {
		s := Slot{Index: i, Juror: j, Label: "Empty"}
		if j != nil {
			s.Label = address.Truncate(j.Checksum())
			s.IsYou = j.Equal(viewer)
		}
		if d.HasVoted(i) {
			s.Voted = true
			if d.Votes[i] {
				s.Vote = "For worker"
			} else {
				s.Vote = "For creator"
			}
		}
		out = append(out, s)
	}
	return out
}
