package messagequeue

// TxConfirmedPayload is the schema for ledger.tx.confirmed messages.
type TxConfirmedPayload struct {
	Instance  string `json:"instance"`
	FlowID    string `json:"flow_id"`
	Step      string `json:"step"`
	Hash      string `json:"hash"`
	Account   string `json:"account"`
	TaskID    uint64 `json:"task_id,omitempty"`
	DisputeID uint64 `json:"dispute_id,omitempty"`
}

// RefreshPayload is the schema for ledger.refresh messages.
type RefreshPayload struct {
	Instance string `json:"instance"`
	Reason   string `json:"reason,omitempty"`
}
