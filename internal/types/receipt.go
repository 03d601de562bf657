package types

// TxReceipt reports what intake did with one inbound transaction.
type TxReceipt struct {
	TxHash string `json:"tx_hash"`
	Type   string `json:"type,omitempty"`
	From   string `json:"from,omitempty"`
	OTSKey uint32 `json:"ots_key"`
	Peer   string `json:"peer,omitempty"`
	Status string `json:"status"` // "accepted", "duplicate", "malformed:<reason>" or "rejected:<reason>"
}

const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)
