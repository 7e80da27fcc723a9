package domain

import "time"

type AnchorStatus string

const (
	AnchorStatusAnchored AnchorStatus = "ANCHORED"
	AnchorStatusFailed   AnchorStatus = "FAILED"
	AnchorStatusTimeout  AnchorStatus = "TIMEOUT"
)

type AnchorReceipt struct {
	Provider   string       `json:"provider"`
	Status     AnchorStatus `json:"status"`
	TxID       string       `json:"tx_id,omitempty"`
	Error      string       `json:"error,omitempty"`
	AnchoredAt time.Time    `json:"anchored_at"`
}

// FirstAnchored returns the first receipt that reached ANCHORED.
func FirstAnchored(receipts []AnchorReceipt) (AnchorReceipt, bool) {
	for _, r := range receipts {
		if r.Status == AnchorStatusAnchored {
			return r, true
		}
	}
	return AnchorReceipt{}, false
}
