package domain

import "time"

// Transfer record states. serverApproved marks a configured auto-approval.
const (
	TransferPending        = "pending"
	TransferClientApproved = "clientApproved"
	TransferClientRejected = "clientRejected"
	TransferServerApproved = "serverApproved"
)

// TransferRecord is one transfer attempt for a domain. At most one pending
// record may exist per domain at any time; terminal records are immutable
// history.
type TransferRecord struct {
	ID            string     `json:"id"`
	DomainID      string     `json:"domain_id"`
	Status        string     `json:"status"`
	TransferFrom  string     `json:"transfer_from"`
	TransferTo    string     `json:"transfer_to"`
	RequestedAt   time.Time  `json:"requested_at"`
	TransferredAt *time.Time `json:"transferred_at,omitempty"`
}

// Terminal reports whether the record reached a final state.
func (t *TransferRecord) Terminal() bool {
	return t.Status != TransferPending
}

// Approved reports whether the transfer completed, by either party.
func (t *TransferRecord) Approved() bool {
	return t.Status == TransferClientApproved || t.Status == TransferServerApproved
}
