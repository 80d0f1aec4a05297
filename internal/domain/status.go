package domain

// Domain status constants (EPP wire values).
const (
	StatusOK = "ok"

	StatusPendingCreate   = "pendingCreate"
	StatusPendingUpdate   = "pendingUpdate"
	StatusPendingDelete   = "pendingDelete"
	StatusPendingRenew    = "pendingRenew"
	StatusPendingTransfer = "pendingTransfer"

	StatusClientHold = "clientHold"
	StatusServerHold = "serverHold"

	StatusClientUpdateProhibited   = "clientUpdateProhibited"
	StatusServerUpdateProhibited   = "serverUpdateProhibited"
	StatusClientDeleteProhibited   = "clientDeleteProhibited"
	StatusServerDeleteProhibited   = "serverDeleteProhibited"
	StatusClientTransferProhibited = "clientTransferProhibited"
	StatusServerTransferProhibited = "serverTransferProhibited"
	StatusClientRenewProhibited    = "clientRenewProhibited"
	StatusServerRenewProhibited    = "serverRenewProhibited"

	StatusExpired           = "expired"
	StatusDeleteCandidate   = "deleteCandidate"
	StatusForceDelete       = "forceDelete"
	StatusServerManualInzone = "serverManualInzone"
)

// StatusSet is an ordered set of status codes. Duplicates are forbidden and
// insertion order is preserved for display.
type StatusSet []string

// Contains reports whether the set carries the given status.
func (s StatusSet) Contains(status string) bool {
	for _, v := range s {
		if v == status {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the set carries any of the given statuses.
func (s StatusSet) ContainsAny(statuses ...string) bool {
	for _, status := range statuses {
		if s.Contains(status) {
			return true
		}
	}
	return false
}

// Add appends a status unless it is already present.
func (s StatusSet) Add(status string) StatusSet {
	if s.Contains(status) {
		return s
	}
	return append(s, status)
}

// Remove deletes a status from the set, preserving the order of the rest.
func (s StatusSet) Remove(statuses ...string) StatusSet {
	out := s[:0]
	for _, v := range s {
		drop := false
		for _, status := range statuses {
			if v == status {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s StatusSet) Clone() StatusSet {
	if s == nil {
		return nil
	}
	out := make(StatusSet, len(s))
	copy(out, s)
	return out
}

// pendingStatuses are the statuses marking an operation awaiting completion.
var pendingStatuses = []string{
	StatusPendingCreate,
	StatusPendingUpdate,
	StatusPendingDelete,
	StatusPendingRenew,
	StatusPendingTransfer,
}

// UpdateProhibited reports whether the set blocks update commands.
func (s StatusSet) UpdateProhibited() bool {
	return s.ContainsAny(
		StatusClientUpdateProhibited,
		StatusServerUpdateProhibited,
		StatusPendingCreate,
		StatusPendingUpdate,
		StatusPendingDelete,
		StatusPendingRenew,
		StatusPendingTransfer,
	)
}

// DeleteProhibited reports whether the set blocks delete commands.
// Force delete blocks client-initiated deletion unconditionally.
func (s StatusSet) DeleteProhibited() bool {
	return s.ContainsAny(
		StatusClientDeleteProhibited,
		StatusServerDeleteProhibited,
		StatusPendingCreate,
		StatusPendingUpdate,
		StatusPendingDelete,
		StatusPendingRenew,
		StatusPendingTransfer,
		StatusForceDelete,
	)
}

// RenewProhibited reports whether the set blocks renew commands.
func (s StatusSet) RenewProhibited() bool {
	return s.ContainsAny(StatusClientRenewProhibited, StatusServerRenewProhibited)
}

// Transferrable reports whether a transfer may be requested. Any pending
// status or force delete blocks the transfer.
func (s StatusSet) Transferrable() bool {
	if s.Contains(StatusForceDelete) {
		return false
	}
	return !s.ContainsAny(pendingStatuses...)
}

// Expirable reports whether the expire sweep may mark the domain expired.
func (s StatusSet) Expirable() bool {
	return !s.Contains(StatusExpired)
}

// ServerHoldable reports whether the redemption sweep may add serverHold.
func (s StatusSet) ServerHoldable() bool {
	return !s.ContainsAny(StatusServerHold, StatusServerManualInzone)
}

// DeleteCandidateable reports whether the delete-candidate sweep may mark
// the domain for destruction.
func (s StatusSet) DeleteCandidateable() bool {
	return !s.ContainsAny(StatusDeleteCandidate, StatusServerDeleteProhibited)
}

// DeriveAutomaticStatus recomputes the automatic ok status. It is applied
// after every mutation: ok is present exactly when no other status exists
// and the domain passes structural validation.
func DeriveAutomaticStatus(statuses StatusSet, structurallyValid bool) StatusSet {
	withoutOK := statuses.Clone().Remove(StatusOK)
	if len(withoutOK) == 0 && structurallyValid {
		return StatusSet{StatusOK}
	}
	return withoutOK
}
