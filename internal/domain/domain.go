package domain

import (
	"encoding/json"
	"time"
)

// Domain is the central registry entity.
type Domain struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NamePuny string `json:"name_puny"`

	RegisteredAt  time.Time  `json:"registered_at"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidTo       time.Time  `json:"valid_to"`
	OutzoneAt     time.Time  `json:"outzone_at"`
	DeleteAt      time.Time  `json:"delete_at"`
	ForceDeleteAt *time.Time `json:"force_delete_at,omitempty"`

	Period     int    `json:"period"`
	PeriodUnit string `json:"period_unit"`

	Statuses       StatusSet         `json:"statuses"`
	StatusNotes    map[string]string `json:"status_notes,omitempty"`
	StatusesBackup StatusSet         `json:"statuses_backup,omitempty"`

	AuthInfo string `json:"-"`

	VerificationToken   string           `json:"-"`
	VerificationAskedAt *time.Time       `json:"verification_asked_at,omitempty"`
	PendingSnapshot     *PendingSnapshot `json:"-"`

	RegistrarID  string `json:"registrar_id"`
	RegistrantID string `json:"registrant_id"`

	AdminContactIDs []string `json:"admin_contact_ids"`
	TechContactIDs  []string `json:"tech_contact_ids"`

	Nameservers []Nameserver `json:"nameservers"`
	DNSKeys     []DNSKey     `json:"dns_keys,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingSnapshot captures a change awaiting registrant verification. The raw
// command and actor identity are stored so the change can be replayed through
// the live command path when confirmed, however much later that happens.
type PendingSnapshot struct {
	Command         json.RawMessage `json:"command"`
	ActorID         string          `json:"actor_id"`
	NewRegistrantID string          `json:"new_registrant_id,omitempty"`
	RegistrantEmail string          `json:"registrant_email,omitempty"`
	RegistrantName  string          `json:"registrant_name,omitempty"`
}

// Nameserver is a delegation record attached to a domain.
type Nameserver struct {
	Hostname string   `json:"hostname"`
	IPv4     []string `json:"ipv4,omitempty"`
	IPv6     []string `json:"ipv6,omitempty"`
}

// DNSKey is a DNSSEC key record stored opaquely with the domain.
type DNSKey struct {
	Flags     int    `json:"flags"`
	Protocol  int    `json:"protocol"`
	Algorithm int    `json:"alg"`
	PublicKey string `json:"public_key"`
}

// Contact is a registrant, admin or tech contact referenced by domains.
type Contact struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	RegistrarID string    `json:"registrar_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Ident       string    `json:"ident,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Contact association types.
const (
	ContactTypeAdmin = "admin"
	ContactTypeTech  = "tech"
)

// Registrar is a sponsoring party accredited to manage domains.
type Registrar struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	APIToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// forceDeleteStripped are the statuses removed when entering force delete.
var forceDeleteStripped = []string{
	StatusPendingCreate,
	StatusPendingUpdate,
	StatusPendingDelete,
	StatusPendingRenew,
	StatusPendingTransfer,
	StatusClientUpdateProhibited,
	StatusServerUpdateProhibited,
	StatusClientTransferProhibited,
	StatusServerTransferProhibited,
	StatusClientRenewProhibited,
	StatusServerRenewProhibited,
	StatusForceDelete,
}

// EnterForceDelete puts the domain into the administrative force-delete
// state. It is idempotent: a domain already carrying forceDelete is left
// untouched. The current status set is snapshotted so ExitForceDelete can
// restore it, and destruction is scheduled after the redemption grace window
// unless a date is already set.
func (d *Domain) EnterForceDelete(now time.Time, redemptionGrace time.Duration) {
	if d.Statuses.Contains(StatusForceDelete) {
		return
	}

	d.StatusesBackup = d.Statuses.Clone()
	statuses := d.Statuses.Clone().Remove(forceDeleteStripped...)
	statuses = statuses.Remove(StatusOK)

	statuses = statuses.Add(StatusForceDelete)
	statuses = statuses.Add(StatusServerRenewProhibited)
	statuses = statuses.Add(StatusServerTransferProhibited)
	statuses = statuses.Add(StatusServerUpdateProhibited)
	statuses = statuses.Add(StatusPendingDelete)
	if !statuses.ContainsAny(StatusServerHold, StatusClientHold) {
		statuses = statuses.Add(StatusServerManualInzone)
	}
	d.Statuses = statuses

	if d.ForceDeleteAt == nil {
		at := now.Add(redemptionGrace)
		d.ForceDeleteAt = &at
	}
}

// ExitForceDelete restores the status set snapshotted by EnterForceDelete,
// re-adding any of expired, serverHold or deleteCandidate that hold now.
func (d *Domain) ExitForceDelete() {
	preserved := make(StatusSet, 0, 3)
	for _, status := range []string{StatusExpired, StatusServerHold, StatusDeleteCandidate} {
		if d.Statuses.Contains(status) {
			preserved = append(preserved, status)
		}
	}

	restored := d.StatusesBackup.Clone()
	if restored == nil {
		restored = StatusSet{}
	}
	for _, status := range preserved {
		restored = restored.Add(status)
	}

	d.Statuses = restored
	d.StatusesBackup = nil
	d.ForceDeleteAt = nil
}

// SetPendingUpdate marks the domain as awaiting update verification. The
// marker is best effort: when the status set already prohibits updates the
// domain is left untouched and false is returned for the caller to log.
func (d *Domain) SetPendingUpdate() bool {
	if d.Statuses.UpdateProhibited() {
		return false
	}
	d.Statuses = d.Statuses.Remove(StatusOK).Add(StatusPendingUpdate)
	return true
}

// SetPendingDelete marks the domain as awaiting delete verification, with
// the same best-effort contract as SetPendingUpdate.
func (d *Domain) SetPendingDelete() bool {
	if d.Statuses.DeleteProhibited() {
		return false
	}
	d.Statuses = d.Statuses.Remove(StatusOK).Add(StatusPendingDelete)
	return true
}

// ClearPendings removes every trace of an in-flight verification: token,
// asked-at timestamp, snapshot, the pending statuses and their notes.
func (d *Domain) ClearPendings() {
	d.VerificationToken = ""
	d.VerificationAskedAt = nil
	d.PendingSnapshot = nil
	d.Statuses = d.Statuses.Remove(StatusPendingUpdate, StatusPendingDelete)
	if d.StatusNotes != nil {
		delete(d.StatusNotes, StatusPendingUpdate)
		delete(d.StatusNotes, StatusPendingDelete)
	}
}

// PendingUpdate reports whether the domain awaits update verification.
func (d *Domain) PendingUpdate() bool {
	return d.Statuses.Contains(StatusPendingUpdate)
}

// PendingDelete reports whether the domain awaits delete verification.
func (d *Domain) PendingDelete() bool {
	return d.Statuses.Contains(StatusPendingDelete)
}

// PruneStatusNotes drops annotations for statuses no longer present.
func (d *Domain) PruneStatusNotes() {
	for code := range d.StatusNotes {
		if !d.Statuses.Contains(code) {
			delete(d.StatusNotes, code)
		}
	}
}
