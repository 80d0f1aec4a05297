package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	"github.com/utafrali/RegistryGo/internal/legal"
	"github.com/utafrali/RegistryGo/internal/repository"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

// DocumentStore persists legal documents accompanying registry commands.
// Implemented by the legal client; attachment failures are logged and never
// fail the command they accompanied.
type DocumentStore interface {
	Attach(ctx context.Context, domainName string, doc legal.Document) (string, error)
}

// clientSettable are the statuses a registrar may add or remove via update.
// Server-managed statuses are rejected with a policy error.
var clientSettable = map[string]bool{
	domain.StatusClientHold:               true,
	domain.StatusClientUpdateProhibited:   true,
	domain.StatusClientDeleteProhibited:   true,
	domain.StatusClientTransferProhibited: true,
	domain.StatusClientRenewProhibited:    true,
}

// DomainService implements the business logic for domain provisioning
// commands: create, info, list, check, renew, update, delete and the
// administrative force-delete override.
type DomainService struct {
	domains  repository.DomainRepository
	contacts repository.ContactRepository
	tx       database.TxRunner
	locks    *KeyedMutex
	producer *event.Producer
	docs     DocumentStore
	policy   Policy
	logger   *slog.Logger
}

// NewDomainService creates a new domain service. docs may be nil when no
// legal-document store is configured.
func NewDomainService(
	domains repository.DomainRepository,
	contacts repository.ContactRepository,
	tx database.TxRunner,
	locks *KeyedMutex,
	producer *event.Producer,
	docs DocumentStore,
	policy Policy,
	logger *slog.Logger,
) *DomainService {
	return &DomainService{
		domains:  domains,
		contacts: contacts,
		tx:       tx,
		locks:    locks,
		producer: producer,
		docs:     docs,
		policy:   policy,
		logger:   logger,
	}
}

// CreateDomainInput holds the parameters of a create command.
type CreateDomainInput struct {
	Name              string
	Period            int
	PeriodUnit        string
	RegistrantCode    string
	AdminContactCodes []string
	TechContactCodes  []string
	Nameservers       []domain.Nameserver
	DNSKeys           []domain.DNSKey
	AuthInfo          string
	RegistrarID       string
	LegalDocument     *legal.Document
}

// Register creates a new domain for the acting registrar.
func (s *DomainService) Register(ctx context.Context, input CreateDomainInput) (*domain.Domain, error) {
	uni, ascii, err := domain.NormalizeName(input.Name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if err := domain.ValidatePeriod(input.Period, input.PeriodUnit); err != nil {
		return nil, apperrors.PolicyError(err.Error())
	}

	authInfo := input.AuthInfo
	if authInfo == "" {
		if authInfo, err = newAuthInfo(); err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var created *domain.Domain
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := s.domains.ExistsByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("check domain existence: %w", err)
		}
		if exists {
			return apperrors.AlreadyExists("domain", "name", uni)
		}

		registrant, err := s.contacts.GetByCode(ctx, input.RegistrantCode)
		if err != nil {
			return fmt.Errorf("resolve registrant: %w", err)
		}
		adminIDs, err := s.resolveContacts(ctx, input.AdminContactCodes)
		if err != nil {
			return err
		}
		techIDs, err := s.resolveContacts(ctx, input.TechContactCodes)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		validTo := domain.PeriodEnd(now, input.Period, input.PeriodUnit)
		d := &domain.Domain{
			ID:              uuid.New().String(),
			Name:            uni,
			NamePuny:        ascii,
			RegisteredAt:    now,
			ValidFrom:       now,
			ValidTo:         validTo,
			OutzoneAt:       validTo.Add(s.policy.ExpireWarningPeriod),
			DeleteAt:        validTo.Add(s.policy.ExpireWarningPeriod + s.policy.RedemptionGracePeriod),
			Period:          input.Period,
			PeriodUnit:      input.PeriodUnit,
			AuthInfo:        authInfo,
			RegistrarID:     input.RegistrarID,
			RegistrantID:    registrant.ID,
			AdminContactIDs: adminIDs,
			TechContactIDs:  techIDs,
			Nameservers:     input.Nameservers,
			DNSKeys:         input.DNSKeys,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := domain.ValidateStructure(d, s.policy.Limits); err != nil {
			return apperrors.InvalidInput(err.Error())
		}
		d.Statuses = domain.DeriveAutomaticStatus(d.Statuses, true)

		if err := s.domains.Create(ctx, d); err != nil {
			return fmt.Errorf("create domain: %w", err)
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.attachDocument(ctx, created.Name, input.LegalDocument)
	s.publishDomain(ctx, event.TopicDomainRegistered, created)

	s.logger.InfoContext(ctx, "domain registered",
		slog.String("name", created.Name),
		slog.String("registrar_id", created.RegistrarID),
		slog.Time("valid_to", created.ValidTo),
	)
	return created, nil
}

// Info retrieves a domain by name.
func (s *DomainService) Info(ctx context.Context, name string) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	d, err := s.domains.GetByName(ctx, ascii)
	if err != nil {
		return nil, fmt.Errorf("get domain by name: %w", err)
	}
	return d, nil
}

// List returns a filtered, paginated list of domains.
func (s *DomainService) List(ctx context.Context, filter repository.DomainFilter) ([]domain.Domain, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	domains, total, err := s.domains.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list domains: %w", err)
	}
	return domains, total, nil
}

// Availability is one name's answer to a check command.
type Availability struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Check reports availability for each of the given names.
func (s *DomainService) Check(ctx context.Context, names []string) ([]Availability, error) {
	results := make([]Availability, 0, len(names))
	for _, name := range names {
		uni, ascii, err := domain.NormalizeName(name)
		if err != nil {
			results = append(results, Availability{Name: name, Available: false, Reason: "invalid name"})
			continue
		}
		exists, err := s.domains.ExistsByName(ctx, ascii)
		if err != nil {
			return nil, fmt.Errorf("check domain %q: %w", name, err)
		}
		if exists {
			results = append(results, Availability{Name: uni, Available: false, Reason: "in use"})
			continue
		}
		results = append(results, Availability{Name: uni, Available: true})
	}
	return results, nil
}

// RenewInput holds the parameters of a renew command. CurExpDate must match
// the stored expiry to the day.
type RenewInput struct {
	CurExpDate string
	Period     int
	PeriodUnit string
}

// Renew extends the domain's validity by the requested period.
func (s *DomainService) Renew(ctx context.Context, name string, input RenewInput) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if err := domain.ValidatePeriod(input.Period, input.PeriodUnit); err != nil {
		return nil, apperrors.PolicyError(err.Error())
	}
	curExp, err := time.Parse("2006-01-02", input.CurExpDate)
	if err != nil {
		return nil, apperrors.InvalidInput("cur_exp_date must be formatted YYYY-MM-DD")
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var renewed *domain.Domain
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for renew: %w", err)
		}

		if d.Statuses.RenewProhibited() {
			return apperrors.StatusProhibits("status prohibits renewal")
		}
		if d.Statuses.Contains(domain.StatusDeleteCandidate) {
			return apperrors.StatusProhibits("domain is scheduled for deletion")
		}
		if !sameDay(d.ValidTo.UTC(), curExp) {
			return apperrors.PolicyError("current expiry date does not match the domain")
		}

		now := time.Now().UTC()
		if w := s.policy.DaysToRenewBeforeExpire; w > 0 {
			earliest := d.ValidTo.AddDate(0, 0, -w)
			if now.Before(earliest) {
				return apperrors.PolicyError(fmt.Sprintf("renewal is allowed within %d days of expiry", w))
			}
		}

		d.ValidTo = domain.PeriodEnd(d.ValidTo, input.Period, input.PeriodUnit)
		d.OutzoneAt = d.ValidTo.Add(s.policy.ExpireWarningPeriod)
		d.DeleteAt = d.OutzoneAt.Add(s.policy.RedemptionGracePeriod)
		d.Period = input.Period
		d.PeriodUnit = input.PeriodUnit
		d.Statuses = d.Statuses.Remove(domain.StatusExpired, domain.StatusServerHold)
		d.Statuses = domain.DeriveAutomaticStatus(d.Statuses, domain.StructurallyValid(d, s.policy.Limits))
		d.PruneStatusNotes()
		d.UpdatedAt = now

		if err := s.domains.Update(ctx, d); err != nil {
			return fmt.Errorf("persist renewed domain: %w", err)
		}
		renewed = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomain(ctx, event.TopicDomainRenewed, renewed)

	s.logger.InfoContext(ctx, "domain renewed",
		slog.String("name", renewed.Name),
		slog.Time("valid_to", renewed.ValidTo),
	)
	return renewed, nil
}

// StatusChange is one status added or removed by an update command, with an
// optional free-text note.
type StatusChange struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// UpdateSection groups the elements added or removed by an update command.
type UpdateSection struct {
	Statuses          []StatusChange      `json:"statuses,omitempty"`
	Nameservers       []domain.Nameserver `json:"nameservers,omitempty"`
	AdminContactCodes []string            `json:"admin_contacts,omitempty"`
	TechContactCodes  []string            `json:"tech_contacts,omitempty"`
	DNSKeys           []domain.DNSKey     `json:"dns_keys,omitempty"`
}

// ChangeSection groups the singular fields replaced by an update command.
type ChangeSection struct {
	RegistrantCode string `json:"registrant,omitempty"`
	AuthInfo       string `json:"auth_info,omitempty"`
}

// UpdateDomainInput holds the parameters of an update command. The whole
// input is captured verbatim in the pending snapshot when a registrant
// change requires verification, so it must stay JSON round-trippable.
type UpdateDomainInput struct {
	Add      UpdateSection `json:"add,omitempty"`
	Remove   UpdateSection `json:"remove,omitempty"`
	Change   ChangeSection `json:"change,omitempty"`
	Verified bool          `json:"verified,omitempty"`

	ActorID       string          `json:"actor_id,omitempty"`
	LegalDocument *legal.Document `json:"-"`
}

// Update applies an update command. A registrant change with verification
// enabled and the verified flag unset does not take effect immediately:
// the command is captured and the registrant is asked to confirm.
func (s *DomainService) Update(ctx context.Context, name string, input UpdateDomainInput) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var updated *domain.Domain
	var askedVerification bool
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for update: %w", err)
		}
		if d.Statuses.UpdateProhibited() {
			return apperrors.StatusProhibits("status prohibits update")
		}

		if code := input.Change.RegistrantCode; code != "" && s.policy.VerifyRegistrantChange && !input.Verified {
			newRegistrant, err := s.contacts.GetByCode(ctx, code)
			if err != nil {
				return fmt.Errorf("resolve new registrant: %w", err)
			}
			if newRegistrant.ID != d.RegistrantID {
				if err := s.askVerification(ctx, d, opUpdate, input, newRegistrant, input.ActorID); err != nil {
					return err
				}
				askedVerification = true
				updated = d
				return nil
			}
		}

		if err := s.applyUpdate(ctx, d, input); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.attachDocument(ctx, updated.Name, input.LegalDocument)
	if askedVerification {
		s.publishPending(ctx, event.TopicPendingUpdateRequested, updated, opUpdate)
		s.logger.InfoContext(ctx, "registrant change awaiting verification",
			slog.String("name", updated.Name),
		)
		return updated, nil
	}

	s.publishDomain(ctx, event.TopicDomainUpdated, updated)
	s.logger.InfoContext(ctx, "domain updated", slog.String("name", updated.Name))
	return updated, nil
}

// applyUpdate mutates the domain per the update command and persists it.
// Called for live commands and for snapshot replay on confirmation; both go
// through the same validation path.
func (s *DomainService) applyUpdate(ctx context.Context, d *domain.Domain, input UpdateDomainInput) error {
	for _, sc := range input.Add.Statuses {
		if !clientSettable[sc.Status] {
			return apperrors.PolicyError(fmt.Sprintf("status %q cannot be set by the client", sc.Status))
		}
		d.Statuses = d.Statuses.Add(sc.Status)
		if sc.Note != "" {
			if d.StatusNotes == nil {
				d.StatusNotes = make(map[string]string)
			}
			d.StatusNotes[sc.Status] = sc.Note
		}
	}
	for _, sc := range input.Remove.Statuses {
		if !clientSettable[sc.Status] {
			return apperrors.PolicyError(fmt.Sprintf("status %q cannot be removed by the client", sc.Status))
		}
		d.Statuses = d.Statuses.Remove(sc.Status)
	}

	d.Nameservers = append(d.Nameservers, input.Add.Nameservers...)
	for _, ns := range input.Remove.Nameservers {
		d.Nameservers = removeNameserver(d.Nameservers, ns.Hostname)
	}

	addAdmin, err := s.resolveContacts(ctx, input.Add.AdminContactCodes)
	if err != nil {
		return err
	}
	remAdmin, err := s.resolveContacts(ctx, input.Remove.AdminContactCodes)
	if err != nil {
		return err
	}
	addTech, err := s.resolveContacts(ctx, input.Add.TechContactCodes)
	if err != nil {
		return err
	}
	remTech, err := s.resolveContacts(ctx, input.Remove.TechContactCodes)
	if err != nil {
		return err
	}
	d.AdminContactIDs = removeIDs(appendUnique(d.AdminContactIDs, addAdmin...), remAdmin...)
	d.TechContactIDs = removeIDs(appendUnique(d.TechContactIDs, addTech...), remTech...)

	d.DNSKeys = append(d.DNSKeys, input.Add.DNSKeys...)
	for _, key := range input.Remove.DNSKeys {
		d.DNSKeys = removeDNSKey(d.DNSKeys, key.PublicKey)
	}

	if code := input.Change.RegistrantCode; code != "" {
		registrant, err := s.contacts.GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("resolve registrant: %w", err)
		}
		d.RegistrantID = registrant.ID
	}
	if input.Change.AuthInfo != "" {
		d.AuthInfo = input.Change.AuthInfo
	}

	if err := domain.ValidateStructure(d, s.policy.Limits); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	d.Statuses = domain.DeriveAutomaticStatus(d.Statuses, true)
	d.PruneStatusNotes()
	d.UpdatedAt = time.Now().UTC()

	if err := s.domains.Update(ctx, d); err != nil {
		return fmt.Errorf("persist updated domain: %w", err)
	}
	return nil
}

// DeleteDomainInput holds the parameters of a delete command.
type DeleteDomainInput struct {
	Verified      bool
	ActorID       string
	LegalDocument *legal.Document
}

// Delete processes a delete command. With verification enabled and the
// verified flag unset the registrant is asked to confirm; otherwise the
// domain is expired immediately and destruction follows the normal
// outzone/delete schedule.
func (s *DomainService) Delete(ctx context.Context, name string, input DeleteDomainInput) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var deleted *domain.Domain
	var askedVerification bool
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for delete: %w", err)
		}
		if d.Statuses.DeleteProhibited() {
			return apperrors.StatusProhibits("status prohibits deletion")
		}

		if s.policy.VerifyDelete && !input.Verified {
			if err := s.askVerification(ctx, d, opDelete, input, nil, input.ActorID); err != nil {
				return err
			}
			askedVerification = true
			deleted = d
			return nil
		}

		markExpired(d, time.Now().UTC(), s.policy)
		if err := s.domains.Update(ctx, d); err != nil {
			return fmt.Errorf("persist expired domain: %w", err)
		}
		deleted = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.attachDocument(ctx, deleted.Name, input.LegalDocument)
	if askedVerification {
		s.publishPending(ctx, event.TopicPendingDeleteRequested, deleted, opDelete)
		s.logger.InfoContext(ctx, "deletion awaiting verification", slog.String("name", deleted.Name))
		return deleted, nil
	}

	s.publishDomain(ctx, event.TopicDomainDeleted, deleted)
	s.logger.InfoContext(ctx, "domain scheduled for deletion",
		slog.String("name", deleted.Name),
		slog.Time("delete_at", deleted.DeleteAt),
	)
	return deleted, nil
}

// SetForceDelete puts the domain into the administrative force-delete state.
// Idempotent: repeating the call changes nothing and publishes no event.
func (s *DomainService) SetForceDelete(ctx context.Context, name, note string) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var updated *domain.Domain
	var entered bool
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for force delete: %w", err)
		}

		if d.Statuses.Contains(domain.StatusForceDelete) {
			updated = d
			return nil
		}

		d.EnterForceDelete(time.Now().UTC(), s.policy.RedemptionGracePeriod)
		if note != "" {
			if d.StatusNotes == nil {
				d.StatusNotes = make(map[string]string)
			}
			d.StatusNotes[domain.StatusForceDelete] = note
		}
		d.UpdatedAt = time.Now().UTC()

		if err := s.domains.Update(ctx, d); err != nil {
			return fmt.Errorf("persist force delete: %w", err)
		}
		updated = d
		entered = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entered {
		s.publishDomain(ctx, event.TopicForceDeleteSet, updated)
		s.logger.InfoContext(ctx, "force delete set",
			slog.String("name", updated.Name),
			slog.Time("force_delete_at", *updated.ForceDeleteAt),
		)
	}
	return updated, nil
}

// UnsetForceDelete lifts the force-delete state and restores the snapshotted
// statuses. A no-op on domains not in force delete.
func (s *DomainService) UnsetForceDelete(ctx context.Context, name string) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var updated *domain.Domain
	var exited bool
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for force delete unset: %w", err)
		}

		if !d.Statuses.Contains(domain.StatusForceDelete) {
			updated = d
			return nil
		}

		d.ExitForceDelete()
		d.Statuses = domain.DeriveAutomaticStatus(d.Statuses, domain.StructurallyValid(d, s.policy.Limits))
		d.PruneStatusNotes()
		d.UpdatedAt = time.Now().UTC()

		if err := s.domains.Update(ctx, d); err != nil {
			return fmt.Errorf("persist force delete unset: %w", err)
		}
		updated = d
		exited = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if exited {
		s.publishDomain(ctx, event.TopicForceDeleteUnset, updated)
		s.logger.InfoContext(ctx, "force delete unset", slog.String("name", updated.Name))
	}
	return updated, nil
}

// markExpired schedules the post-expiry lifecycle dates and adds the expired
// status. The result is persisted without structural validation: expiry must
// succeed even on domains that would fail current rules.
func markExpired(d *domain.Domain, now time.Time, policy Policy) {
	d.OutzoneAt = now.Add(policy.ExpireWarningPeriod)
	d.DeleteAt = d.OutzoneAt.Add(policy.RedemptionGracePeriod)
	d.Statuses = d.Statuses.Remove(domain.StatusOK).Add(domain.StatusExpired)
	d.UpdatedAt = now
}

func (s *DomainService) resolveContacts(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(codes))
	for _, code := range codes {
		c, err := s.contacts.GetByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("resolve contact %q: %w", code, err)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *DomainService) publishDomain(ctx context.Context, topic string, d *domain.Domain) {
	if err := s.producer.PublishDomainEvent(ctx, topic, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish domain event",
			slog.String("topic", topic),
			slog.String("name", d.Name),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}
}

func (s *DomainService) publishPending(ctx context.Context, topic string, d *domain.Domain, op string) {
	data := event.PendingEventData{
		Name:            d.Name,
		Operation:       op,
		Token:           d.VerificationToken,
		OldRegistrantID: d.RegistrantID,
	}
	if snap := d.PendingSnapshot; snap != nil {
		data.RegistrantEmail = snap.RegistrantEmail
		data.NewRegistrantID = snap.NewRegistrantID
	}
	if err := s.producer.PublishPendingEvent(ctx, topic, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish pending event",
			slog.String("topic", topic),
			slog.String("name", d.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (s *DomainService) attachDocument(ctx context.Context, name string, doc *legal.Document) {
	if doc == nil || s.docs == nil {
		return
	}
	if _, err := s.docs.Attach(ctx, name, *doc); err != nil {
		s.logger.ErrorContext(ctx, "failed to store legal document",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func appendUnique(ids []string, add ...string) []string {
	for _, id := range add {
		found := false
		for _, existing := range ids {
			if existing == id {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, id)
		}
	}
	return ids
}

func removeIDs(ids []string, remove ...string) []string {
	out := ids[:0]
	for _, id := range ids {
		drop := false
		for _, r := range remove {
			if id == r {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, id)
		}
	}
	return out
}

func removeNameserver(nameservers []domain.Nameserver, hostname string) []domain.Nameserver {
	out := nameservers[:0]
	for _, ns := range nameservers {
		if ns.Hostname != hostname {
			out = append(out, ns)
		}
	}
	return out
}

func removeDNSKey(keys []domain.DNSKey, publicKey string) []domain.DNSKey {
	out := keys[:0]
	for _, key := range keys {
		if key.PublicKey != publicKey {
			out = append(out, key)
		}
	}
	return out
}
