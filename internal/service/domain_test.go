package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	"github.com/utafrali/RegistryGo/internal/repository"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

func newTestDomainService(domains *mockDomainRepository, contacts *mockContactRepository) (*DomainService, *stubPublisher) {
	producer, publisher := newTestProducer()
	svc := NewDomainService(domains, contacts, stubTxRunner{}, NewKeyedMutex(), producer, nil, testPolicy(), newTestLogger())
	return svc, publisher
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	domains := new(mockDomainRepository)
	contacts := new(mockContactRepository)
	svc, publisher := newTestDomainService(domains, contacts)
	ctx := context.Background()

	domains.On("ExistsByName", ctx, "example.test").Return(false, nil)
	contacts.On("GetByCode", ctx, "CID:REG1:owner").Return(&domain.Contact{ID: "c-001"}, nil)
	contacts.On("GetByCode", ctx, "CID:REG1:admin").Return(&domain.Contact{ID: "c-002"}, nil)
	domains.On("Create", ctx, mock.AnythingOfType("*domain.Domain")).Return(nil)

	d, err := svc.Register(ctx, CreateDomainInput{
		Name:              "Example.test",
		Period:            1,
		PeriodUnit:        domain.PeriodUnitYear,
		RegistrantCode:    "CID:REG1:owner",
		AdminContactCodes: []string{"CID:REG1:admin"},
		Nameservers: []domain.Nameserver{
			{Hostname: "ns1.example.test"},
			{Hostname: "ns2.example.test"},
		},
		RegistrarID: "r-001",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "example.test", d.Name)
	assert.Equal(t, "example.test", d.NamePuny)
	assert.Equal(t, domain.StatusSet{domain.StatusOK}, d.Statuses)
	assert.Equal(t, "c-001", d.RegistrantID)
	assert.Equal(t, []string{"c-002"}, d.AdminContactIDs)
	assert.NotEmpty(t, d.AuthInfo)
	assert.Equal(t, d.ValidFrom.AddDate(1, 0, 0), d.ValidTo)
	assert.True(t, d.OutzoneAt.After(d.ValidTo))
	assert.True(t, d.DeleteAt.After(d.OutzoneAt))
	assert.True(t, publisher.published(event.TopicDomainRegistered))

	domains.AssertExpectations(t)
	contacts.AssertExpectations(t)
}

func TestRegister_NameTaken(t *testing.T) {
	domains := new(mockDomainRepository)
	contacts := new(mockContactRepository)
	svc, _ := newTestDomainService(domains, contacts)
	ctx := context.Background()

	domains.On("ExistsByName", ctx, "example.test").Return(true, nil)

	d, err := svc.Register(ctx, CreateDomainInput{
		Name:           "example.test",
		Period:         1,
		PeriodUnit:     domain.PeriodUnitYear,
		RegistrantCode: "CID:REG1:owner",
	})

	assert.Nil(t, d)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	domains.AssertExpectations(t)
}

func TestRegister_PeriodOutOfRange(t *testing.T) {
	svc, _ := newTestDomainService(new(mockDomainRepository), new(mockContactRepository))

	d, err := svc.Register(context.Background(), CreateDomainInput{
		Name:           "example.test",
		Period:         5,
		PeriodUnit:     domain.PeriodUnitYear,
		RegistrantCode: "CID:REG1:owner",
	})

	assert.Nil(t, d)
	assert.ErrorIs(t, err, apperrors.ErrPolicy)
}

func TestRegister_StructurallyInvalid(t *testing.T) {
	domains := new(mockDomainRepository)
	contacts := new(mockContactRepository)
	svc, _ := newTestDomainService(domains, contacts)
	ctx := context.Background()

	domains.On("ExistsByName", ctx, "example.test").Return(false, nil)
	contacts.On("GetByCode", ctx, "CID:REG1:owner").Return(&domain.Contact{ID: "c-001"}, nil)

	// One nameserver and no admin contact, below the configured minimums.
	d, err := svc.Register(ctx, CreateDomainInput{
		Name:           "example.test",
		Period:         1,
		PeriodUnit:     domain.PeriodUnitYear,
		RegistrantCode: "CID:REG1:owner",
		Nameservers:    []domain.Nameserver{{Hostname: "ns1.example.test"}},
	})

	assert.Nil(t, d)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	domains.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// --- Info / Check ---

func TestInfo_NormalizesIDN(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	expected := registeredDomain()
	domains.On("GetByName", ctx, "xn--mller-kva.test").Return(expected, nil)

	d, err := svc.Info(ctx, "MÜLLER.test")

	require.NoError(t, err)
	assert.Equal(t, expected, d)
	domains.AssertExpectations(t)
}

func TestCheck_MixedResults(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	domains.On("ExistsByName", ctx, "taken.test").Return(true, nil)
	domains.On("ExistsByName", ctx, "free.test").Return(false, nil)

	results, err := svc.Check(ctx, []string{"taken.test", "free.test", ""})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, results[0].Available)
	assert.Equal(t, "in use", results[0].Reason)
	assert.True(t, results[1].Available)
	assert.False(t, results[2].Available)
	assert.Equal(t, "invalid name", results[2].Reason)
}

// --- Renew ---

func TestRenew_Success(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	oldValidTo := d.ValidTo
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	renewed, err := svc.Renew(ctx, "example.test", RenewInput{
		CurExpDate: oldValidTo.Format("2006-01-02"),
		Period:     1,
		PeriodUnit: domain.PeriodUnitYear,
	})

	require.NoError(t, err)
	assert.Equal(t, oldValidTo.AddDate(1, 0, 0), renewed.ValidTo)
	assert.Equal(t, renewed.ValidTo.Add(15*24*time.Hour), renewed.OutzoneAt)
	assert.Equal(t, renewed.OutzoneAt.Add(30*24*time.Hour), renewed.DeleteAt)
	assert.True(t, publisher.published(event.TopicDomainRenewed))
	domains.AssertExpectations(t)
}

func TestRenew_ClearsExpiredAndHold(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.Statuses = domain.StatusSet{domain.StatusExpired, domain.StatusServerHold}
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	renewed, err := svc.Renew(ctx, "example.test", RenewInput{
		CurExpDate: d.ValidTo.Format("2006-01-02"),
		Period:     1,
		PeriodUnit: domain.PeriodUnitYear,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSet{domain.StatusOK}, renewed.Statuses)
	domains.AssertExpectations(t)
}

func TestRenew_ExpiryDateMismatch(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	oldValidTo := d.ValidTo
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	renewed, err := svc.Renew(ctx, "example.test", RenewInput{
		CurExpDate: oldValidTo.AddDate(0, 0, -1).Format("2006-01-02"),
		Period:     1,
		PeriodUnit: domain.PeriodUnitYear,
	})

	assert.Nil(t, renewed)
	assert.ErrorIs(t, err, apperrors.ErrPolicy)
	assert.Equal(t, oldValidTo, d.ValidTo)
	domains.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRenew_TooEarly(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.ValidTo = time.Now().UTC().AddDate(0, 0, 200)
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	renewed, err := svc.Renew(ctx, "example.test", RenewInput{
		CurExpDate: d.ValidTo.Format("2006-01-02"),
		Period:     1,
		PeriodUnit: domain.PeriodUnitYear,
	})

	assert.Nil(t, renewed)
	assert.ErrorIs(t, err, apperrors.ErrPolicy)
}

func TestRenew_DeleteCandidateBlocked(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.Statuses = domain.StatusSet{domain.StatusDeleteCandidate}
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	renewed, err := svc.Renew(ctx, "example.test", RenewInput{
		CurExpDate: d.ValidTo.Format("2006-01-02"),
		Period:     1,
		PeriodUnit: domain.PeriodUnitYear,
	})

	assert.Nil(t, renewed)
	assert.ErrorIs(t, err, apperrors.ErrStatusProhibits)
}

// --- Update ---

func TestUpdate_AddClientStatus(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	updated, err := svc.Update(ctx, "example.test", UpdateDomainInput{
		Add: UpdateSection{
			Statuses: []StatusChange{{Status: domain.StatusClientHold, Note: "payment overdue"}},
		},
	})

	require.NoError(t, err)
	assert.True(t, updated.Statuses.Contains(domain.StatusClientHold))
	assert.False(t, updated.Statuses.Contains(domain.StatusOK))
	assert.Equal(t, "payment overdue", updated.StatusNotes[domain.StatusClientHold])
	assert.True(t, publisher.published(event.TopicDomainUpdated))
	domains.AssertExpectations(t)
}

func TestUpdate_ServerStatusRejected(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	updated, err := svc.Update(ctx, "example.test", UpdateDomainInput{
		Add: UpdateSection{
			Statuses: []StatusChange{{Status: domain.StatusServerHold}},
		},
	})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrPolicy)
	domains.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdate_ProhibitedByStatus(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.Statuses = domain.StatusSet{domain.StatusClientUpdateProhibited}
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	updated, err := svc.Update(ctx, "example.test", UpdateDomainInput{
		Remove: UpdateSection{
			Nameservers: []domain.Nameserver{{Hostname: "ns1.example.test"}},
		},
	})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrStatusProhibits)
}

func TestUpdate_RegistrantChangeAsksVerification(t *testing.T) {
	domains := new(mockDomainRepository)
	contacts := new(mockContactRepository)
	svc, publisher := newTestDomainService(domains, contacts)
	ctx := context.Background()

	d := registeredDomain()
	newRegistrant := &domain.Contact{ID: "c-900", Code: "CID:REG1:next", Email: "next@example.test", Name: "Next Owner"}
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	contacts.On("GetByCode", ctx, "CID:REG1:next").Return(newRegistrant, nil)
	domains.On("Update", ctx, d).Return(nil)

	updated, err := svc.Update(ctx, "example.test", UpdateDomainInput{
		Change:  ChangeSection{RegistrantCode: "CID:REG1:next"},
		ActorID: "r-001",
	})

	require.NoError(t, err)
	// The change does not take effect yet.
	assert.Equal(t, "c-001", updated.RegistrantID)
	assert.True(t, updated.PendingUpdate())
	assert.Len(t, updated.VerificationToken, verificationTokenLen)
	require.NotNil(t, updated.VerificationAskedAt)
	require.NotNil(t, updated.PendingSnapshot)
	assert.Equal(t, "r-001", updated.PendingSnapshot.ActorID)
	assert.Equal(t, "c-900", updated.PendingSnapshot.NewRegistrantID)
	assert.True(t, publisher.published(event.TopicPendingUpdateRequested))
	domains.AssertExpectations(t)
}

func TestUpdate_RegistrantChangeVerifiedAppliesDirectly(t *testing.T) {
	domains := new(mockDomainRepository)
	contacts := new(mockContactRepository)
	svc, publisher := newTestDomainService(domains, contacts)
	ctx := context.Background()

	d := registeredDomain()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	contacts.On("GetByCode", ctx, "CID:REG1:next").Return(&domain.Contact{ID: "c-900"}, nil)
	domains.On("Update", ctx, d).Return(nil)

	updated, err := svc.Update(ctx, "example.test", UpdateDomainInput{
		Change:   ChangeSection{RegistrantCode: "CID:REG1:next"},
		Verified: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "c-900", updated.RegistrantID)
	assert.False(t, updated.PendingUpdate())
	assert.True(t, publisher.published(event.TopicDomainUpdated))
	domains.AssertExpectations(t)
}

// --- Delete ---

func TestDelete_AsksVerification(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	deleted, err := svc.Delete(ctx, "example.test", DeleteDomainInput{ActorID: "r-001"})

	require.NoError(t, err)
	assert.True(t, deleted.PendingDelete())
	assert.Len(t, deleted.VerificationToken, verificationTokenLen)
	assert.False(t, deleted.Statuses.Contains(domain.StatusExpired))
	assert.True(t, publisher.published(event.TopicPendingDeleteRequested))
	domains.AssertExpectations(t)
}

func TestDelete_VerifiedExpiresImmediately(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	deleted, err := svc.Delete(ctx, "example.test", DeleteDomainInput{Verified: true})

	require.NoError(t, err)
	assert.True(t, deleted.Statuses.Contains(domain.StatusExpired))
	assert.False(t, deleted.Statuses.Contains(domain.StatusOK))
	assert.True(t, deleted.DeleteAt.After(deleted.OutzoneAt))
	assert.True(t, publisher.published(event.TopicDomainDeleted))
	domains.AssertExpectations(t)
}

func TestDelete_ForceDeleteBlocks(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.EnterForceDelete(time.Now().UTC(), 30*24*time.Hour)
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	deleted, err := svc.Delete(ctx, "example.test", DeleteDomainInput{Verified: true})

	assert.Nil(t, deleted)
	assert.ErrorIs(t, err, apperrors.ErrStatusProhibits)
}

// --- Force delete ---

func TestSetForceDelete_Success(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	updated, err := svc.SetForceDelete(ctx, "example.test", "court order")

	require.NoError(t, err)
	assert.True(t, updated.Statuses.Contains(domain.StatusForceDelete))
	assert.True(t, updated.Statuses.Contains(domain.StatusServerManualInzone))
	require.NotNil(t, updated.ForceDeleteAt)
	assert.Equal(t, "court order", updated.StatusNotes[domain.StatusForceDelete])
	assert.True(t, publisher.published(event.TopicForceDeleteSet))
	domains.AssertExpectations(t)
}

func TestSetForceDelete_Idempotent(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.EnterForceDelete(time.Now().UTC(), 30*24*time.Hour)
	before := d.Statuses.Clone()
	domains.On("GetByName", ctx, "example.test").Return(d, nil)

	updated, err := svc.SetForceDelete(ctx, "example.test", "")

	require.NoError(t, err)
	assert.Equal(t, before, updated.Statuses)
	assert.False(t, publisher.published(event.TopicForceDeleteSet))
	domains.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUnsetForceDelete_RestoresStatuses(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, publisher := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	d := registeredDomain()
	d.Statuses = domain.StatusSet{domain.StatusClientHold}
	d.EnterForceDelete(time.Now().UTC(), 30*24*time.Hour)
	domains.On("GetByName", ctx, "example.test").Return(d, nil)
	domains.On("Update", ctx, d).Return(nil)

	updated, err := svc.UnsetForceDelete(ctx, "example.test")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSet{domain.StatusClientHold}, updated.Statuses)
	assert.Nil(t, updated.ForceDeleteAt)
	assert.Nil(t, updated.StatusesBackup)
	assert.True(t, publisher.published(event.TopicForceDeleteUnset))
	domains.AssertExpectations(t)
}

// --- List ---

func TestList_DefaultPagination(t *testing.T) {
	domains := new(mockDomainRepository)
	svc, _ := newTestDomainService(domains, new(mockContactRepository))
	ctx := context.Background()

	expectedFilter := repository.DomainFilter{Page: 1, PerPage: 20}
	domains.On("List", ctx, expectedFilter).Return([]domain.Domain{}, 0, nil)

	result, total, err := svc.List(ctx, repository.DomainFilter{})

	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, 0, total)
	domains.AssertExpectations(t)
}
