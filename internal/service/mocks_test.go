package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	"github.com/utafrali/RegistryGo/internal/repository"
	pkgkafka "github.com/utafrali/RegistryGo/pkg/kafka"
)

// --- Mock Repositories ---

type mockDomainRepository struct {
	mock.Mock
}

func (m *mockDomainRepository) Create(ctx context.Context, d *domain.Domain) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDomainRepository) GetByName(ctx context.Context, namePuny string) (*domain.Domain, error) {
	args := m.Called(ctx, namePuny)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Domain), args.Error(1)
}

func (m *mockDomainRepository) List(ctx context.Context, filter repository.DomainFilter) ([]domain.Domain, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Domain), args.Int(1), args.Error(2)
}

func (m *mockDomainRepository) Update(ctx context.Context, d *domain.Domain) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDomainRepository) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDomainRepository) ExistsByName(ctx context.Context, namePuny string) (bool, error) {
	args := m.Called(ctx, namePuny)
	return args.Bool(0), args.Error(1)
}

func (m *mockDomainRepository) DueForExpiry(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Domain), args.Error(1)
}

func (m *mockDomainRepository) DueForOutzone(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Domain), args.Error(1)
}

func (m *mockDomainRepository) DueForDeleteCandidate(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Domain), args.Error(1)
}

func (m *mockDomainRepository) DestroyCandidates(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Domain), args.Error(1)
}

func (m *mockDomainRepository) OverduePendings(ctx context.Context, cutoff time.Time) ([]domain.Domain, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]domain.Domain), args.Error(1)
}

type mockContactRepository struct {
	mock.Mock
}

func (m *mockContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *mockContactRepository) GetByCode(ctx context.Context, code string) (*domain.Contact, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *mockContactRepository) Update(ctx context.Context, c *domain.Contact) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockContactRepository) ReferenceCount(ctx context.Context, contactID, excludingDomainID string) (int, error) {
	args := m.Called(ctx, contactID, excludingDomainID)
	return args.Int(0), args.Error(1)
}

type mockRegistrarRepository struct {
	mock.Mock
}

func (m *mockRegistrarRepository) GetByID(ctx context.Context, id string) (*domain.Registrar, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registrar), args.Error(1)
}

func (m *mockRegistrarRepository) GetByCode(ctx context.Context, code string) (*domain.Registrar, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registrar), args.Error(1)
}

func (m *mockRegistrarRepository) GetByToken(ctx context.Context, token string) (*domain.Registrar, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registrar), args.Error(1)
}

type mockTransferRepository struct {
	mock.Mock
}

func (m *mockTransferRepository) Create(ctx context.Context, t *domain.TransferRecord) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTransferRepository) Latest(ctx context.Context, domainID string) (*domain.TransferRecord, error) {
	args := m.Called(ctx, domainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferRecord), args.Error(1)
}

func (m *mockTransferRepository) Pending(ctx context.Context, domainID string) (*domain.TransferRecord, error) {
	args := m.Called(ctx, domainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferRecord), args.Error(1)
}

func (m *mockTransferRepository) Update(ctx context.Context, t *domain.TransferRecord) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

type mockMessageQueue struct {
	mock.Mock
}

func (m *mockMessageQueue) Enqueue(ctx context.Context, registrarID string, msg repository.Message) error {
	args := m.Called(ctx, registrarID, msg)
	return args.Error(0)
}

func (m *mockMessageQueue) Peek(ctx context.Context, registrarID string) (*repository.Message, error) {
	args := m.Called(ctx, registrarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Message), args.Error(1)
}

func (m *mockMessageQueue) Ack(ctx context.Context, registrarID, messageID string) error {
	args := m.Called(ctx, registrarID, messageID)
	return args.Error(0)
}

// --- Stubs ---

// stubTxRunner runs the function directly; repositories are mocked so there
// is no real transaction to manage.
type stubTxRunner struct{}

func (stubTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubPublisher records published topics instead of talking to Kafka.
type stubPublisher struct {
	topics []string
}

func (p *stubPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *stubPublisher) published(topic string) bool {
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPolicy() Policy {
	return Policy{
		ExpireWarningPeriod:       15 * 24 * time.Hour,
		RedemptionGracePeriod:     30 * 24 * time.Hour,
		PendingConfirmationWindow: 48 * time.Hour,
		DaysToRenewBeforeExpire:   90,
		TransferWaitHours:         24,
		VerifyRegistrantChange:    true,
		VerifyDelete:              true,
		Limits: domain.ValidationLimits{
			MinNameservers:   2,
			MaxNameservers:   11,
			MinAdminContacts: 1,
			MaxAdminContacts: 10,
			MinTechContacts:  0,
			MaxTechContacts:  10,
			MaxDNSKeys:       8,
		},
	}
}

func newTestProducer() (*event.Producer, *stubPublisher) {
	publisher := &stubPublisher{}
	return event.NewProducer(publisher, newTestLogger()), publisher
}

// registeredDomain is a structurally valid domain expiring in 30 days,
// inside the renewal window of testPolicy.
func registeredDomain() *domain.Domain {
	now := time.Now().UTC().Truncate(time.Second)
	validTo := now.AddDate(0, 0, 30)
	return &domain.Domain{
		ID:              "d-001",
		Name:            "example.test",
		NamePuny:        "example.test",
		RegisteredAt:    now.AddDate(-1, 0, 30),
		ValidFrom:       now.AddDate(-1, 0, 30),
		ValidTo:         validTo,
		OutzoneAt:       validTo.Add(15 * 24 * time.Hour),
		DeleteAt:        validTo.Add(45 * 24 * time.Hour),
		Period:          1,
		PeriodUnit:      domain.PeriodUnitYear,
		Statuses:        domain.StatusSet{domain.StatusOK},
		AuthInfo:        "transfer-secret",
		RegistrarID:     "r-001",
		RegistrantID:    "c-001",
		AdminContactIDs: []string{"c-002"},
		Nameservers: []domain.Nameserver{
			{Hostname: "ns1.example.test"},
			{Hostname: "ns2.example.test"},
		},
		CreatedAt: now.AddDate(-1, 0, 30),
		UpdatedAt: now.AddDate(-1, 0, 30),
	}
}
