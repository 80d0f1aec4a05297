package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	"github.com/utafrali/RegistryGo/internal/repository"
	"github.com/utafrali/RegistryGo/internal/service"
	"github.com/utafrali/RegistryGo/pkg/httputil"
	pkgkafka "github.com/utafrali/RegistryGo/pkg/kafka"
	"github.com/utafrali/RegistryGo/pkg/middleware"
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

type stubTxRunner struct{}

func (stubTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, string, *pkgkafka.Event) error {
	return nil
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPolicy() service.Policy {
	return service.Policy{
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

// testValidator resolves the fixed tokens used by handler tests.
func testValidator(_ context.Context, token string) (*middleware.Claims, error) {
	switch token {
	case "registrar-token":
		return &middleware.Claims{UserID: "r-001", Role: "registrar"}, nil
	case "gaining-token":
		return &middleware.Claims{UserID: "r-002", Role: "registrar"}, nil
	case "admin-token":
		return &middleware.Claims{UserID: "admin-1", Role: "admin"}, nil
	}
	return nil, errors.New("unknown token")
}

type handlerMocks struct {
	domains    *mockDomainRepository
	contacts   *mockContactRepository
	registrars *mockRegistrarRepository
	transfers  *mockTransferRepository
	messages   *mockMessageQueue
}

// setupRouter builds a chi router matching the production route layout, with
// real services over mocked repositories.
func setupRouter(m *handlerMocks) *chi.Mux {
	logger := testLogger()
	producer := event.NewProducer(stubPublisher{}, logger)
	locks := service.NewKeyedMutex()

	domainService := service.NewDomainService(
		m.domains, m.contacts, stubTxRunner{}, locks, producer, nil, testPolicy(), logger)
	transferService := service.NewTransferService(
		m.domains, m.contacts, m.registrars, m.transfers, m.messages,
		stubTxRunner{}, locks, producer, testPolicy(), logger)

	domainHandler := NewDomainHandler(domainService, logger)
	transferHandler := NewTransferHandler(transferService, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/domains/{name}/confirm-update", domainHandler.ConfirmUpdate)
		r.Post("/domains/{name}/confirm-delete", domainHandler.ConfirmDelete)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(testValidator))

			r.Route("/domains", func(r chi.Router) {
				r.Post("/", domainHandler.CreateDomain)
				r.Get("/", domainHandler.ListDomains)
				r.Get("/check", domainHandler.CheckDomains)
				r.Get("/{name}", domainHandler.GetDomain)
				r.Patch("/{name}", domainHandler.UpdateDomain)
				r.Delete("/{name}", domainHandler.DeleteDomain)
				r.Post("/{name}/renew", domainHandler.RenewDomain)
				r.Post("/{name}/transfer", transferHandler.Transfer)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole("admin"))
					r.Post("/{name}/force-delete", domainHandler.SetForceDelete)
					r.Delete("/{name}/force-delete", domainHandler.UnsetForceDelete)
				})
			})

			r.Get("/messages", transferHandler.PollMessage)
			r.Delete("/messages/{id}", transferHandler.AckMessage)
		})
	})
	return r
}

func newHandlerMocks() *handlerMocks {
	return &handlerMocks{
		domains:    new(mockDomainRepository),
		contacts:   new(mockContactRepository),
		registrars: new(mockRegistrarRepository),
		transfers:  new(mockTransferRepository),
		messages:   new(mockMessageQueue),
	}
}

// authRequest builds a request carrying the given bearer token and a JSON body.
func authRequest(method, target, token string, body []byte) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// decodeResponse reads the response body into the httputil.Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// sampleDomain is a structurally valid domain sponsored by r-001, expiring in
// 30 days.
func sampleDomain() *domain.Domain {
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
