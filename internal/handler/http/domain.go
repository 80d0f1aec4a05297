package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/legal"
	"github.com/utafrali/RegistryGo/internal/repository"
	"github.com/utafrali/RegistryGo/internal/service"
	"github.com/utafrali/RegistryGo/pkg/httputil"
	"github.com/utafrali/RegistryGo/pkg/middleware"
	"github.com/utafrali/RegistryGo/pkg/validator"
)

// checkNamesLimit caps how many names a single availability check may carry.
const checkNamesLimit = 20

// DomainHandler handles HTTP requests for domain endpoints.
type DomainHandler struct {
	service *service.DomainService
	logger  *slog.Logger
}

// NewDomainHandler creates a new domain HTTP handler.
func NewDomainHandler(svc *service.DomainService, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// NameserverRequest is the JSON request body for a delegated nameserver.
type NameserverRequest struct {
	Hostname string   `json:"hostname" validate:"required,fqdn"`
	IPv4     []string `json:"ipv4" validate:"omitempty,dive,ip4_addr"`
	IPv6     []string `json:"ipv6" validate:"omitempty,dive,ip6_addr"`
}

// DNSKeyRequest is the JSON request body for a DNSSEC key.
type DNSKeyRequest struct {
	Flags     int    `json:"flags" validate:"oneof=0 256 257"`
	Protocol  int    `json:"protocol" validate:"eq=3"`
	Algorithm int    `json:"alg" validate:"gte=1,lte=16"`
	PublicKey string `json:"public_key" validate:"required"`
}

// LegalDocumentRequest is an optional legal document accompanying a command.
type LegalDocumentRequest struct {
	Kind string `json:"kind" validate:"required"`
	Body string `json:"body" validate:"required"`
}

// CreateDomainRequest is the JSON request body for registering a domain.
type CreateDomainRequest struct {
	Name          string                `json:"name" validate:"required"`
	Period        int                   `json:"period" validate:"omitempty,gte=1,lte=1095"`
	PeriodUnit    string                `json:"period_unit" validate:"omitempty,oneof=d m y"`
	Registrant    string                `json:"registrant" validate:"required"`
	AdminContacts []string              `json:"admin_contacts"`
	TechContacts  []string              `json:"tech_contacts"`
	Nameservers   []NameserverRequest   `json:"nameservers" validate:"omitempty,dive"`
	DNSKeys       []DNSKeyRequest       `json:"dns_keys" validate:"omitempty,dive"`
	AuthInfo      string                `json:"auth_info"`
	LegalDocument *LegalDocumentRequest `json:"legal_document"`
}

// RenewDomainRequest is the JSON request body for renewing a domain.
type RenewDomainRequest struct {
	CurExpDate string `json:"cur_exp_date" validate:"required,datetime=2006-01-02"`
	Period     int    `json:"period" validate:"omitempty,gte=1,lte=1095"`
	PeriodUnit string `json:"period_unit" validate:"omitempty,oneof=d m y"`
}

// StatusChangeRequest is one status added or removed by an update.
type StatusChangeRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// UpdateSectionRequest groups the elements added or removed by an update.
type UpdateSectionRequest struct {
	Statuses      []StatusChangeRequest `json:"statuses" validate:"omitempty,dive"`
	Nameservers   []NameserverRequest   `json:"nameservers" validate:"omitempty,dive"`
	AdminContacts []string              `json:"admin_contacts"`
	TechContacts  []string              `json:"tech_contacts"`
	DNSKeys       []DNSKeyRequest       `json:"dns_keys" validate:"omitempty,dive"`
}

// ChangeSectionRequest groups the singular fields replaced by an update.
type ChangeSectionRequest struct {
	Registrant string `json:"registrant"`
	AuthInfo   string `json:"auth_info"`
}

// UpdateDomainRequest is the JSON request body for updating a domain. The
// verified flag marks a registrant change as pre-verified, skipping the
// confirmation round trip.
type UpdateDomainRequest struct {
	Add           UpdateSectionRequest  `json:"add"`
	Remove        UpdateSectionRequest  `json:"remove"`
	Change        ChangeSectionRequest  `json:"change"`
	Verified      bool                  `json:"verified"`
	LegalDocument *LegalDocumentRequest `json:"legal_document"`
}

// DeleteDomainRequest is the optional JSON request body for deleting a domain.
type DeleteDomainRequest struct {
	Verified      bool                  `json:"verified"`
	LegalDocument *LegalDocumentRequest `json:"legal_document"`
}

// ConfirmRequest carries the verification token mailed to the registrant.
type ConfirmRequest struct {
	Token string `json:"token" validate:"required"`
}

// ForceDeleteRequest is the JSON request body for the force-delete override.
type ForceDeleteRequest struct {
	Note string `json:"note"`
}

func toNameservers(in []NameserverRequest) []domain.Nameserver {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Nameserver, len(in))
	for i, ns := range in {
		out[i] = domain.Nameserver{Hostname: ns.Hostname, IPv4: ns.IPv4, IPv6: ns.IPv6}
	}
	return out
}

func toDNSKeys(in []DNSKeyRequest) []domain.DNSKey {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.DNSKey, len(in))
	for i, k := range in {
		out[i] = domain.DNSKey{Flags: k.Flags, Protocol: k.Protocol, Algorithm: k.Algorithm, PublicKey: k.PublicKey}
	}
	return out
}

func toStatusChanges(in []StatusChangeRequest) []service.StatusChange {
	if len(in) == 0 {
		return nil
	}
	out := make([]service.StatusChange, len(in))
	for i, sc := range in {
		out[i] = service.StatusChange{Status: sc.Status, Note: sc.Note}
	}
	return out
}

func toLegalDocument(in *LegalDocumentRequest) *legal.Document {
	if in == nil {
		return nil
	}
	return &legal.Document{Kind: in.Kind, Body: in.Body}
}

func toUpdateSection(in UpdateSectionRequest) service.UpdateSection {
	return service.UpdateSection{
		Statuses:          toStatusChanges(in.Statuses),
		Nameservers:       toNameservers(in.Nameservers),
		AdminContactCodes: in.AdminContacts,
		TechContactCodes:  in.TechContacts,
		DNSKeys:           toDNSKeys(in.DNSKeys),
	}
}

// --- Handlers ---

// CreateDomain handles POST /api/v1/domains
func (h *DomainHandler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Registration defaults to one year.
	if req.Period == 0 {
		req.Period = 1
	}
	if req.PeriodUnit == "" {
		req.PeriodUnit = domain.PeriodUnitYear
	}

	input := service.CreateDomainInput{
		Name:              req.Name,
		Period:            req.Period,
		PeriodUnit:        req.PeriodUnit,
		RegistrantCode:    req.Registrant,
		AdminContactCodes: req.AdminContacts,
		TechContactCodes:  req.TechContacts,
		Nameservers:       toNameservers(req.Nameservers),
		DNSKeys:           toDNSKeys(req.DNSKeys),
		AuthInfo:          req.AuthInfo,
		RegistrarID:       middleware.UserIDFromContext(r.Context()),
		LegalDocument:     toLegalDocument(req.LegalDocument),
	}

	d, err := h.service.Register(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: d})
}

// ListDomains handles GET /api/v1/domains
func (h *DomainHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	filter := repository.DomainFilter{
		Page:    1,
		PerPage: 20,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		filter.Page = page
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		filter.PerPage = perPage
	}
	if v := r.URL.Query().Get("registrar_id"); v != "" {
		filter.RegistrarID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	domains, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(domains, total, filter.Page, filter.PerPage))
}

// GetDomain handles GET /api/v1/domains/{name}
func (h *DomainHandler) GetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Info(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// CheckDomains handles GET /api/v1/domains/check?names=a.test,b.test
func (h *DomainHandler) CheckDomains(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("names")
	if raw == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "names is required"},
		})
		return
	}

	names := strings.Split(raw, ",")
	if len(names) > checkNamesLimit {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "at most " + strconv.Itoa(checkNamesLimit) + " names per check"},
		})
		return
	}

	results, err := h.service.Check(r.Context(), names)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: results})
}

// RenewDomain handles POST /api/v1/domains/{name}/renew
func (h *DomainHandler) RenewDomain(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RenewDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if req.Period == 0 {
		req.Period = 1
	}
	if req.PeriodUnit == "" {
		req.PeriodUnit = domain.PeriodUnitYear
	}

	d, err := h.service.Renew(r.Context(), chi.URLParam(r, "name"), service.RenewInput{
		CurExpDate: req.CurExpDate,
		Period:     req.Period,
		PeriodUnit: req.PeriodUnit,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// UpdateDomain handles PATCH /api/v1/domains/{name}
func (h *DomainHandler) UpdateDomain(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateDomainInput{
		Add:    toUpdateSection(req.Add),
		Remove: toUpdateSection(req.Remove),
		Change: service.ChangeSection{
			RegistrantCode: req.Change.Registrant,
			AuthInfo:       req.Change.AuthInfo,
		},
		Verified:      req.Verified,
		ActorID:       middleware.UserIDFromContext(r.Context()),
		LegalDocument: toLegalDocument(req.LegalDocument),
	}

	d, err := h.service.Update(r.Context(), chi.URLParam(r, "name"), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// DeleteDomain handles DELETE /api/v1/domains/{name}
func (h *DomainHandler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	// The body is optional; an absent body means a plain delete, but a
	// malformed one is rejected rather than quietly ignored.
	var req DeleteDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	d, err := h.service.Delete(r.Context(), chi.URLParam(r, "name"), service.DeleteDomainInput{
		Verified:      req.Verified,
		ActorID:       middleware.UserIDFromContext(r.Context()),
		LegalDocument: toLegalDocument(req.LegalDocument),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// ConfirmUpdate handles POST /api/v1/domains/{name}/confirm-update
func (h *DomainHandler) ConfirmUpdate(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeConfirm(w, r)
	if !ok {
		return
	}

	d, err := h.service.ConfirmUpdate(r.Context(), chi.URLParam(r, "name"), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// ConfirmDelete handles POST /api/v1/domains/{name}/confirm-delete
func (h *DomainHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeConfirm(w, r)
	if !ok {
		return
	}

	if err := h.service.ConfirmDelete(r.Context(), chi.URLParam(r, "name"), token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DomainHandler) decodeConfirm(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return "", false
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return "", false
	}
	return req.Token, true
}

// SetForceDelete handles POST /api/v1/domains/{name}/force-delete
func (h *DomainHandler) SetForceDelete(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	// The note is optional; an absent body is a plain force delete, but a
	// malformed one is rejected rather than quietly ignored.
	var req ForceDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	d, err := h.service.SetForceDelete(r.Context(), chi.URLParam(r, "name"), req.Note)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// UnsetForceDelete handles DELETE /api/v1/domains/{name}/force-delete
func (h *DomainHandler) UnsetForceDelete(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.UnsetForceDelete(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}
