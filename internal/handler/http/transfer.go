package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/RegistryGo/internal/service"
	"github.com/utafrali/RegistryGo/pkg/httputil"
	"github.com/utafrali/RegistryGo/pkg/middleware"
	"github.com/utafrali/RegistryGo/pkg/validator"
)

// TransferHandler handles HTTP requests for transfer and registrar message
// queue endpoints.
type TransferHandler struct {
	service *service.TransferService
	logger  *slog.Logger
}

// NewTransferHandler creates a new transfer HTTP handler.
func NewTransferHandler(svc *service.TransferService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		service: svc,
		logger:  logger,
	}
}

// TransferRequest is the JSON request body for a transfer command. The op
// field selects the sub-command, mirroring the EPP transfer op attribute.
type TransferRequest struct {
	Op       string `json:"op" validate:"required,oneof=query request approve reject"`
	AuthInfo string `json:"auth_info"`
}

// Transfer handles POST /api/v1/domains/{name}/transfer
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req TransferRequest
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

	name := chi.URLParam(r, "name")
	actorID := middleware.UserIDFromContext(r.Context())

	var (
		record any
		err    error
	)
	switch req.Op {
	case "query":
		record, err = h.service.Query(r.Context(), name)
	case "request":
		record, err = h.service.Request(r.Context(), name, actorID, req.AuthInfo)
	case "approve":
		record, err = h.service.Approve(r.Context(), name, actorID)
	case "reject":
		record, err = h.service.Reject(r.Context(), name, actorID)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}

// PollMessage handles GET /api/v1/messages
//
// It returns the oldest unacknowledged message for the acting registrar
// without removing it, EPP poll op="req" semantics.
func (h *TransferHandler) PollMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.PollMessage(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: msg})
}

// AckMessage handles DELETE /api/v1/messages/{id}
func (h *TransferHandler) AckMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	err := h.service.AckMessage(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
