/*
handlers.go - HTTP handlers for the redemption engine

PURPOSE:
  Exposes the engine to the portal's redemption workflow, offer-browsing
  views, and administrative tooling. Handles HTTP request/response and JSON
  serialization, delegating every decision to the domain packages.

ENDPOINTS:
  POST /api/redemptions             Run one redemption attempt
  POST /api/offers/status           Eligibility view for one (employee, offer)
  GET  /api/usage/{employeeID}/{offerID}  Usage record lookup
  GET  /api/authz/check             Permission/action/route queries for UI gating
  POST /api/admin/reset             Wipe usage records (non-production only)
  GET  /health                      Liveness
  GET  /metrics                     Prometheus metrics

ERROR HANDLING:
  Denials are 200 responses carrying the outcome and reason - they are
  business results, not errors. The error status codes are reserved for:
  - 400: Malformed body, unknown enum values, invalid offer configuration
  - 404: Missing usage record on direct lookup
  - 503: Storage failure (retryable by the caller, full attempt restart)

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/perks-engine/authz"
	"github.com/warp/perks-engine/eligibility"
	"github.com/warp/perks-engine/offer"
	"github.com/warp/perks-engine/redemption"
	"github.com/warp/perks-engine/usage"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Authz       *authz.Engine
	Evaluator   *eligibility.Evaluator
	Coordinator *redemption.Coordinator
	Store       usage.Store

	// Production excludes the administrative reset route from the surface.
	Production bool
}

func NewHandler(engine *authz.Engine, ev *eligibility.Evaluator, coord *redemption.Coordinator, store usage.Store, production bool) *Handler {
	return &Handler{
		Authz:       engine,
		Evaluator:   ev,
		Coordinator: coord,
		Store:       store,
		Production:  production,
	}
}

// =============================================================================
// REDEMPTION
// =============================================================================

// Redeem runs one redemption attempt through the coordinator.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	o, err := req.Offer.toOffer()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := redemption.Actor{ID: req.EmployeeID, Role: authz.Role(req.Role)}
	res, err := h.Coordinator.Redeem(r.Context(), actor, o)
	if err != nil {
		h.writeFault(w, err)
		return
	}

	dto := RedeemResultDTO{
		AttemptID: res.AttemptID,
		Outcome:   string(res.Outcome),
		Reason:    res.Reason,
		Code:      res.Code,
	}
	if res.Outcome == redemption.Recorded {
		dto.Usage = usageDTO(res.Usage)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// BROWSING VIEWS
// =============================================================================

// OfferStatus returns the eligibility view the offer listing renders.
func (h *Handler) OfferStatus(w http.ResponseWriter, r *http.Request) {
	var req OfferStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	o, err := req.Offer.toOffer()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	decision, err := h.Evaluator.Evaluate(ctx, req.EmployeeID, o)
	if err != nil {
		h.writeFault(w, err)
		return
	}
	remaining, err := h.Evaluator.RemainingUses(ctx, req.EmployeeID, o)
	if err != nil {
		h.writeFault(w, err)
		return
	}
	hide, err := h.Evaluator.ShouldHideFromBrowse(ctx, req.EmployeeID, o)
	if err != nil {
		h.writeFault(w, err)
		return
	}
	text, err := h.Evaluator.StatusText(ctx, req.EmployeeID, o)
	if err != nil {
		h.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OfferStatusDTO{
		Allowed:        decision.Allowed,
		Reason:         decision.Reason,
		Unlimited:      remaining.Unlimited,
		RemainingUses:  remaining.Uses,
		HideFromBrowse: hide,
		StatusText:     text,
	})
}

// GetUsage returns the raw usage record for a pair.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	offerID := chi.URLParam(r, "offerID")

	rec, ok, err := h.Store.Get(r.Context(), employeeID, offerID)
	if err != nil {
		h.writeFault(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no usage recorded for this pair")
		return
	}
	writeJSON(w, http.StatusOK, usageDTO(rec))
}

// =============================================================================
// AUTHORIZATION QUERIES
// =============================================================================

// AuthzCheck answers UI-gating queries. Any of permission, action, and path
// may be supplied; each answered independently, all fail-closed.
func (h *Handler) AuthzCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := authz.Role(q.Get("role"))
	if role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	dto := AuthzCheckDTO{Role: string(role)}
	if perm := q.Get("permission"); perm != "" {
		v := h.Authz.HasPermission(role, authz.Permission(perm))
		dto.Permission, dto.HasPermission = perm, &v
	}
	if action := q.Get("action"); action != "" {
		v := h.Authz.CanPerformAction(role, authz.Action(action))
		dto.Action, dto.CanPerform = action, &v
	}
	if path := q.Get("path"); path != "" {
		v := h.Authz.CanAccessRoute(role, path)
		dto.Path, dto.CanAccess = path, &v
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetUsage wipes all usage records. Mounted only outside production.
func (h *Handler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ClearAll(r.Context()); err != nil {
		h.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, offer.ErrInvalidConfiguration):
		// Configuration errors carry actionable detail for the offer service.
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usage.ErrOfferNotFound):
		writeError(w, http.StatusBadRequest, "offer reference is invalid")
	default:
		// Storage faults: generic message outward, full detail in the logs.
		log.Printf("api: storage fault: %v", err)
		writeError(w, http.StatusServiceUnavailable, "temporary failure, retry the request")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}
