/*
handlers_test.go - HTTP-level tests for the redemption API

Tests for:
- Redemption round trips (recorded, denied, unauthorized)
- Offer status view
- Authz check queries
- Admin reset gating by environment
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/perks-engine/api"
	"github.com/warp/perks-engine/authz"
	"github.com/warp/perks-engine/discount"
	"github.com/warp/perks-engine/eligibility"
	"github.com/warp/perks-engine/redemption"
	"github.com/warp/perks-engine/usage/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T, production bool) (*httptest.Server, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	engine := authz.NewEngine()
	ev := eligibility.NewEvaluator(mem)
	coord := redemption.NewCoordinator(engine, ev, discount.NewGenerator(), mem)
	h := api.NewHandler(engine, ev, coord, mem, production)

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, mem
}

func singleUseOfferDTO(id string) api.OfferDTO {
	return api.OfferDTO{
		ID:                 id,
		SupplierID:         "sup-1",
		UsageLimit:         "once_per_employee",
		RedemptionType:     "online",
		DiscountCodeType:   "auto_generated",
		DiscountPercentage: 15,
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// REDEMPTION ENDPOINT
// =============================================================================

func TestRedeemEndpoint_SuccessThenDenied(t *testing.T) {
	// GIVEN: A running server and a single-use online offer
	// WHEN: The same employee redeems twice
	// THEN: First attempt records and issues a code; second is limit_exceeded

	srv, _ := newTestServer(t, false)

	req := api.RedeemRequest{
		EmployeeID: "emp-1",
		Role:       "employee",
		Offer:      singleUseOfferDTO("offr-1"),
	}

	resp := postJSON(t, srv.URL+"/api/redemptions", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[api.RedeemResultDTO](t, resp)
	assert.Equal(t, "recorded", first.Outcome)
	assert.NotEmpty(t, first.Code)
	require.NotNil(t, first.Usage)
	assert.Equal(t, 1, first.Usage.UsageCount)

	resp = postJSON(t, srv.URL+"/api/redemptions", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, "denial is a result, not an HTTP error")
	second := decode[api.RedeemResultDTO](t, resp)
	assert.Equal(t, "limit_exceeded", second.Outcome)
	assert.Equal(t, "offer already used, single-use only", second.Reason)
	assert.Nil(t, second.Usage)
}

func TestRedeemEndpoint_Unauthorized(t *testing.T) {
	srv, mem := newTestServer(t, false)

	req := api.RedeemRequest{
		EmployeeID: "sup-1",
		Role:       "supplier",
		Offer:      singleUseOfferDTO("offr-1"),
	}

	resp := postJSON(t, srv.URL+"/api/redemptions", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[api.RedeemResultDTO](t, resp)
	assert.Equal(t, "unauthorized", res.Outcome)
	assert.Equal(t, 0, mem.Len())
}

func TestRedeemEndpoint_BadEnum(t *testing.T) {
	srv, _ := newTestServer(t, false)

	dto := singleUseOfferDTO("offr-1")
	dto.UsageLimit = "whenever"
	resp := postJSON(t, srv.URL+"/api/redemptions", api.RedeemRequest{
		EmployeeID: "emp-1", Role: "employee", Offer: dto,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRedeemEndpoint_MisconfiguredOffer(t *testing.T) {
	srv, _ := newTestServer(t, false)

	dto := singleUseOfferDTO("offr-1")
	dto.DiscountCodeType = "supplier_provided"
	dto.SupplierDiscountCode = ""
	resp := postJSON(t, srv.URL+"/api/redemptions", api.RedeemRequest{
		EmployeeID: "emp-1", Role: "employee", Offer: dto,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// OFFER STATUS ENDPOINT
// =============================================================================

func TestOfferStatusEndpoint(t *testing.T) {
	srv, mem := newTestServer(t, false)

	req := api.OfferStatusRequest{EmployeeID: "emp-1", Offer: singleUseOfferDTO("offr-1")}

	resp := postJSON(t, srv.URL+"/api/offers/status", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[api.OfferStatusDTO](t, resp)
	assert.True(t, status.Allowed)
	assert.Equal(t, 1, status.RemainingUses)
	assert.False(t, status.HideFromBrowse)
	assert.Equal(t, "single use only", status.StatusText)

	_, err := mem.RecordUsage(context.Background(), "emp-1", "offr-1", "CODE")
	require.NoError(t, err)

	resp = postJSON(t, srv.URL+"/api/offers/status", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status = decode[api.OfferStatusDTO](t, resp)
	assert.False(t, status.Allowed)
	assert.Equal(t, 0, status.RemainingUses)
	assert.True(t, status.HideFromBrowse)
	assert.Equal(t, "used", status.StatusText)
}

// =============================================================================
// AUTHZ CHECK ENDPOINT
// =============================================================================

func TestAuthzCheckEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/api/authz/check?role=employee&action=redeem_offer&path=/perks/offers&permission=manage_users")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dto := decode[api.AuthzCheckDTO](t, resp)

	require.NotNil(t, dto.CanPerform)
	assert.True(t, *dto.CanPerform)
	require.NotNil(t, dto.CanAccess)
	assert.True(t, *dto.CanAccess)
	require.NotNil(t, dto.HasPermission)
	assert.False(t, *dto.HasPermission)
}

// =============================================================================
// ADMIN RESET GATING
// =============================================================================

func TestAdminReset_DevOnly(t *testing.T) {
	// GIVEN: A non-production server
	// WHEN: An allowed role posts to /api/admin/reset
	// THEN: Records are wiped; disallowed roles are refused

	srv, mem := newTestServer(t, false)
	_, err := mem.RecordUsage(context.Background(), "emp-1", "offr-1", "")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/reset", nil)
	require.NoError(t, err)
	req.Header.Set(api.HeaderActorRole, "super_admin")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, mem.Len())

	// Employee role is not allowed under /admin.
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/api/admin/reset", nil)
	require.NoError(t, err)
	req.Header.Set(api.HeaderActorRole, "employee")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminReset_NotMountedInProduction(t *testing.T) {
	srv, _ := newTestServer(t, true)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/reset", nil)
	require.NoError(t, err)
	req.Header.Set(api.HeaderActorRole, "super_admin")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "reset must be absent from production surfaces")
}
