package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nmviana/vendimia-backend/internal/payouts"
	"github.com/nmviana/vendimia-backend/pkg/enums"
)

type testBalanceService struct {
	balance *payouts.VendorBalance
	err     error
}

func (s *testBalanceService) Balance(_ context.Context, vendorID uuid.UUID) (*payouts.VendorBalance, error) {
	return s.balance, s.err
}

func TestVendorBalanceFormatsAmounts(t *testing.T) {
	vendorID := uuid.New()
	svc := &testBalanceService{balance: &payouts.VendorBalance{
		VendorID:      vendorID,
		TotalEarnings: mustDecimal(t, "175.5"),
		PaidOut:       mustDecimal(t, "60"),
		Reserved:      mustDecimal(t, "70"),
		Available:     mustDecimal(t, "45.5"),
	}}
	handler := VendorBalance(svc, nil)

	req := vendorRequest(http.MethodGet, "/api/v1/vendors/"+vendorID.String()+"/balance", vendorID.String(), enums.ActorRoleVendor, vendorID.String())
	resp := httptest.NewRecorder()
	handler(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data vendorBalanceResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalEarnings != "175.50" {
		t.Fatalf("unexpected earnings %s", envelope.Data.TotalEarnings)
	}
	if envelope.Data.Available != "45.50" {
		t.Fatalf("unexpected available %s", envelope.Data.Available)
	}
}

func TestVendorBalanceForbidsUnscopedCaller(t *testing.T) {
	vendorID := uuid.New()
	handler := VendorBalance(&testBalanceService{}, nil)

	req := vendorRequest(http.MethodGet, "/api/v1/vendors/"+vendorID.String()+"/balance", vendorID.String(), enums.ActorRole("guest"), "")
	resp := httptest.NewRecorder()
	handler(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
