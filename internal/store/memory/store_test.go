package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bountytracker/internal/core"
)

func newSale(id, imei string) core.Sale {
	return core.Sale{
		ID:             id,
		IMEI:           imei,
		Email:          id + "@example.com",
		StoreLocation:  core.StoreParisRd,
		Category:       core.CategoryUpgrade,
		ActivationDate: "2024-01-01",
		Status:         core.StatusActive,
		BountyTracking: []core.BountyMonth{{MonthNumber: 1}},
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateSale(ctx, newSale("a", "111")); err != nil {
		t.Fatalf("CreateSale() error = %v", err)
	}
	if err := s.CreateSale(ctx, newSale("b", "222")); err != nil {
		t.Fatalf("CreateSale() error = %v", err)
	}

	list, err := s.ListSales(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("ListSales() = %v, %v; want [a b] in insertion order", list, err)
	}

	updated := newSale("a", "333")
	updated.Notes = "moved"
	if err := s.UpdateSale(ctx, updated); err != nil {
		t.Fatalf("UpdateSale() error = %v", err)
	}
	got, err := s.GetSale(ctx, "a")
	if err != nil || got.IMEI != "333" || got.Notes != "moved" {
		t.Errorf("GetSale() = %+v, %v", got, err)
	}

	if err := s.DeleteSale(ctx, "a"); err != nil {
		t.Fatalf("DeleteSale() error = %v", err)
	}
	if _, err := s.GetSale(ctx, "a"); !errors.Is(err, core.ErrSaleNotFound) {
		t.Errorf("GetSale() after delete error = %v, want ErrSaleNotFound", err)
	}
	if err := s.DeleteSale(ctx, "a"); !errors.Is(err, core.ErrSaleNotFound) {
		t.Errorf("DeleteSale() twice error = %v, want ErrSaleNotFound", err)
	}
}

func TestStoreRejectsDuplicateIMEI(t *testing.T) {
	ctx := context.Background()
	s := New(newSale("a", "111"), newSale("b", "222"))

	if err := s.CreateSale(ctx, newSale("c", "111")); !errors.Is(err, core.ErrDuplicateIdentifier) {
		t.Errorf("CreateSale() error = %v, want ErrDuplicateIdentifier", err)
	}
	if err := s.UpdateSale(ctx, newSale("b", "111")); !errors.Is(err, core.ErrDuplicateIdentifier) {
		t.Errorf("UpdateSale() error = %v, want ErrDuplicateIdentifier", err)
	}
	// Keeping its own IMEI is fine.
	if err := s.UpdateSale(ctx, newSale("b", "222")); err != nil {
		t.Errorf("UpdateSale() error = %v", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New(newSale("a", "111"))

	got, _ := s.GetSale(ctx, "a")
	got.BountyTracking[0].Paid = true

	again, _ := s.GetSale(ctx, "a")
	if again.BountyTracking[0].Paid {
		t.Error("mutating a returned sale changed the stored one")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("NewFromFile() missing file error = %v", err)
	}
	if list, _ := s.ListSales(context.Background()); len(list) != 0 {
		t.Errorf("ListSales() = %d sales, want 0", len(list))
	}

	path := filepath.Join(dir, "seed.json")
	seed := `[{"id":"x","imei":"999","email":"x@example.com","storeLocation":"sedalia",
		"category":"byod","activationDate":"2024-02-01","status":"active",
		"bountyTracking":[{"monthNumber":1,"paid":true,"payments":[{"type":"spiff","amount":"40.00"}]}]}]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	got, err := s.GetSale(context.Background(), "x")
	if err != nil {
		t.Fatalf("GetSale() error = %v", err)
	}
	if got.BountyTracking[0].Payments[0].Amount.Cents != 4000 {
		t.Errorf("seeded amount = %v, want 40.00", got.BountyTracking[0].Payments[0].Amount)
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := NewFromFile(bad); err == nil {
		t.Error("NewFromFile() expected error for malformed JSON")
	}
}
