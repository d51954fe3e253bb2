package repository

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(context.Background(), Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestOpenRequiresDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{DSN: "  "}); err == nil {
		t.Fatal("Open() expected error for empty dsn")
	}
}

func TestIsPostgres(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"postgres://u:p@localhost:5432/db?sslmode=disable": true,
		"POSTGRESQL://localhost/db":                        true,
		"file:vendordesk.db?cache=shared":                  false,
		":memory:":                                         false,
	}
	for dsn, want := range cases {
		if got := isPostgres(dsn); got != want {
			t.Errorf("isPostgres(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestVendorLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepository(t)

	acme, err := repo.CreateVendor(ctx, contractx.VendorFields{Name: " Acme Corp ", Email: "ops@acme.io"})
	if err != nil {
		t.Fatalf("CreateVendor() error = %v", err)
	}
	if acme.ID == 0 || acme.Name != "Acme Corp" {
		t.Fatalf("CreateVendor() = %+v", acme)
	}
	globex, err := repo.CreateVendor(ctx, contractx.VendorFields{Name: "Globex"})
	if err != nil {
		t.Fatalf("CreateVendor() error = %v", err)
	}

	vendors, err := repo.ListVendors(ctx)
	if err != nil {
		t.Fatalf("ListVendors() error = %v", err)
	}
	if len(vendors) != 2 || vendors[0].ID != acme.ID || vendors[1].ID != globex.ID {
		t.Fatalf("ListVendors() = %+v, want id ascending", vendors)
	}
	if vendors[1].Address != "" {
		t.Fatalf("absent address = %q, want empty", vendors[1].Address)
	}

	updated, err := repo.UpdateVendor(ctx, acme.ID, contractx.VendorFields{Name: "Acme Ltd", Phone: "555"})
	if err != nil {
		t.Fatalf("UpdateVendor() error = %v", err)
	}
	if updated.ID != acme.ID || updated.Name != "Acme Ltd" || updated.Email != "" {
		t.Fatalf("UpdateVendor() = %+v", updated)
	}

	if _, err := repo.UpdateVendor(ctx, 999, contractx.VendorFields{Name: "x"}); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("UpdateVendor(absent) error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteVendor(ctx, acme.ID); err != nil {
		t.Fatalf("DeleteVendor() error = %v", err)
	}
	vendors, _ = repo.ListVendors(ctx)
	if len(vendors) != 1 || vendors[0].Name != "Globex" {
		t.Fatalf("ListVendors() after delete = %+v", vendors)
	}
}

func TestCreateVendorRequiresName(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	_, err := repo.CreateVendor(context.Background(), contractx.VendorFields{Name: "   "})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("CreateVendor() error = %v, want ErrValidation", err)
	}
}

func TestOrderLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepository(t)

	first, err := repo.CreateOrder(ctx, contractx.OrderFields{PONumber: 123, Amount: 5000, Vendor: "Acme Corp"})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if first.Status != contractx.StatusOpen {
		t.Fatalf("default status = %q, want Open", first.Status)
	}

	// Duplicate po numbers are legal.
	second, err := repo.CreateOrder(ctx, contractx.OrderFields{PONumber: 123, Amount: 1.5, Status: "released"})
	if err != nil {
		t.Fatalf("CreateOrder(duplicate) error = %v", err)
	}
	if second.Status != contractx.StatusReleased {
		t.Fatalf("status = %q, want Released", second.Status)
	}

	orders, err := repo.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 2 || orders[0].ID != second.ID || orders[1].ID != first.ID {
		t.Fatalf("ListOrders() = %+v, want id descending", orders)
	}

	revised, err := repo.ReviseOrder(ctx, first.ID, contractx.OrderFields{PONumber: 124, Amount: 10, Vendor: "Globex"})
	if err != nil {
		t.Fatalf("ReviseOrder() error = %v", err)
	}
	want := contractx.PurchaseOrder{ID: first.ID, PONumber: 124, Amount: 10, Vendor: "Globex", Status: contractx.StatusOpen}
	if revised != want {
		t.Fatalf("ReviseOrder() = %+v, want %+v", revised, want)
	}

	revised, err = repo.ReviseOrder(ctx, first.ID, contractx.OrderFields{PONumber: 124, Amount: 10, Vendor: "Globex", Status: contractx.StatusClosed})
	if err != nil {
		t.Fatalf("ReviseOrder(status) error = %v", err)
	}
	if revised.Status != contractx.StatusClosed {
		t.Fatalf("status = %q, want Closed", revised.Status)
	}

	if err := repo.ArchiveOrder(ctx, first.ID); err != nil {
		t.Fatalf("ArchiveOrder() error = %v", err)
	}
	orders, _ = repo.ListOrders(ctx)
	if orders[1].Status != contractx.StatusArchived {
		t.Fatalf("status after archive = %q", orders[1].Status)
	}

	if err := repo.DeleteOrder(ctx, second.ID); err != nil {
		t.Fatalf("DeleteOrder() error = %v", err)
	}
	orders, _ = repo.ListOrders(ctx)
	if len(orders) != 1 || orders[0].ID != first.ID {
		t.Fatalf("ListOrders() after delete = %+v", orders)
	}
}

func TestOrderValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepository(t)

	if _, err := repo.CreateOrder(ctx, contractx.OrderFields{PONumber: 1, Amount: -1}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("CreateOrder(negative) error = %v, want ErrValidation", err)
	}
	if _, err := repo.CreateOrder(ctx, contractx.OrderFields{PONumber: 1, Status: "Pending"}); !errors.Is(err, contractx.ErrInvalidStatus) {
		t.Fatalf("CreateOrder(bad status) error = %v, want ErrInvalidStatus", err)
	}
	if _, err := repo.ReviseOrder(ctx, 42, contractx.OrderFields{PONumber: 1}); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("ReviseOrder(absent) error = %v, want ErrNotFound", err)
	}

	created, err := repo.CreateOrder(ctx, contractx.OrderFields{PONumber: 1})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if _, err := repo.ReviseOrder(ctx, created.ID, contractx.OrderFields{PONumber: 1, Status: "bogus"}); !errors.Is(err, contractx.ErrInvalidStatus) {
		t.Fatalf("ReviseOrder(bad status) error = %v, want ErrInvalidStatus", err)
	}
}
