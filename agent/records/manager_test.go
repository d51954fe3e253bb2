package records

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

type fakeStore struct {
	mu      sync.Mutex
	vendors []contractx.Vendor
	orders  []contractx.PurchaseOrder
	nextID  int64
	calls   []string
	err     error
}

func (f *fakeStore) id() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeStore) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.err
}

func (f *fakeStore) ListVendors(context.Context) ([]contractx.Vendor, error) {
	return f.vendors, f.record("list_vendors")
}

func (f *fakeStore) CreateVendor(_ context.Context, in contractx.VendorFields) (contractx.Vendor, error) {
	if err := f.record("create_vendor"); err != nil {
		return contractx.Vendor{}, err
	}
	return contractx.Vendor{ID: f.id(), Name: in.Name, Address: in.Address, Phone: in.Phone, Email: in.Email}, nil
}

func (f *fakeStore) UpdateVendor(_ context.Context, id int64, in contractx.VendorFields) (contractx.Vendor, error) {
	if err := f.record("update_vendor"); err != nil {
		return contractx.Vendor{}, err
	}
	return contractx.Vendor{ID: id, Name: in.Name, Address: in.Address, Phone: in.Phone, Email: in.Email}, nil
}

func (f *fakeStore) DeleteVendor(context.Context, int64) error {
	return f.record("delete_vendor")
}

func (f *fakeStore) ListOrders(context.Context) ([]contractx.PurchaseOrder, error) {
	return f.orders, f.record("list_orders")
}

func (f *fakeStore) CreateOrder(_ context.Context, in contractx.OrderFields) (contractx.PurchaseOrder, error) {
	if err := f.record("create_order"); err != nil {
		return contractx.PurchaseOrder{}, err
	}
	return contractx.PurchaseOrder{ID: f.id(), PONumber: in.PONumber, Amount: in.Amount, Vendor: in.Vendor, Status: in.Status}, nil
}

func (f *fakeStore) ReviseOrder(_ context.Context, id int64, in contractx.OrderFields) (contractx.PurchaseOrder, error) {
	if err := f.record("revise_order"); err != nil {
		return contractx.PurchaseOrder{}, err
	}
	status := in.Status
	if status == "" {
		status = contractx.StatusReleased
	}
	return contractx.PurchaseOrder{ID: id, PONumber: in.PONumber, Amount: in.Amount, Vendor: in.Vendor, Status: status}, nil
}

func (f *fakeStore) ArchiveOrder(context.Context, int64) error {
	return f.record("archive_order")
}

func (f *fakeStore) DeleteOrder(context.Context, int64) error {
	return f.record("delete_order")
}

func newTestManager(t *testing.T, store *fakeStore) *Manager {
	t.Helper()
	m, err := NewManager(store, cache.New())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManagerValidatesArgs(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(nil, cache.New()); !errors.Is(err, ErrNilStore) {
		t.Fatalf("NewManager(nil store) error = %v", err)
	}
	if _, err := NewManager(&fakeStore{}, nil); !errors.Is(err, ErrNilCache) {
		t.Fatalf("NewManager(nil cache) error = %v", err)
	}
}

func TestVendorOperationsReconcileCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeStore{}
	m := newTestManager(t, store)

	a, err := m.CreateVendor(ctx, contractx.VendorFields{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateVendor() error = %v", err)
	}
	b, _ := m.CreateVendor(ctx, contractx.VendorFields{Name: "Globex"})

	got := m.Cache().Vendors()
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("vendors = %+v, want appended in order", got)
	}

	if _, err := m.UpdateVendor(ctx, a.ID, contractx.VendorFields{Name: "Acme Ltd"}); err != nil {
		t.Fatalf("UpdateVendor() error = %v", err)
	}
	got = m.Cache().Vendors()
	if got[0].Name != "Acme Ltd" || got[0].ID != a.ID {
		t.Fatalf("vendor not replaced in place: %+v", got)
	}

	if err := m.DeleteVendor(ctx, a.ID); err != nil {
		t.Fatalf("DeleteVendor() error = %v", err)
	}
	got = m.Cache().Vendors()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("vendors after delete = %+v", got)
	}
}

func TestCreateVendorRequiresNameWithoutStoreCall(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := newTestManager(t, store)

	if _, err := m.CreateVendor(context.Background(), contractx.VendorFields{Name: "  "}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("CreateVendor() error = %v, want ErrValidation", err)
	}
	if _, err := m.UpdateVendor(context.Background(), 1, contractx.VendorFields{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("UpdateVendor() error = %v, want ErrValidation", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("store called: %v", store.calls)
	}
}

func TestOrderOperationsReconcileCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeStore{}
	m := newTestManager(t, store)

	first, err := m.CreateOrder(ctx, contractx.OrderFields{PONumber: 1, Amount: 10, Vendor: " Acme "})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if first.Status != contractx.StatusOpen || first.Vendor != "Acme" {
		t.Fatalf("CreateOrder() = %+v", first)
	}
	second, _ := m.CreateOrder(ctx, contractx.OrderFields{PONumber: 2, Status: "closed"})
	if second.Status != contractx.StatusClosed {
		t.Fatalf("status = %q, want Closed", second.Status)
	}

	orders := m.Cache().Orders()
	if len(orders) != 2 || orders[0].ID != second.ID {
		t.Fatalf("orders = %+v, want newest first", orders)
	}

	revised, err := m.ReviseOrder(ctx, first.ID, contractx.OrderFields{PONumber: 11, Amount: 99, Vendor: "Globex"})
	if err != nil {
		t.Fatalf("ReviseOrder() error = %v", err)
	}
	if revised.Status != contractx.StatusReleased {
		t.Fatalf("revise with empty status should keep the store's status, got %q", revised.Status)
	}
	orders = m.Cache().Orders()
	if orders[1] != revised {
		t.Fatalf("cache order = %+v, want %+v", orders[1], revised)
	}

	if err := m.ArchiveOrder(ctx, second.ID); err != nil {
		t.Fatalf("ArchiveOrder() error = %v", err)
	}
	if got := m.Cache().Orders()[0].Status; got != contractx.StatusArchived {
		t.Fatalf("status after archive = %q", got)
	}

	if err := m.DeleteOrder(ctx, first.ID); err != nil {
		t.Fatalf("DeleteOrder() error = %v", err)
	}
	if got := m.Cache().Orders(); len(got) != 1 || got[0].ID != second.ID {
		t.Fatalf("orders after delete = %+v", got)
	}
}

func TestOrderValidationSkipsStore(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := newTestManager(t, store)
	ctx := context.Background()

	if _, err := m.CreateOrder(ctx, contractx.OrderFields{Amount: -5}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("CreateOrder(negative) error = %v", err)
	}
	if _, err := m.ReviseOrder(ctx, 1, contractx.OrderFields{Status: "nope"}); !errors.Is(err, contractx.ErrInvalidStatus) {
		t.Fatalf("ReviseOrder(bad status) error = %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("store called: %v", store.calls)
	}
}

func TestFailedCallsLeaveCacheUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := &contractx.RemoteError{Status: 500, Detail: "db down"}
	store := &fakeStore{}
	m := newTestManager(t, store)

	o, _ := m.CreateOrder(ctx, contractx.OrderFields{PONumber: 7})
	v, _ := m.CreateVendor(ctx, contractx.VendorFields{Name: "Acme"})
	beforeOrders := m.Cache().Orders()
	beforeVendors := m.Cache().Vendors()

	store.err = boom
	ops := []func() error{
		func() error { _, err := m.CreateVendor(ctx, contractx.VendorFields{Name: "x"}); return err },
		func() error { _, err := m.UpdateVendor(ctx, v.ID, contractx.VendorFields{Name: "x"}); return err },
		func() error { return m.DeleteVendor(ctx, v.ID) },
		func() error { _, err := m.CreateOrder(ctx, contractx.OrderFields{PONumber: 8}); return err },
		func() error { _, err := m.ReviseOrder(ctx, o.ID, contractx.OrderFields{PONumber: 9}); return err },
		func() error { return m.ArchiveOrder(ctx, o.ID) },
		func() error { return m.DeleteOrder(ctx, o.ID) },
	}
	for i, op := range ops {
		err := op()
		var remote *contractx.RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("op %d error = %v, want wrapped RemoteError", i, err)
		}
	}

	if got := m.Cache().Orders(); len(got) != 1 || got[0] != beforeOrders[0] {
		t.Fatalf("orders changed: %+v", got)
	}
	if got := m.Cache().Vendors(); len(got) != 1 || got[0] != beforeVendors[0] {
		t.Fatalf("vendors changed: %+v", got)
	}
}

func TestRefreshSeedsCache(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		vendors: []contractx.Vendor{{ID: 1, Name: "Acme"}},
		orders:  []contractx.PurchaseOrder{{ID: 2, PONumber: 5, Status: contractx.StatusOpen}},
	}
	m := newTestManager(t, store)

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(m.Cache().Vendors()) != 1 || len(m.Cache().Orders()) != 1 {
		t.Fatalf("cache = %+v / %+v", m.Cache().Vendors(), m.Cache().Orders())
	}
}
