package contract

import "context"

// EntityStore is the remote resource store consumed by the assistant. Mutating
// calls return the store's canonical representation where one exists.
type EntityStore interface {
	ListVendors(ctx context.Context) ([]Vendor, error)
	CreateVendor(ctx context.Context, fields VendorFields) (Vendor, error)
	UpdateVendor(ctx context.Context, id int64, fields VendorFields) (Vendor, error)
	DeleteVendor(ctx context.Context, id int64) error

	ListOrders(ctx context.Context) ([]PurchaseOrder, error)
	CreateOrder(ctx context.Context, fields OrderFields) (PurchaseOrder, error)
	ReviseOrder(ctx context.Context, id int64, fields OrderFields) (PurchaseOrder, error)
	ArchiveOrder(ctx context.Context, id int64) error
	DeleteOrder(ctx context.Context, id int64) error
}
