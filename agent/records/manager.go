// Package records performs form-style vendor and purchase order edits against
// the entity store and reconciles the local cache on success.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/pkg/metrics"
)

var (
	ErrNilStore = errors.New("entity store is nil")
	ErrNilCache = errors.New("cache is nil")
)

// Manager issues exactly one store call per operation. The cache is touched
// only after the call succeeds.
type Manager struct {
	store contractx.EntityStore
	cache *cache.Cache
}

func NewManager(store contractx.EntityStore, c *cache.Cache) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if c == nil {
		return nil, ErrNilCache
	}
	return &Manager{store: store, cache: c}, nil
}

func (m *Manager) Cache() *cache.Cache {
	return m.cache
}

// Refresh reloads both collections from the store.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.cache.Seed(ctx, m.store)
}

/* ------------------------------ Vendors ------------------------------ */

func (m *Manager) CreateVendor(ctx context.Context, fields contractx.VendorFields) (contractx.Vendor, error) {
	if err := requireName(fields); err != nil {
		return contractx.Vendor{}, err
	}
	v, err := m.store.CreateVendor(ctx, fields)
	observe("create_vendor", err)
	if err != nil {
		return contractx.Vendor{}, fmt.Errorf("create vendor: %w", err)
	}
	m.cache.AppendVendor(v)
	return v, nil
}

func (m *Manager) UpdateVendor(ctx context.Context, id int64, fields contractx.VendorFields) (contractx.Vendor, error) {
	if err := requireName(fields); err != nil {
		return contractx.Vendor{}, err
	}
	v, err := m.store.UpdateVendor(ctx, id, fields)
	observe("update_vendor", err)
	if err != nil {
		return contractx.Vendor{}, fmt.Errorf("update vendor %d: %w", id, err)
	}
	if v.ID == 0 {
		v.ID = id
	}
	if !m.cache.ReplaceVendor(v) {
		m.cache.AppendVendor(v)
	}
	return v, nil
}

func (m *Manager) DeleteVendor(ctx context.Context, id int64) error {
	err := m.store.DeleteVendor(ctx, id)
	observe("delete_vendor", err)
	if err != nil {
		return fmt.Errorf("delete vendor %d: %w", id, err)
	}
	m.cache.RemoveVendor(id)
	return nil
}

/* --------------------------- Purchase orders --------------------------- */

func (m *Manager) CreateOrder(ctx context.Context, fields contractx.OrderFields) (contractx.PurchaseOrder, error) {
	fields, err := normalizeOrder(fields, true)
	if err != nil {
		return contractx.PurchaseOrder{}, err
	}
	o, err := m.store.CreateOrder(ctx, fields)
	observe("create_order", err)
	if err != nil {
		return contractx.PurchaseOrder{}, fmt.Errorf("create purchase order: %w", err)
	}
	m.cache.PrependOrder(o)
	return o, nil
}

// ReviseOrder replaces po, amount, vendor and status as a unit. An empty
// status asks the store to keep the current one.
func (m *Manager) ReviseOrder(ctx context.Context, id int64, fields contractx.OrderFields) (contractx.PurchaseOrder, error) {
	fields, err := normalizeOrder(fields, false)
	if err != nil {
		return contractx.PurchaseOrder{}, err
	}
	o, err := m.store.ReviseOrder(ctx, id, fields)
	observe("revise_order", err)
	if err != nil {
		return contractx.PurchaseOrder{}, fmt.Errorf("revise purchase order %d: %w", id, err)
	}
	if o.ID == 0 {
		o = contractx.PurchaseOrder{
			ID:       id,
			PONumber: fields.PONumber,
			Amount:   fields.Amount,
			Vendor:   fields.Vendor,
			Status:   fields.Status.OrDefault(),
		}
	}
	if !m.cache.ReplaceOrder(o) {
		m.cache.PrependOrder(o)
	}
	return o, nil
}

// ArchiveOrder sets Archived regardless of the current status.
func (m *Manager) ArchiveOrder(ctx context.Context, id int64) error {
	err := m.store.ArchiveOrder(ctx, id)
	observe("archive_order", err)
	if err != nil {
		return fmt.Errorf("archive purchase order %d: %w", id, err)
	}
	m.cache.SetOrderStatus(id, contractx.StatusArchived)
	return nil
}

func (m *Manager) DeleteOrder(ctx context.Context, id int64) error {
	err := m.store.DeleteOrder(ctx, id)
	observe("delete_order", err)
	if err != nil {
		return fmt.Errorf("delete purchase order %d: %w", id, err)
	}
	m.cache.RemoveOrder(id)
	return nil
}

func requireName(fields contractx.VendorFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return fmt.Errorf("%w: vendor name is required", contractx.ErrValidation)
	}
	return nil
}

func normalizeOrder(fields contractx.OrderFields, defaultStatus bool) (contractx.OrderFields, error) {
	if fields.Amount < 0 {
		return fields, fmt.Errorf("%w: amount must be >= 0", contractx.ErrValidation)
	}
	if defaultStatus || strings.TrimSpace(string(fields.Status)) != "" {
		status, err := contractx.ParseStatus(string(fields.Status))
		if err != nil {
			return fields, err
		}
		fields.Status = status
	}
	fields.Vendor = strings.TrimSpace(fields.Vendor)
	return fields, nil
}

func observe(op string, err error) {
	metrics.ObserveStoreCall(op, err)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("store call failed")
	}
}
