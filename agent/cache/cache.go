// Package cache keeps the in-memory mirror of vendors and purchase orders used
// for display and informational replies. It is seeded once and then patched
// after every successful store mutation.
//
// A Cache is not safe for concurrent use. Each conversation session owns its own.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

var (
	ErrOrderNotFound   = errors.New("purchase order not found in cache")
	ErrAmbiguousOrder  = errors.New("multiple purchase orders share that number")
	ErrInvalidTieBreak = errors.New("invalid tie-break policy")
)

// TieBreak selects a record when several cached orders share a po-number.
type TieBreak string

const (
	TieBreakFirst  TieBreak = "first"
	TieBreakLast   TieBreak = "last"
	TieBreakReject TieBreak = "reject"
)

func ParseTieBreak(raw string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TieBreakFirst:
		return TieBreakFirst, nil
	case TieBreakLast:
		return TieBreakLast, nil
	case TieBreakReject:
		return TieBreakReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTieBreak, raw)
	}
}

type Cache struct {
	vendors []contractx.Vendor
	orders  []contractx.PurchaseOrder
}

func New() *Cache {
	return &Cache{}
}

// Seed replaces both collections with a full load, fetching them concurrently.
// On error the cache is left untouched.
func (c *Cache) Seed(ctx context.Context, store contractx.EntityStore) error {
	var (
		vendors []contractx.Vendor
		orders  []contractx.PurchaseOrder
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := store.ListVendors(gctx)
		if err != nil {
			return fmt.Errorf("list vendors: %w", err)
		}
		vendors = v
		return nil
	})
	g.Go(func() error {
		o, err := store.ListOrders(gctx)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		orders = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.ReplaceVendors(vendors)
	c.ReplaceOrders(orders)
	return nil
}

func (c *Cache) ReplaceVendors(vendors []contractx.Vendor) {
	c.vendors = c.vendors[:0]
	for _, v := range vendors {
		c.AppendVendor(v)
	}
}

func (c *Cache) ReplaceOrders(orders []contractx.PurchaseOrder) {
	c.orders = append([]contractx.PurchaseOrder(nil), orders...)
}

// Vendors returns a copy in cache order.
func (c *Cache) Vendors() []contractx.Vendor {
	return append([]contractx.Vendor(nil), c.vendors...)
}

// Orders returns a copy in cache order.
func (c *Cache) Orders() []contractx.PurchaseOrder {
	return append([]contractx.PurchaseOrder(nil), c.orders...)
}

/* ------------------------------ Vendors ------------------------------ */

// AppendVendor adds v at the end, or replaces the cached vendor with the same id.
func (c *Cache) AppendVendor(v contractx.Vendor) {
	if i := c.vendorIndex(v.ID); i >= 0 {
		c.vendors[i] = v
		return
	}
	c.vendors = append(c.vendors, v)
}

func (c *Cache) ReplaceVendor(v contractx.Vendor) bool {
	i := c.vendorIndex(v.ID)
	if i < 0 {
		return false
	}
	c.vendors[i] = v
	return true
}

func (c *Cache) RemoveVendor(id int64) bool {
	i := c.vendorIndex(id)
	if i < 0 {
		return false
	}
	c.vendors = append(c.vendors[:i], c.vendors[i+1:]...)
	return true
}

func (c *Cache) vendorIndex(id int64) int {
	for i := range c.vendors {
		if c.vendors[i].ID == id {
			return i
		}
	}
	return -1
}

/* ------------------------------- Orders ------------------------------ */

// PrependOrder puts o at the front. A cached order with the same id is dropped first.
func (c *Cache) PrependOrder(o contractx.PurchaseOrder) {
	c.RemoveOrder(o.ID)
	c.orders = append([]contractx.PurchaseOrder{o}, c.orders...)
}

func (c *Cache) ReplaceOrder(o contractx.PurchaseOrder) bool {
	i := c.orderIndex(o.ID)
	if i < 0 {
		return false
	}
	c.orders[i] = o
	return true
}

func (c *Cache) SetOrderStatus(id int64, status contractx.Status) bool {
	i := c.orderIndex(id)
	if i < 0 {
		return false
	}
	c.orders[i].Status = status
	return true
}

func (c *Cache) RemoveOrder(id int64) bool {
	i := c.orderIndex(id)
	if i < 0 {
		return false
	}
	c.orders = append(c.orders[:i], c.orders[i+1:]...)
	return true
}

func (c *Cache) orderIndex(id int64) int {
	for i := range c.orders {
		if c.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// FindOrderByNumber resolves a po-number to a cached order. Numbers are
// compared in their string form.
func (c *Cache) FindOrderByNumber(poNumber int, policy TieBreak) (contractx.PurchaseOrder, error) {
	want := strconv.Itoa(poNumber)

	var matches []int
	for i := range c.orders {
		if strconv.Itoa(c.orders[i].PONumber) == want {
			matches = append(matches, i)
		}
	}

	switch {
	case len(matches) == 0:
		return contractx.PurchaseOrder{}, fmt.Errorf("%w: %d", ErrOrderNotFound, poNumber)
	case len(matches) == 1:
		return c.orders[matches[0]], nil
	}

	switch policy {
	case TieBreakLast:
		return c.orders[matches[len(matches)-1]], nil
	case TieBreakReject:
		return contractx.PurchaseOrder{}, fmt.Errorf("%w: %d (%d records)", ErrAmbiguousOrder, poNumber, len(matches))
	default:
		return c.orders[matches[0]], nil
	}
}

// Apply reconciles the cache with the outcome of a dispatched action.
func (c *Cache) Apply(delta contractx.CacheDelta) {
	if delta.RemoveOrderID != nil {
		c.RemoveOrder(*delta.RemoveOrderID)
	}
	if delta.PrependOrder != nil {
		c.PrependOrder(*delta.PrependOrder)
	}
}
