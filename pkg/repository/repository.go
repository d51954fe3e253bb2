// Package repository persists vendors and purchase orders with bun, on
// postgres or sqlite depending on the DSN.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

type Config struct {
	DSN string `envconfig:"DSN" default:"file:vendordesk.db?cache=shared"`
}

// Repository implements contract.EntityStore on a SQL database.
type Repository struct {
	db *bun.DB
}

var _ contractx.EntityStore = (*Repository)(nil)

type vendorRow struct {
	bun.BaseModel `bun:"table:vendors,alias:v"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Name    string `bun:"name,notnull"`
	Address string `bun:"address,nullzero"`
	Phone   string `bun:"phone,nullzero"`
	Email   string `bun:"email,nullzero"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:purchase_orders,alias:po"`

	ID       int64   `bun:"id,pk,autoincrement"`
	PONumber int     `bun:"po,notnull"`
	Amount   float64 `bun:"amount,notnull"`
	Vendor   string  `bun:"vendor,notnull"`
	Status   string  `bun:"status,notnull"`
}

// Open connects to cfg.DSN and creates missing tables. postgres:// and
// postgresql:// DSNs use pgdriver; anything else is handed to sqlite.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}

	var db *bun.DB
	if isPostgres(dsn) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	} else {
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// One connection keeps in-memory databases alive and avoids SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}
	db.AddQueryHook(queryLogger{})

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return repo, nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func (r *Repository) initSchema(ctx context.Context) error {
	for _, model := range []any{(*vendorRow)(nil), (*orderRow)(nil)} {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

/* ------------------------------ Vendors ------------------------------ */

// ListVendors returns vendors in insertion (id ascending) order.
func (r *Repository) ListVendors(ctx context.Context) ([]contractx.Vendor, error) {
	var rows []vendorRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select vendors: %w", err)
	}
	out := make([]contractx.Vendor, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toVendor())
	}
	return out, nil
}

func (r *Repository) CreateVendor(ctx context.Context, fields contractx.VendorFields) (contractx.Vendor, error) {
	row, err := newVendorRow(fields)
	if err != nil {
		return contractx.Vendor{}, err
	}
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return contractx.Vendor{}, fmt.Errorf("insert vendor: %w", err)
	}
	return row.toVendor(), nil
}

func (r *Repository) UpdateVendor(ctx context.Context, id int64, fields contractx.VendorFields) (contractx.Vendor, error) {
	row, err := newVendorRow(fields)
	if err != nil {
		return contractx.Vendor{}, err
	}
	row.ID = id

	res, err := r.db.NewUpdate().
		Model(&row).
		Column("name", "address", "phone", "email").
		WherePK().
		Exec(ctx)
	if err != nil {
		return contractx.Vendor{}, fmt.Errorf("update vendor: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return contractx.Vendor{}, err
	}
	return row.toVendor(), nil
}

func (r *Repository) DeleteVendor(ctx context.Context, id int64) error {
	if _, err := r.db.NewDelete().Model((*vendorRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	return nil
}

/* --------------------------- Purchase orders --------------------------- */

// ListOrders returns orders newest first (id descending).
func (r *Repository) ListOrders(ctx context.Context) ([]contractx.PurchaseOrder, error) {
	var rows []orderRow
	if err := r.db.NewSelect().Model(&rows).Order("id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select purchase orders: %w", err)
	}
	out := make([]contractx.PurchaseOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toOrder())
	}
	return out, nil
}

func (r *Repository) CreateOrder(ctx context.Context, fields contractx.OrderFields) (contractx.PurchaseOrder, error) {
	status, err := contractx.ParseStatus(string(fields.Status))
	if err != nil {
		return contractx.PurchaseOrder{}, err
	}
	if err := validateOrder(fields); err != nil {
		return contractx.PurchaseOrder{}, err
	}

	row := orderRow{
		PONumber: fields.PONumber,
		Amount:   fields.Amount,
		Vendor:   strings.TrimSpace(fields.Vendor),
		Status:   string(status),
	}
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return contractx.PurchaseOrder{}, fmt.Errorf("insert purchase order: %w", err)
	}
	return row.toOrder(), nil
}

// ReviseOrder replaces po, amount, vendor and status together. An empty status
// keeps the stored one.
func (r *Repository) ReviseOrder(ctx context.Context, id int64, fields contractx.OrderFields) (contractx.PurchaseOrder, error) {
	if err := validateOrder(fields); err != nil {
		return contractx.PurchaseOrder{}, err
	}

	var out contractx.PurchaseOrder
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row orderRow
		if err := tx.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contractx.ErrNotFound
			}
			return fmt.Errorf("select purchase order: %w", err)
		}

		if strings.TrimSpace(string(fields.Status)) != "" {
			status, err := contractx.ParseStatus(string(fields.Status))
			if err != nil {
				return err
			}
			row.Status = string(status)
		}
		row.PONumber = fields.PONumber
		row.Amount = fields.Amount
		row.Vendor = strings.TrimSpace(fields.Vendor)

		if _, err := tx.NewUpdate().
			Model(&row).
			Column("po", "amount", "vendor", "status").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update purchase order: %w", err)
		}
		out = row.toOrder()
		return nil
	})
	return out, err
}

// ArchiveOrder forces Archived from any status.
func (r *Repository) ArchiveOrder(ctx context.Context, id int64) error {
	_, err := r.db.NewUpdate().
		Model((*orderRow)(nil)).
		Set("status = ?", string(contractx.StatusArchived)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive purchase order: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := r.db.NewDelete().Model((*orderRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	return nil
}

/* ------------------------------- Helpers ------------------------------- */

func newVendorRow(fields contractx.VendorFields) (vendorRow, error) {
	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return vendorRow{}, fmt.Errorf("%w: vendor name is required", contractx.ErrValidation)
	}
	return vendorRow{
		Name:    name,
		Address: strings.TrimSpace(fields.Address),
		Phone:   strings.TrimSpace(fields.Phone),
		Email:   strings.TrimSpace(fields.Email),
	}, nil
}

func validateOrder(fields contractx.OrderFields) error {
	if fields.Amount < 0 {
		return fmt.Errorf("%w: amount must be >= 0", contractx.ErrValidation)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return contractx.ErrNotFound
	}
	return nil
}

func (row vendorRow) toVendor() contractx.Vendor {
	return contractx.Vendor{
		ID:      row.ID,
		Name:    row.Name,
		Address: row.Address,
		Phone:   row.Phone,
		Email:   row.Email,
	}
}

func (row orderRow) toOrder() contractx.PurchaseOrder {
	return contractx.PurchaseOrder{
		ID:       row.ID,
		PONumber: row.PONumber,
		Amount:   row.Amount,
		Vendor:   row.Vendor,
		Status:   contractx.Status(row.Status).OrDefault(),
	}
}

// queryLogger logs every statement at debug level and failures at warn.
type queryLogger struct{}

func (queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		log.Warn().Err(event.Err).Str("query", event.Query).Msg("query failed")
		return
	}
	log.Debug().
		Str("operation", event.Operation()).
		Dur("elapsed", time.Since(event.StartTime)).
		Msg("query executed")
}
