package core

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"inventario/internal/blob"
	"inventario/pkg/domain"
)

// ErrBackupsDisabled is returned by backup operations when no blob store was configured.
var ErrBackupsDisabled = errors.New("backup store not configured")

// Service is the façade shells drive. It composes the stores over one
// TableStore and wraps every operation with tracing, metrics, logging and,
// for mutations, an audit entry.
type Service struct {
	tables    domain.TableStore
	config    *ConfigStore
	inventory *InventoryStore
	ledger    *SalesLedger
	sales     *SaleTransaction
	backups   *BackupService
	blobs     blob.Store
	rules     *domain.RulesEngine

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
}

// Option configures a Service.
type Option func(*Service)

// WithLogger routes operation logs to l. A nil logger is ignored.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder observes each operation's outcome and latency.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer opens a span per operation.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder receives one entry per mutating operation.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithClock overrides the time source for sale dates, backup keys and audit timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRulesEngine replaces the default sale rules.
func WithRulesEngine(e *domain.RulesEngine) Option {
	return func(s *Service) {
		if e != nil {
			s.rules = e
		}
	}
}

// WithBlobStore enables table backups into b.
func WithBlobStore(b blob.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.blobs = b
		}
	}
}

// NewService composes the stores over tables.
func NewService(tables domain.TableStore, opts ...Option) *Service {
	s := &Service{
		tables:  tables,
		rules:   NewDefaultRulesEngine(),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		clock:   ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config = NewConfigStore(tables)
	s.inventory = NewInventoryStore(tables, s.config)
	s.ledger = NewSalesLedger(tables)
	s.sales = NewSaleTransaction(tables, s.inventory, s.ledger, s.rules, s.clock)
	if s.blobs != nil {
		s.backups = NewBackupService(tables, s.blobs, s.clock)
	}
	return s
}

// Tables returns the underlying table backend.
func (s *Service) Tables() domain.TableStore { return s.tables }

// ConfigStore returns the config table store.
func (s *Service) ConfigStore() *ConfigStore { return s.config }

// Inventory returns the product table store.
func (s *Service) Inventory() *InventoryStore { return s.inventory }

// Ledger returns the sales ledger.
func (s *Service) Ledger() *SalesLedger { return s.ledger }

// Close releases the table backend when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.tables.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// operation names the unit reported to observability hooks. Reads leave
// action empty and are not audited.
type operation struct {
	name   string
	entity domain.EntityType
	action domain.Action
}

func (s *Service) run(ctx context.Context, op operation, entityID func() string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op.name)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op.name, err == nil, duration)

	var id string
	if entityID != nil {
		id = entityID()
	}
	kv := []any{"operation", op.name, "duration", duration}
	if id != "" {
		kv = append(kv, "entity_id", id)
	}
	if err != nil {
		s.logger.Error(ctx, "operation failed", append(kv, "error", err.Error())...)
	} else {
		s.logger.Debug(ctx, "operation completed", kv...)
	}

	if op.action != "" {
		entry := AuditEntry{
			Operation: op.name,
			Entity:    op.entity,
			Action:    op.action,
			EntityID:  id,
			Status:    AuditStatusSuccess,
			Duration:  duration,
			Timestamp: s.clock.Now().UTC(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	return err
}

func productID(id int64) func() string {
	return func() string { return strconv.FormatInt(id, 10) }
}

// Config returns every configuration parameter.
func (s *Service) Config(ctx context.Context) (map[string]decimal.Decimal, error) {
	var out map[string]decimal.Decimal
	err := s.run(ctx, operation{name: "load_config", entity: domain.EntityConfig}, nil, func(ctx context.Context) error {
		var err error
		out, err = s.config.Load(ctx)
		return err
	})
	return out, err
}

// GetConfig returns one parameter.
func (s *Service) GetConfig(ctx context.Context, parameter string) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.run(ctx, operation{name: "get_config", entity: domain.EntityConfig}, func() string { return parameter }, func(ctx context.Context) error {
		var err error
		out, err = s.config.Get(ctx, parameter)
		return err
	})
	return out, err
}

// SetConfig stores one parameter.
func (s *Service) SetConfig(ctx context.Context, parameter string, value decimal.Decimal) error {
	op := operation{name: "set_config", entity: domain.EntityConfig, action: domain.ActionUpdate}
	return s.run(ctx, op, func() string { return parameter }, func(ctx context.Context) error {
		return s.config.Set(ctx, parameter, value)
	})
}

// SetConfigFromInput parses raw and stores it under parameter.
func (s *Service) SetConfigFromInput(ctx context.Context, parameter, raw string) (decimal.Decimal, error) {
	var out decimal.Decimal
	op := operation{name: "set_config", entity: domain.EntityConfig, action: domain.ActionUpdate}
	err := s.run(ctx, op, func() string { return parameter }, func(ctx context.Context) error {
		var err error
		out, err = s.config.SetFromInput(ctx, parameter, raw)
		return err
	})
	return out, err
}

// ListProducts returns every product.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := s.run(ctx, operation{name: "list_products", entity: domain.EntityProduct}, nil, func(ctx context.Context) error {
		var err error
		out, err = s.inventory.Load(ctx)
		return err
	})
	return out, err
}

// FilterProducts returns products whose name contains query.
func (s *Service) FilterProducts(ctx context.Context, query string) ([]domain.Product, error) {
	var out []domain.Product
	err := s.run(ctx, operation{name: "filter_products", entity: domain.EntityProduct}, nil, func(ctx context.Context) error {
		var err error
		out, err = s.inventory.FilterByName(ctx, query)
		return err
	})
	return out, err
}

// FindProduct returns product id.
func (s *Service) FindProduct(ctx context.Context, id int64) (domain.Product, error) {
	var out domain.Product
	err := s.run(ctx, operation{name: "find_product", entity: domain.EntityProduct}, productID(id), func(ctx context.Context) error {
		var err error
		out, err = s.inventory.FindByID(ctx, id)
		return err
	})
	return out, err
}

// AddProduct appends p to the inventory.
func (s *Service) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	op := operation{name: "add_product", entity: domain.EntityProduct, action: domain.ActionCreate}
	err := s.run(ctx, op, productID(p.ID), func(ctx context.Context) error {
		var err error
		out, err = s.inventory.Add(ctx, p)
		return err
	})
	return out, err
}

// AddProductForm parses form, defaulting the markup to the configured
// percentage, and adds the result.
func (s *Service) AddProductForm(ctx context.Context, form ProductForm) (domain.Product, error) {
	var out domain.Product
	op := operation{name: "add_product", entity: domain.EntityProduct, action: domain.ActionCreate}
	err := s.run(ctx, op, func() string { return form.ID }, func(ctx context.Context) error {
		def, err := s.config.Get(ctx, domain.ParamIncrementPercentage)
		if err != nil {
			return err
		}
		p, err := form.Parse(def)
		if err != nil {
			return err
		}
		out, err = s.inventory.Add(ctx, p)
		return err
	})
	return out, err
}

// EditProduct replaces the mutable fields of product id.
func (s *Service) EditProduct(ctx context.Context, id int64, edit domain.ProductEdit) (domain.Product, error) {
	var out domain.Product
	op := operation{name: "edit_product", entity: domain.EntityProduct, action: domain.ActionUpdate}
	err := s.run(ctx, op, productID(id), func(ctx context.Context) error {
		var err error
		out, err = s.inventory.Edit(ctx, id, edit)
		return err
	})
	return out, err
}

// EditProductForm applies the non-empty fields of form to product id.
func (s *Service) EditProductForm(ctx context.Context, id int64, form ProductForm) (domain.Product, error) {
	var out domain.Product
	op := operation{name: "edit_product", entity: domain.EntityProduct, action: domain.ActionUpdate}
	err := s.run(ctx, op, productID(id), func(ctx context.Context) error {
		current, err := s.inventory.FindByID(ctx, id)
		if err != nil {
			return err
		}
		edit, err := form.ParseEdit(current)
		if err != nil {
			return err
		}
		out, err = s.inventory.Edit(ctx, id, edit)
		return err
	})
	return out, err
}

// ImportProducts adds unknown products and overwrites known ones.
func (s *Service) ImportProducts(ctx context.Context, products []domain.Product) (added, updated int, err error) {
	op := operation{name: "import_products", entity: domain.EntityProduct, action: domain.ActionUpdate}
	err = s.run(ctx, op, func() string { return strconv.Itoa(len(products)) }, func(ctx context.Context) error {
		var err error
		added, updated, err = s.inventory.Upsert(ctx, products)
		return err
	})
	return added, updated, err
}

// Sales returns the whole ledger.
func (s *Service) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	var out []domain.SaleRecord
	err := s.run(ctx, operation{name: "list_sales", entity: domain.EntitySale}, nil, func(ctx context.Context) error {
		var err error
		out, err = s.ledger.Load(ctx)
		return err
	})
	return out, err
}

// DailySales aggregates the ledger rows of date.
func (s *Service) DailySales(ctx context.Context, date domain.Date) (domain.DailySales, error) {
	var out domain.DailySales
	err := s.run(ctx, operation{name: "daily_sales", entity: domain.EntitySale}, date.String, func(ctx context.Context) error {
		var err error
		out, err = s.ledger.TotalsForDate(ctx, date)
		return err
	})
	return out, err
}

// Today returns the current day according to the service clock.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.clock.Now())
}

// Sell commits cart.
func (s *Service) Sell(ctx context.Context, cart domain.Cart) (domain.Receipt, error) {
	var out domain.Receipt
	op := operation{name: "sell", entity: domain.EntitySale, action: domain.ActionCreate}
	err := s.run(ctx, op, func() string { return out.ID }, func(ctx context.Context) error {
		var err error
		out, err = s.sales.Commit(ctx, cart)
		return err
	})
	if err == nil {
		if obs, ok := s.metrics.(SaleObserver); ok {
			obs.ObserveSale(ctx, out)
		}
		for _, w := range out.Warnings {
			s.logger.Warn(ctx, w.Message, "rule", w.Rule, "entity_id", w.EntityID)
		}
	}
	return out, err
}

// Backup stores a CSV snapshot of table in the blob store.
func (s *Service) Backup(ctx context.Context, table string) (blob.Info, error) {
	var out blob.Info
	op := operation{name: "backup_table", entity: domain.EntityTable, action: domain.ActionCreate}
	err := s.run(ctx, op, func() string { return table }, func(ctx context.Context) error {
		if s.backups == nil {
			return ErrBackupsDisabled
		}
		var err error
		out, err = s.backups.Backup(ctx, table)
		return err
	})
	return out, err
}

// ListBackups returns the stored snapshots of table.
func (s *Service) ListBackups(ctx context.Context, table string) ([]blob.Info, error) {
	var out []blob.Info
	err := s.run(ctx, operation{name: "list_backups", entity: domain.EntityTable}, func() string { return table }, func(ctx context.Context) error {
		if s.backups == nil {
			return ErrBackupsDisabled
		}
		var err error
		out, err = s.backups.List(ctx, table)
		return err
	})
	return out, err
}

// PruneBackups keeps the newest keep snapshots of table and deletes the rest.
func (s *Service) PruneBackups(ctx context.Context, table string, keep int) ([]string, error) {
	var out []string
	op := operation{name: "prune_backups", entity: domain.EntityTable, action: domain.ActionDelete}
	err := s.run(ctx, op, func() string { return table }, func(ctx context.Context) error {
		if s.backups == nil {
			return ErrBackupsDisabled
		}
		var err error
		out, err = s.backups.Prune(ctx, table, keep)
		return err
	})
	return out, err
}

// CopyTable writes table as CSV to w.
func (s *Service) CopyTable(ctx context.Context, table string, w io.Writer) error {
	return s.run(ctx, operation{name: "copy_table", entity: domain.EntityTable}, func() string { return table }, func(ctx context.Context) error {
		if s.backups != nil {
			return s.backups.CopyTo(ctx, table, w)
		}
		return NewBackupService(s.tables, nil, s.clock).CopyTo(ctx, table, w)
	})
}

// FetchBackup streams the snapshot stored under key to w.
func (s *Service) FetchBackup(ctx context.Context, key string, w io.Writer) error {
	return s.run(ctx, operation{name: "fetch_backup", entity: domain.EntityTable}, func() string { return key }, func(ctx context.Context) error {
		if s.backups == nil {
			return ErrBackupsDisabled
		}
		return s.backups.Fetch(ctx, key, w)
	})
}
