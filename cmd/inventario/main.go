// Command inventario drives the inventory and point-of-sale operations from
// the command line: listing and editing products, selling carts, daily sales
// reports, configuration, backups and spreadsheet exchange.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"inventario/internal/blob"
	"inventario/internal/config"
	"inventario/internal/core"
	"inventario/internal/report"
	"inventario/pkg/domain"
	"inventario/pkg/logger"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitNotFound   = 3
)

var exitFunc = os.Exit

const usage = `uso: inventario [flags] <comando> [argumentos]

comandos:
  products [-q texto]                       lista el inventario
  add -id N -name S -price P -stock N [-increment P]
  edit -id N [-name S] [-price P] [-stock N] [-increment P]
  sell id=cantidad ...                      registra una venta
  daily [-date AAAA-MM-DD] [-pdf archivo]   ventas del día
  config get | config set <valor>           porcentaje de incremento
  backup -table T [-out archivo] [-keep N]  copia de seguridad de una tabla
  backups -table T                          lista las copias de una tabla
  export -table inventario|sales -out archivo.xlsx
  import -in archivo.xlsx
`

func main() {
	code := cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

// cli parses global flags, wires the service and runs one command.
func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inventario", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	envFile := fs.String("env", ".env", "archivo .env opcional")
	dataDir := fs.String("data", "", "directorio de datos (INVENTARIO_DATA_DIR)")
	storage := fs.String("storage", "", "driver de tablas: csv, memory, sqlite, postgres, mysql")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitValidation
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *storage != "" {
		cfg.StorageDriver = strings.ToLower(*storage)
		if err := cfg.Validate(); err != nil {
			_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
			return exitValidation
		}
	}

	logger.InitWithWriter(stderr, "inventario", cfg.Development())
	logger.SetLevel(cfg.LogLevel)

	a, err := newApp(ctx, cfg, rest[0], stdout)
	if err != nil {
		return finish(stderr, err)
	}
	defer a.close(ctx, stderr)

	return finish(stderr, a.dispatch(ctx, rest[0], rest[1:]))
}

func finish(stderr io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	return exitCode(err)
}

// exitCode maps error kinds to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrValidation), errors.Is(err, errUsage):
		return exitValidation
	case errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	default:
		return exitFailure
	}
}

var errUsage = errors.New("uso incorrecto")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

type app struct {
	cfg      config.Config
	svc      *core.Service
	registry *prometheus.Registry
	tp       *sdktrace.TracerProvider
	out      io.Writer
}

func newApp(ctx context.Context, cfg config.Config, command string, stdout io.Writer) (*app, error) {
	registry := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetrics(registry)
	if err != nil {
		return nil, err
	}
	tables, err := core.OpenTableStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider()
	opts := []core.Option{
		core.WithLogger(core.ZerologLogger{}),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewOTelTracer(tp)),
		core.WithAuditRecorder(core.LogAuditRecorder{}),
	}
	if command == "backup" || command == "backups" {
		blobs, err := openBackups(ctx, cfg)
		if err != nil {
			closeTables(tables)
			return nil, err
		}
		opts = append(opts, core.WithBlobStore(blobs))
	}
	return &app{
		cfg:      cfg,
		svc:      core.NewService(tables, opts...),
		registry: registry,
		tp:       tp,
		out:      stdout,
	}, nil
}

func openBackups(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if err := cfg.ValidateBackup(); err != nil {
		return nil, usageError("%v", err)
	}
	return blob.Open(ctx, cfg.Blob())
}

func closeTables(tables domain.TableStore) {
	if c, ok := tables.(io.Closer); ok {
		_ = c.Close()
	}
}

func (a *app) close(ctx context.Context, stderr io.Writer) {
	if a.cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
			_, _ = fmt.Fprintf(stderr, "warning: metrics textfile: %v\n", err)
		}
	}
	_ = a.tp.Shutdown(ctx)
	if err := a.svc.Close(); err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: close storage: %v\n", err)
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "products":
		return a.products(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "sell":
		return a.sell(ctx, args)
	case "daily":
		return a.daily(ctx, args)
	case "config":
		return a.configCmd(ctx, args)
	case "backup":
		return a.backup(ctx, args)
	case "backups":
		return a.backups(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "import":
		return a.importXLSX(ctx, args)
	default:
		return usageError("comando desconocido %q", command)
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

func (a *app) printProducts(products []domain.Product) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNOMBRE\tPRECIO\tSTOCK\tINCREMENTO\tPRECIO VENTA")
	for _, p := range products {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s%%\t%s\n",
			p.ID, p.Name, p.WholesalePrice.StringFixed(2), p.Stock, p.IncrementPercent.String(), p.SalePrice.StringFixed(2))
	}
	_ = tw.Flush()
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := newFlags("products")
	query := fs.String("q", "", "filtro por nombre")
	if err := parse(fs, args); err != nil {
		return err
	}
	products, err := a.svc.FilterProducts(ctx, *query)
	if err != nil {
		return err
	}
	a.printProducts(products)
	return nil
}

func productFormFlags(fs *flag.FlagSet) *core.ProductForm {
	var f core.ProductForm
	fs.StringVar(&f.ID, "id", "", "id del producto")
	fs.StringVar(&f.Name, "name", "", "nombre")
	fs.StringVar(&f.Price, "price", "", "precio mayorista")
	fs.StringVar(&f.Stock, "stock", "", "unidades en stock")
	fs.StringVar(&f.Increment, "increment", "", "porcentaje de incremento")
	return &f
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlags("add")
	form := productFormFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := a.svc.AddProductForm(ctx, *form)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Producto agregado: %d %s, precio de venta $%s\n", p.ID, p.Name, p.SalePrice.StringFixed(2))
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := newFlags("edit")
	form := productFormFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := core.ParseProductID(form.ID)
	if err != nil {
		return err
	}
	p, err := a.svc.EditProductForm(ctx, id, *form)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Producto actualizado: %d %s, precio de venta $%s\n", p.ID, p.Name, p.SalePrice.StringFixed(2))
	return nil
}

// parseCart reads "id=cantidad" arguments. Repeated ids keep the first quantity.
func parseCart(args []string) (domain.Cart, error) {
	var cart domain.Cart
	for _, arg := range args {
		rawID, rawQty, ok := strings.Cut(arg, "=")
		if !ok {
			return domain.Cart{}, usageError("se esperaba id=cantidad, se recibió %q", arg)
		}
		id, err := core.ParseProductID(rawID)
		if err != nil {
			return domain.Cart{}, err
		}
		qty, err := core.ParseQuantity(rawQty)
		if err != nil {
			return domain.Cart{}, err
		}
		cart.Add(id, qty)
	}
	return cart, nil
}

func (a *app) sell(ctx context.Context, args []string) error {
	cart, err := parseCart(args)
	if err != nil {
		return err
	}
	receipt, err := a.svc.Sell(ctx, cart)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, receipt.Details())
	for _, w := range receipt.Warnings {
		_, _ = fmt.Fprintf(a.out, "Aviso: %s\n", w.Message)
	}
	return nil
}

func (a *app) daily(ctx context.Context, args []string) error {
	fs := newFlags("daily")
	rawDate := fs.String("date", "", "día AAAA-MM-DD (hoy por defecto)")
	pdfPath := fs.String("pdf", "", "escribe el reporte en PDF")
	if err := parse(fs, args); err != nil {
		return err
	}
	date := a.svc.Today()
	if *rawDate != "" {
		d, err := domain.ParseDate(*rawDate)
		if err != nil {
			return domain.ValidationError{Field: "fecha", Value: *rawDate, Reason: "expected YYYY-MM-DD"}
		}
		date = d
	}
	day, err := a.svc.DailySales(ctx, date)
	if err != nil {
		return err
	}
	if day.Empty() {
		_, _ = fmt.Fprintf(a.out, "Sin ventas el %s\n", date)
	} else {
		for _, line := range day.Lines() {
			_, _ = fmt.Fprintln(a.out, line)
		}
		_, _ = fmt.Fprintf(a.out, "\nTotal del día: $%s\n", day.Total.StringFixed(2))
	}
	if *pdfPath == "" {
		return nil
	}
	return writeFile(*pdfPath, func(w io.Writer) error { return report.DailySalesPDF(w, day) })
}

func (a *app) configCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("config get | config set <valor>")
	}
	switch args[0] {
	case "get":
		v, err := a.svc.GetConfig(ctx, domain.ParamIncrementPercentage)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.out, "%s = %s\n", domain.ParamIncrementPercentage, v)
		return nil
	case "set":
		if len(args) != 2 {
			return usageError("config set <valor>")
		}
		v, err := a.svc.SetConfigFromInput(ctx, domain.ParamIncrementPercentage, args[1])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.out, "Configuración guardada: %s = %s\n", domain.ParamIncrementPercentage, v)
		return nil
	default:
		return usageError("subcomando de config desconocido %q", args[0])
	}
}

func (a *app) backup(ctx context.Context, args []string) error {
	fs := newFlags("backup")
	table := fs.String("table", "", "tabla: inventario, sales o config")
	out := fs.String("out", "", "escribe una copia en este archivo en lugar del almacén de copias")
	keep := fs.Int("keep", 0, "conserva solo las N copias más recientes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *table == "" {
		return usageError("backup requiere -table")
	}
	if *out != "" && *keep != 0 {
		return usageError("-keep no se combina con -out")
	}
	if *out != "" {
		if err := writeFile(*out, func(w io.Writer) error { return a.svc.CopyTable(ctx, *table, w) }); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.out, "Copia guardada en %s\n", *out)
		return nil
	}
	info, err := a.svc.Backup(ctx, *table)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Copia de seguridad creada: %s (%d bytes)\n", info.Key, info.Size)
	if *keep == 0 {
		return nil
	}
	deleted, err := a.svc.PruneBackups(ctx, *table, *keep)
	if err != nil {
		return err
	}
	for _, key := range deleted {
		_, _ = fmt.Fprintf(a.out, "Copia eliminada: %s\n", key)
	}
	return nil
}

func (a *app) backups(ctx context.Context, args []string) error {
	fs := newFlags("backups")
	table := fs.String("table", "", "tabla")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *table == "" {
		return usageError("backups requiere -table")
	}
	infos, err := a.svc.ListBackups(ctx, *table)
	if err != nil {
		return err
	}
	for _, info := range infos {
		_, _ = fmt.Fprintf(a.out, "%s\t%d\n", info.Key, info.Size)
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := newFlags("export")
	table := fs.String("table", domain.TableInventory, "tabla: inventario o sales")
	out := fs.String("out", "", "archivo .xlsx de salida")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *out == "" {
		return usageError("export requiere -out")
	}
	switch *table {
	case domain.TableInventory:
		products, err := a.svc.ListProducts(ctx)
		if err != nil {
			return err
		}
		return writeFile(*out, func(w io.Writer) error { return report.ExportInventoryXLSX(w, products) })
	case domain.TableSales:
		records, err := a.svc.Sales(ctx)
		if err != nil {
			return err
		}
		return writeFile(*out, func(w io.Writer) error { return report.ExportSalesXLSX(w, records) })
	default:
		return usageError("export no admite la tabla %q", *table)
	}
}

func (a *app) importXLSX(ctx context.Context, args []string) error {
	fs := newFlags("import")
	in := fs.String("in", "", "archivo .xlsx de entrada")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *in == "" {
		return usageError("import requiere -in")
	}
	def, err := a.svc.GetConfig(ctx, domain.ParamIncrementPercentage)
	if err != nil {
		return err
	}
	f, err := os.Open(*in)
	if err != nil {
		return &domain.IOError{Op: "open", Path: *in, Err: err}
	}
	defer func() { _ = f.Close() }()
	products, err := report.ImportInventoryXLSX(f, func(row report.InventoryRow) (domain.Product, error) {
		return core.ProductForm(row).Parse(def)
	})
	if err != nil {
		return err
	}
	added, updated, err := a.svc.ImportProducts(ctx, products)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Importación completa: %d agregados, %d actualizados\n", added, updated)
	return nil
}

// writeFile renders fn into a temp file next to path and renames it into
// place only when fn succeeds, so a failed command never clobbers path.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return &domain.IOError{Op: "create", Path: path, Err: err}
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()
	if err := fn(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return &domain.IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &domain.IOError{Op: "replace", Path: path, Err: err}
	}
	return nil
}
