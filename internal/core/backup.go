package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"inventario/internal/blob"
	"inventario/internal/infra/persistence/csvfile"
	"inventario/pkg/domain"
)

const backupPrefix = "backups/"

// BackupService copies tables, as CSV, into a blob store.
type BackupService struct {
	tables domain.TableStore
	blobs  blob.Store
	clock  Clock
}

// NewBackupService wires a backup service. A nil clock uses the system time.
func NewBackupService(tables domain.TableStore, blobs blob.Store, clock Clock) *BackupService {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	return &BackupService{tables: tables, blobs: blobs, clock: clock}
}

// BackupKey builds the object key for a snapshot of table taken at ts.
func BackupKey(table string, ts time.Time, id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s%s/%s-%s.csv", backupPrefix, table, ts.Format("20060102-150405"), id)
}

// Backup stores the current content of table and returns the new blob.
func (b *BackupService) Backup(ctx context.Context, table string) (blob.Info, error) {
	t, payload, err := b.encode(ctx, table)
	if err != nil {
		return blob.Info{}, err
	}
	key := BackupKey(table, b.clock.Now(), uuid.NewString())
	info, err := b.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"table": table, "rows": strconv.Itoa(len(t.Rows))},
	})
	if err != nil {
		return blob.Info{}, &domain.IOError{Op: "backup table", Path: key, Err: err}
	}
	return info, nil
}

// List returns the backups of table, oldest first.
func (b *BackupService) List(ctx context.Context, table string) ([]blob.Info, error) {
	infos, err := b.blobs.List(ctx, backupPrefix+table+"/")
	if err != nil {
		return nil, &domain.IOError{Op: "list backups", Path: table, Err: err}
	}
	return infos, nil
}

// Prune deletes the oldest backups of table so that at most keep remain and
// returns the deleted keys.
func (b *BackupService) Prune(ctx context.Context, table string, keep int) ([]string, error) {
	if keep < 1 {
		return nil, domain.ValidationError{Field: "keep", Value: strconv.Itoa(keep), Reason: "must be at least 1"}
	}
	infos, err := b.List(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(infos) <= keep {
		return nil, nil
	}
	var deleted []string
	for _, info := range infos[:len(infos)-keep] {
		if _, err := b.blobs.Delete(ctx, info.Key); err != nil {
			return deleted, &domain.IOError{Op: "delete backup", Path: info.Key, Err: err}
		}
		deleted = append(deleted, info.Key)
	}
	return deleted, nil
}

// CopyTo writes the current content of table to w as CSV.
func (b *BackupService) CopyTo(ctx context.Context, table string, w io.Writer) error {
	_, payload, err := b.encode(ctx, table)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return &domain.IOError{Op: "copy table", Path: table, Err: err}
	}
	return nil
}

// Fetch streams a stored backup to w.
func (b *BackupService) Fetch(ctx context.Context, key string, w io.Writer) error {
	_, rc, err := b.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.NotFoundError{Entity: domain.EntityTable, ID: key}
	}
	if err != nil {
		return &domain.IOError{Op: "fetch backup", Path: key, Err: err}
	}
	defer func() { _ = rc.Close() }()
	if _, err := io.Copy(w, rc); err != nil {
		return &domain.IOError{Op: "fetch backup", Path: key, Err: err}
	}
	return nil
}

func (b *BackupService) encode(ctx context.Context, table string) (domain.Table, []byte, error) {
	switch table {
	case domain.TableInventory, domain.TableSales, domain.TableConfig:
	default:
		return domain.Table{}, nil, domain.ValidationError{Field: "table", Value: table, Reason: "unknown table"}
	}
	t, err := b.tables.ReadTable(ctx, table)
	if errors.Is(err, domain.ErrTableNotFound) {
		return domain.Table{}, nil, domain.NotFoundError{Entity: domain.EntityTable, ID: table}
	}
	if err != nil {
		return domain.Table{}, nil, err
	}
	payload, err := csvfile.EncodeBytes(t)
	if err != nil {
		return domain.Table{}, nil, &domain.IOError{Op: "encode table", Path: table, Err: err}
	}
	return t, payload, nil
}
