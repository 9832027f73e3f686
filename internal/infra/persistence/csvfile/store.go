// Package csvfile persists tables as flat CSV files, one file per table,
// under a data directory.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"inventario/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.TableStore = (*Store)(nil)

// DefaultRoot is used when no data directory is configured.
const DefaultRoot = "./data"

// Store implements domain.TableStore on a local directory. Writes are staged
// into temp files, fsynced, then renamed into place in argument order, so a
// crash leaves every table either fully old or fully new. When a rename fails,
// tables already replaced by the same call are put back from hard links of
// their previous version.
// Not safe for multiple processes sharing the directory.
type Store struct {
	mu   sync.Mutex
	root string
}

// New returns a CSV table store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, &domain.IOError{Op: "create data dir", Path: root, Err: err}
	}
	return &Store{root: root}, nil
}

// Driver implements domain.TableStore.
func (s *Store) Driver() string { return "csv" }

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// Path returns the file backing the named table.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, name+".csv")
}

// ReadTable implements domain.TableStore.
func (s *Store) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	if err := checkName(name); err != nil {
		return domain.Table{}, err
	}
	path := s.Path(name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Table{}, fmt.Errorf("%s: %w", name, domain.ErrTableNotFound)
	}
	if err != nil {
		return domain.Table{}, &domain.IOError{Op: "open table", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	t, err := Decode(name, f)
	if err != nil {
		return domain.Table{}, &domain.IOError{Op: "decode table", Path: path, Err: err}
	}
	return t, nil
}

// rename is replaced in tests to simulate a failed replace.
var rename = os.Rename

type staged struct {
	tmp   string
	final string
	prev  string
}

// WriteTables implements domain.TableStore.
func (s *Store) WriteTables(ctx context.Context, tables ...domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, t := range tables {
		if err := checkName(t.Name); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]staged, 0, len(tables))
	defer func() {
		for _, f := range files {
			if f.tmp != "" {
				_ = os.Remove(f.tmp)
			}
			if f.prev != "" {
				_ = os.Remove(f.prev)
			}
		}
	}()
	for _, t := range tables {
		tmp, err := s.stage(t)
		if err != nil {
			return err
		}
		files = append(files, staged{tmp: tmp, final: s.Path(t.Name)})
	}
	for i := range files {
		prev, err := s.keepPrevious(files[i].final)
		if err != nil {
			return err
		}
		files[i].prev = prev
	}
	for i, f := range files {
		if err := rename(f.tmp, f.final); err != nil {
			restore(files[:i])
			return &domain.IOError{Op: "replace table", Path: f.final, Err: err}
		}
		files[i].tmp = ""
	}
	syncDir(s.root)
	return nil
}

func (s *Store) stage(t domain.Table) (string, error) {
	tmp, err := os.CreateTemp(s.root, ".tmp-"+t.Name+"-*")
	if err != nil {
		return "", &domain.IOError{Op: "stage table", Path: s.root, Err: err}
	}
	name := tmp.Name()
	if err := Encode(tmp, t); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", &domain.IOError{Op: "encode table", Path: name, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", &domain.IOError{Op: "sync table", Path: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", &domain.IOError{Op: "close table", Path: name, Err: err}
	}
	return name, nil
}

// keepPrevious hard links the current file of a table so it can be restored.
// It returns "" when the table has no file yet.
func (s *Store) keepPrevious(final string) (string, error) {
	prev := filepath.Join(s.root, ".prev-"+filepath.Base(final))
	_ = os.Remove(prev)
	if err := os.Link(final, prev); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", &domain.IOError{Op: "keep previous table", Path: final, Err: err}
	}
	return prev, nil
}

// restore undoes the renames of done, newest first.
func restore(done []staged) {
	for i := len(done) - 1; i >= 0; i-- {
		f := done[i]
		if f.prev == "" {
			_ = os.Remove(f.final)
			continue
		}
		_ = os.Rename(f.prev, f.final)
	}
}

// syncDir flushes directory entries after renames. Not every platform
// supports fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return domain.ValidationError{Field: "table", Value: name, Reason: "invalid table name"}
	}
	return nil
}
