package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"inventario/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	md := map[string]string{"table": "config"}
	info, err := s.Put(ctx, "backups/config/1.csv", strings.NewReader("parametro,valor\n"), core.PutOptions{ContentType: "text/csv", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["table"] = "mutated"
	if info.Metadata["table"] != "config" || info.ETag == "" {
		t.Fatalf("metadata must be cloned: %+v", info)
	}
	if _, err := s.Put(ctx, "backups/config/1.csv", strings.NewReader(""), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := s.Get(ctx, "backups/config/1.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "parametro,valor\n" {
		t.Fatalf("unexpected body %q", b)
	}
	list, _ := s.List(ctx, "backups/")
	if len(list) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, _ := s.Delete(ctx, "backups/config/1.csv"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if _, err := s.Head(ctx, "backups/config/1.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "", strings.NewReader(""), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver %s", s.Driver())
	}
}
