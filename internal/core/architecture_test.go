package core

import (
	"testing"

	"inventario/testutil"
)

func TestOnlyCoreImportsTableStores(t *testing.T) {
	testutil.AssertOnlyImportedBy(t, "inventario/...", "inventario/internal/infra/persistence", "inventario/internal/core")
}
