package blob

import (
	"testing"

	"inventario/testutil"
)

// TestOnlyBlobPackageImportsInfra ensures callers reach the blob drivers
// through blob.Open and the blob.Store interface.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	testutil.AssertOnlyImportedBy(t, "inventario/...", "inventario/internal/infra/blob", "inventario/internal/blob")
}
