package report

import (
	"testing"

	"inventario/testutil"
)

func TestReportDependsOnlyOnDomain(t *testing.T) {
	forbidden := testutil.PrefixForbidden("inventario/internal/", "github.com/aws/", "modernc.org/", "github.com/jackc/", "github.com/go-sql-driver/")
	testutil.AssertNoTransitiveImports(t, "inventario/internal/report", forbidden, "reports work on domain values, not storage drivers")
}
