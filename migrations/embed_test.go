package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			ups[strings.TrimSuffix(f, ".up.sql")] = true
		case strings.HasSuffix(f, ".down.sql"):
			downs[strings.TrimSuffix(f, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file name %s", f)
		}
	}
	require.Equal(t, ups, downs)
}

func TestSchemaDeclaresSlotUniqueness(t *testing.T) {
	body, err := fs.ReadFile(FS, "000001_booking_schema.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "uq_appointments_professional_start")
	require.Contains(t, string(body), "WHERE status <> 'cancelled'")
}
