package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg/db"
)

// InitDB opens an empty db in a temp dir, closed at the end of the test, and returns the dir.
func InitDB(t *testing.T) string {
	t.Helper()

	dbDir := t.TempDir()
	require.NoError(t, db.Init(dbDir))
	t.Cleanup(func() {
		_ = db.Close()
	})
	return dbDir
}
