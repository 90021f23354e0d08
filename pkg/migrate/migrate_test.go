package migrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestUpCreatesLocalStateTable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "state.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	ctx := context.Background()
	require.NoError(t, Up(ctx, sqlDB, "sqlite"))
	// re-running is a no-op
	require.NoError(t, Up(ctx, sqlDB, "sqlite"))

	require.True(t, conn.Migrator().HasTable("local_state"))

	version, err := Version(sqlDB, "sqlite")
	require.NoError(t, err)
	require.Equal(t, int64(20260101000000), version)
}

func TestDialect(t *testing.T) {
	_, err := Dialect("mysql")
	require.Error(t, err)

	d, err := Dialect("postgres")
	require.NoError(t, err)
	require.Equal(t, "postgres", string(d))
}
