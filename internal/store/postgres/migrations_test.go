package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	t.Run("sorted by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/10_later.sql":  {Data: []byte("SELECT 10")},
			"m/2_second.sql":  {Data: []byte("SELECT 2")},
			"m/1_initial.sql": {Data: []byte("SELECT 1")},
			"m/README.md":     {Data: []byte("ignored")},
		}

		got, err := loadMigrations(fsys, "m")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, []int{1, 2, 10}, []int{got[0].version, got[1].version, got[2].version})
		require.Equal(t, "SELECT 10", got[2].sql)
	})

	t.Run("rejects bad names", func(t *testing.T) {
		for _, name := range []string{"m/initial.sql", "m/x_initial.sql", "m/0_zero.sql"} {
			_, err := loadMigrations(fstest.MapFS{name: {Data: []byte("SELECT 1")}}, "m")
			require.Error(t, err, name)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/1_a.sql": {Data: []byte("SELECT 1")},
			"m/1_b.sql": {Data: []byte("SELECT 1")},
		}
		_, err := loadMigrations(fsys, "m")
		require.ErrorContains(t, err, "share version 1")
	})

	t.Run("embedded schema", func(t *testing.T) {
		got, err := loadMigrations(migrationsFS, "migrations")
		require.NoError(t, err)
		require.NotEmpty(t, got)
		require.Equal(t, 1, got[0].version)
	})
}
