package database

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pcos-screening-api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, model := range []any{&models.SimpleScreening{}, &models.ClinicalScreening{}, &models.ImageScreening{}} {
		require.True(t, db.Migrator().HasTable(model))
	}
	require.True(t, db.Migrator().HasColumn(&models.ClinicalScreening{}, "fsh_lh_ratio"))
	require.False(t, db.Migrator().HasColumn(&models.SimpleScreening{}, "fsh_lh_ratio"))
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("mongo", "mongodb://localhost")
	require.ErrorContains(t, err, "unsupported database driver")

	_, err = Connect("postgres", "")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis("redis://" + mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("")
	require.Error(t, err)
}
