package db

import (
	"testing"

	"DHX/config"

	gosql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNRoundTrips(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db.local",
		DBPort:     "3307",
		DBUser:     "dj",
		DBPassword: "p@ss:word",
		DBName:     "dhx",
	}

	parsed, err := gosql.ParseDSN(DSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "dj", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "dhx", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	saved := GormDB
	GormDB = nil
	defer func() { GormDB = saved }()

	assert.Error(t, Migrate())
	assert.NoError(t, CloseGormDB())
}
