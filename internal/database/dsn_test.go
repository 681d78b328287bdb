package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User: "pagepass",
		Name: "pagepass",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildPostgresDSNRespectsOverride(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://u:p@host/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@host/db", dsn)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "pagepass",
		Password: "secret",
		Name:     "pagepass",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "pagepass:secret@tcp(127.0.0.1:3306)/pagepass?"), dsn)
	require.Contains(t, dsn, "parseTime=True")
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{User: "pagepass"})
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
