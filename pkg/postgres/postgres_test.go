package postgres

import (
	"testing"

	"doc-splitter/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "splitter", SSLMode: "require"}

	dsn := DSN(cfg)
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=splitter sslmode=require", dsn)

	parsed, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db", parsed.ConnConfig.Host)
	assert.Equal(t, uint16(5433), parsed.ConnConfig.Port)
	assert.Equal(t, "splitter", parsed.ConnConfig.Database)
}
