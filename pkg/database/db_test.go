package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeDSN(t *testing.T) {
	base := "postgres://u:p@db:5432/club?sslmode=disable"
	assert.Equal(t, base, runtimeDSN(Config{DSN: base}))

	got := runtimeDSN(Config{DSN: base, TimeZone: "Europe/Madrid", ClientEncoding: "UTF8"})
	assert.Equal(t, "postgres://u:p@db:5432/club?client_encoding=UTF8&sslmode=disable&timezone=Europe%2FMadrid", got)

	kv := runtimeDSN(Config{DSN: "host=db dbname=club", TimeZone: "UTC"})
	assert.Equal(t, "host=db dbname=club timezone='UTC'", kv)
}

func TestQuoteValue(t *testing.T) {
	assert.Equal(t, `'O\'Brien'`, quoteValue("O'Brien"))
	assert.Equal(t, `'a\\b'`, quoteValue(`a\b`))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("DATABASE_MAX_CONNS", "nope")
	t.Setenv("DATABASE_TIMEZONE", "UTC")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://x", cfg.DSN)
	assert.Equal(t, 10, cfg.MaxConns)
	assert.Equal(t, "UTC", cfg.TimeZone)
}
