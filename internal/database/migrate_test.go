package database

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsHaveUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, MigrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries {
		body, err := fs.ReadFile(migrationsFS, MigrationsDir+"/"+e.Name())
		require.NoError(t, err)
		text := string(body)
		assert.Contains(t, text, "-- +goose Up", e.Name())
		assert.Contains(t, text, "-- +goose Down", e.Name())
	}
}

func TestBookingSchemaGuardsInventory(t *testing.T) {
	trains, err := fs.ReadFile(migrationsFS, MigrationsDir+"/00002_trains.sql")
	require.NoError(t, err)
	assert.Contains(t, string(trains), "UNIQUE KEY uq_trains_number")
	assert.Contains(t, string(trains), "CHECK (available_seats <= total_seats)")

	bookings, err := fs.ReadFile(migrationsFS, MigrationsDir+"/00003_bookings.sql")
	require.NoError(t, err)
	assert.Contains(t, string(bookings), "UNIQUE KEY uq_bookings_pnr (pnr)")
	assert.True(t, strings.Contains(string(bookings), "booking_time DATETIME(6)"))
}

func TestDSN(t *testing.T) {
	dsn := Options{User: "app", Pass: "s3cret", Host: "db", Port: "3306", Name: "trains"}.DSN()
	assert.True(t, strings.HasPrefix(dsn, "app:s3cret@tcp(db:3306)/trains?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	noPass := Options{User: "app", Host: "db", Port: "3306", Name: "trains", PingTimeout: time.Second}.DSN()
	assert.True(t, strings.HasPrefix(noPass, "app@tcp(db:3306)/trains?"), noPass)
}
