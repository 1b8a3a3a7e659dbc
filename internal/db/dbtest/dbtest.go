//go:build integration

// Package dbtest connects integration tests to a real postgres. Connection
// settings come from the usual DB_* variables with local defaults.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"events_api/internal/config"
	"events_api/internal/db"
)

// Open returns a connection with the schema in place and both record tables
// emptied. The connection is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Init(Config())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	if err := db.EnsureSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE organizations, events RESTART IDENTITY"); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}

	return conn
}

func Config() *config.DBConfig {
	return &config.DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Name:     getEnv("DB_NAME", "events_test"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
