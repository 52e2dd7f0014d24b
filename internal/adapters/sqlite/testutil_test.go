// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/handover/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository
// tests. Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedEscalation inserts a test escalation and returns its ID.
func seedEscalation(t *testing.T, db *sql.DB, id, schoolID, state string) string {
	t.Helper()
	if id == "" {
		id = "ESC-001"
	}
	if schoolID == "" {
		schoolID = "school-1"
	}
	if state == "" {
		state = "PAUSED"
	}
	_, err := db.Exec(
		"INSERT INTO escalations (id, school_id, origin_agent, from_phone, state, reason) VALUES (?, ?, 'PA', '+15550001111', ?, 'Parent asked for a fee waiver')",
		id, schoolID, state,
	)
	if err != nil {
		t.Fatalf("failed to seed escalation: %v", err)
	}
	return id
}

// seedFocusLock inserts a focus lock for an authority.
func seedFocusLock(t *testing.T, db *sql.DB, authority, escalationID string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO focus_locks (authority_identity, locked_escalation_id, school_id) VALUES (?, ?, 'school-1')",
		authority, escalationID,
	)
	if err != nil {
		t.Fatalf("failed to seed focus lock: %v", err)
	}
}

// escalationState reads the current state of an escalation.
func escalationState(t *testing.T, db *sql.DB, id string) string {
	t.Helper()
	var state string
	if err := db.QueryRow("SELECT state FROM escalations WHERE id = ?", id).Scan(&state); err != nil {
		t.Fatalf("failed to read escalation state: %v", err)
	}
	return state
}
