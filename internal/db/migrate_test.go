package db

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name=?
	`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", name, err)
	}
	return exists
}

func TestMigrateUp(t *testing.T) {
	db := openTestDB(t)

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
	if dirty {
		t.Error("database should not be dirty after successful migration")
	}

	if !tableExists(t, db, "runs") {
		t.Error("runs table should exist after migration")
	}
	if !tableExists(t, db, "point_results") {
		t.Error("point_results table should exist after migration")
	}
}

func TestMigrateUp_Idempotency(t *testing.T) {
	db := openTestDB(t)

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("first MigrateUp failed: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}

	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2 after idempotent up, got %d", version)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after down migration, got %d", version)
	}
	if dirty {
		t.Error("database should not be dirty after successful down migration")
	}

	if tableExists(t, db, "point_results") {
		t.Error("point_results table should not exist after rolling back")
	}
	if !tableExists(t, db, "runs") {
		t.Error("runs table should survive rolling back the second migration")
	}
}

func TestMigrateVersion_Fresh(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on fresh database, got %d", version)
	}
	if dirty {
		t.Error("fresh database should not be dirty")
	}
}

func TestMigrateTo(t *testing.T) {
	db := openTestDB(t)

	if err := db.MigrateTo(1); err != nil {
		t.Fatalf("MigrateTo(1) failed: %v", err)
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}
	if tableExists(t, db, "point_results") {
		t.Error("point_results table should not exist at version 1")
	}

	if err := db.MigrateTo(2); err != nil {
		t.Fatalf("MigrateTo(2) failed: %v", err)
	}
	version, _, err = db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestMigrateForce(t *testing.T) {
	db := openTestDB(t)

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateForce(1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected forced version 1, got %d", version)
	}
	if dirty {
		t.Error("forced database should not be dirty")
	}
}
