package db

import (
	"path/filepath"
	"testing"
)

func TestPrintMigrateHelp(t *testing.T) {
	// Writes to stdout; just ensure it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("PrintMigrateHelp panicked: %v", r)
		}
	}()

	PrintMigrateHelp()
}

// RunMigrateCommand exits the process on failure, so only the success
// paths are exercised here.
func TestRunMigrateCommand_Up(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	RunMigrateCommand([]string{"up"}, dbPath)

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2 after migrate up, got %d", version)
	}
	if dirty {
		t.Error("database should not be dirty after migrate up")
	}
}

func TestRunMigrateCommand_Status(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	RunMigrateCommand([]string{"up"}, dbPath)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RunMigrateCommand status panicked: %v", r)
		}
	}()
	RunMigrateCommand([]string{"status"}, dbPath)
}

// Test OpenDB function used by migrate CLI
func TestOpenDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if err := db.DB.Ping(); err != nil {
		t.Errorf("Database ping failed: %v", err)
	}
}
