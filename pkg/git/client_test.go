package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	// Test 1: Acquire Lock
	unlock, err := client.Lock(context.Background())
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	// Verify lock file exists
	lockPath := filepath.Join(tmpDir, DefaultLockName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Error("Lock file not created")
	}

	// Test 2: Contention gives up when the context expires.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Lock(ctx); err == nil {
		t.Error("expected second Lock to time out while held")
	}

	unlock()

	// Verify lock file removed
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Lock file not removed after unlock")
	}
}

func TestClient_InitAndCommit(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	if err := client.Init(); err != nil {
		t.Fatalf("Failed to init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".git")); os.IsNotExist(err) {
		t.Error(".git directory not created")
	}
	if !client.IsRepo() {
		t.Error("expected IsRepo after Init")
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "board.yaml"), []byte("columns: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := client.Add("board.yaml"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := client.Commit("board: seed"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := client.Commit("board: again"); err != ErrNothingToCommit {
		t.Errorf("expected ErrNothingToCommit, got %v", err)
	}

	log, err := client.Log(5)
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(log) != 1 || log[0] != "board: seed" {
		t.Errorf("unexpected log: %v", log)
	}
}
