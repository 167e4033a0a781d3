package history

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestStoreRecordsAndRetrievesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.RecordConnected("ABCDE"); err != nil {
		t.Fatalf("RecordConnected: %v", err)
	}
	if err := store.RecordData("ABCDE", "TEMP_SETPOINT", 21.5, "C"); err != nil {
		t.Fatalf("RecordData: %v", err)
	}
	if err := store.RecordError("ABCDE", errors.New("read timeout")); err != nil {
		t.Fatalf("RecordError: %v", err)
	}
	if err := store.RecordDisconnected("ABCDE", errors.New("socket closed")); err != nil {
		t.Fatalf("RecordDisconnected: %v", err)
	}

	events, err := store.Recent("ABCDE", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}

	// Newest first: disconnected was recorded last.
	if events[0].Kind != "disconnected" {
		t.Errorf("events[0].Kind = %q, want %q", events[0].Kind, "disconnected")
	}
	if events[0].Detail != "socket closed" {
		t.Errorf("events[0].Detail = %q, want %q", events[0].Detail, "socket closed")
	}
}

func TestStoreRecentIsolatesByDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.RecordConnected("A"); err != nil {
		t.Fatalf("RecordConnected A: %v", err)
	}
	if err := store.RecordConnected("B"); err != nil {
		t.Fatalf("RecordConnected B: %v", err)
	}

	events, err := store.Recent("A", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 5; i++ {
		if err := store.RecordData("A", "FAN_SPEED", float64(i), ""); err != nil {
			t.Fatalf("RecordData: %v", err)
		}
	}

	events, err := store.Recent("A", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
}
