package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"daoListener/internal/model"
)

func TestAuditLogAppendsOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "events.jsonl")
	audit := NewAuditLog(path)

	block := model.RawBlock{Height: 1, Hash: "0x01", ParentHash: "0x00"}
	events := []model.DomainEvent{
		model.DaoCreated{
			EventID: model.EventID{BlockHeight: 1, ExtrinsicIndex: 0, EventIndex: 0},
			DaoID:   "DAO1",
			Owner:   "alice",
		},
		model.Unknown{
			EventID: model.EventID{BlockHeight: 1, ExtrinsicIndex: 0, EventIndex: 1},
			RawTag:  "Scheduler.Dispatched",
		},
	}

	if err := audit.RecordBlock(block, events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := audit.RecordBlock(block, events[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer file.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("parse line: %v", err)
		}
		lines = append(lines, line)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0]["kind"] != "dao_created" {
		t.Fatalf("first line kind mismatch: %v", lines[0]["kind"])
	}
	if lines[1]["kind"] != "unknown" {
		t.Fatalf("second line kind mismatch: %v", lines[1]["kind"])
	}
	if lines[0]["block_hash"] != "0x01" {
		t.Fatalf("block hash mismatch: %v", lines[0]["block_hash"])
	}
}

func TestAuditLogNoEventsWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	audit := NewAuditLog(path)

	if err := audit.RecordBlock(model.RawBlock{Height: 1, Hash: "0x01"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file, got stat err %v", err)
	}
}
