package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"daoListener/internal/model"
)

// AuditLog appends applied domain events to a JSONL file. It is an optional,
// additive sink: the projection contract does not depend on it.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

type auditLine struct {
	BlockHeight    uint64            `json:"block_height"`
	BlockHash      string            `json:"block_hash"`
	ExtrinsicIndex uint32            `json:"extrinsic_index"`
	EventIndex     uint32            `json:"event_index"`
	Kind           string            `json:"kind"`
	Event          model.DomainEvent `json:"event"`
}

// RecordBlock appends one line per event of an applied block.
func (a *AuditLog) RecordBlock(block model.RawBlock, events []model.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	dir := filepath.Dir(a.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, event := range events {
		id := event.ID()
		line, err := json.Marshal(auditLine{
			BlockHeight:    id.BlockHeight,
			BlockHash:      block.Hash,
			ExtrinsicIndex: id.ExtrinsicIndex,
			EventIndex:     id.EventIndex,
			Kind:           event.Kind(),
			Event:          event,
		})
		if err != nil {
			return fmt.Errorf("marshal audit line: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write audit line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush audit file: %w", err)
	}

	return nil
}
