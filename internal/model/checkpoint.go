package model

import "time"

// Checkpoint records the last block whose events were durably applied.
// Height only advances together with a committed block application.
type Checkpoint struct {
	Height    uint64    `json:"height"`
	BlockHash string    `json:"block_hash"`
	UpdatedAt time.Time `json:"updated_at"`
}
