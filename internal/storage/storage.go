package storage

import (
	"context"
	"fmt"

	"daoListener/internal/model"
)

// Store is the durable side of the listener: the checkpoint and the
// projection tables derived from applied events.
type Store interface {
	// LoadCheckpoint returns the last applied checkpoint, or exists=false
	// when the listener has never applied a block.
	LoadCheckpoint(ctx context.Context) (cp model.Checkpoint, exists bool, err error)

	// ApplyBlock applies one block's event sequence and advances the
	// checkpoint inside a single atomic transaction. On any failure the
	// whole transaction rolls back and the checkpoint keeps its prior value.
	ApplyBlock(ctx context.Context, block model.RawBlock, events []model.DomainEvent) error
}

// ReorgOrGapError signals that the fetched block does not connect to the
// stored checkpoint: either the height is not checkpoint+1 or the parent
// hash does not match. It must never be resolved by skipping ahead.
type ReorgOrGapError struct {
	Height           uint64
	CheckpointHeight uint64
	WantParent       string
	GotParent        string
}

func (e *ReorgOrGapError) Error() string {
	if e.WantParent != e.GotParent {
		return fmt.Sprintf(
			"block %d parent hash %s does not match checkpoint hash %s",
			e.Height, e.GotParent, e.WantParent,
		)
	}
	return fmt.Sprintf("block %d does not follow checkpoint height %d", e.Height, e.CheckpointHeight)
}
