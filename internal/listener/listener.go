// Package listener runs the poll loop that keeps the DAO projection in sync
// with the chain's finalized blocks.
package listener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"daoListener/internal/chain"
	"daoListener/internal/clock"
	"daoListener/internal/extract"
	"daoListener/internal/model"
	"daoListener/internal/storage"
)

// ChainReader is the capability the listener needs from the chain node.
type ChainReader interface {
	Head(ctx context.Context) (model.Head, error)
	Block(ctx context.Context, height uint64) (model.RawBlock, error)
}

// Auditor records applied blocks to an additive audit sink.
type Auditor interface {
	RecordBlock(block model.RawBlock, events []model.DomainEvent) error
}

// Config holds runtime settings for the listener loop.
type Config struct {
	// PollInterval is the minimum wait between head checks, not a fixed
	// schedule: a catch-up longer than the interval is followed by an
	// immediate next head check.
	PollInterval time.Duration

	// MaxBlocksPerCycle caps the catch-up batch per iteration so long
	// catch-ups stay responsive to shutdown.
	MaxBlocksPerCycle uint64

	// GenesisHeight is the checkpoint base before the first block applies.
	GenesisHeight uint64

	// RetryDelays is the backoff schedule; the last value repeats forever.
	RetryDelays []time.Duration
}

// Listener drives blocks through fetch, extract and apply in strict height
// order. One instance per deployment: concurrent listeners would race on the
// checkpoint.
type Listener struct {
	cfg     Config
	chain   ChainReader
	store   storage.Store
	audit   Auditor
	logger  *zap.Logger
	backoff *Backoff
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, chainReader ChainReader, store storage.Store, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 6 * time.Second
	}
	if cfg.MaxBlocksPerCycle == 0 {
		cfg.MaxBlocksPerCycle = 100
	}
	return &Listener{
		cfg:     cfg,
		chain:   chainReader,
		store:   store,
		logger:  logger,
		backoff: NewBackoff(cfg.RetryDelays),
		sleep:   clock.SleepWithContext,
	}
}

// WithAuditor attaches an optional audit sink for applied blocks.
func (l *Listener) WithAuditor(audit Auditor) *Listener {
	l.audit = audit
	return l
}

// Run executes the poll loop until ctx is canceled. Per-block failures are
// contained and converted into backoff delays; only cancellation ends the
// loop. Returns nil on clean shutdown.
func (l *Listener) Run(ctx context.Context) error {
	height, err := l.startHeight(ctx)
	if err != nil {
		return err
	}
	l.logger.Info("listener start",
		zap.Uint64("checkpoint_height", height),
		zap.Duration("poll_interval", l.cfg.PollInterval),
		zap.Uint64("max_blocks_per_cycle", l.cfg.MaxBlocksPerCycle),
	)
	checkpointHeight.Set(float64(height))

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("listener stop", zap.Uint64("checkpoint_height", height))
			return nil
		}

		start := time.Now()
		next, err := l.cycle(ctx, height)
		height = next
		if err != nil {
			if ctxDone(ctx, err) {
				l.logger.Info("listener stop", zap.Uint64("checkpoint_height", height))
				return nil
			}
			delay := l.backoff.Next()
			failuresTotal.WithLabelValues(errorKind(err)).Inc()
			backoffSeconds.Observe(delay.Seconds())
			fields := []zap.Field{
				zap.String("kind", errorKind(err)),
				zap.Int("consecutive_failures", l.backoff.Failures()),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			}
			// Head failures have no block in flight to name.
			var blockErr *blockFailure
			if errors.As(err, &blockErr) {
				fields = append([]zap.Field{zap.Uint64("height", blockErr.height)}, fields...)
			}
			l.logger.Error("block cycle failed", fields...)
			if err := l.sleep(ctx, delay); err != nil {
				l.logger.Info("listener stop", zap.Uint64("checkpoint_height", height))
				return nil
			}
			continue
		}

		l.backoff.Reset()

		if wait := l.cfg.PollInterval - time.Since(start); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				l.logger.Info("listener stop", zap.Uint64("checkpoint_height", height))
				return nil
			}
		}
	}
}

// cycle runs one head check plus a capped catch-up. It returns the new
// checkpoint height, which advances only as far as blocks were applied.
func (l *Listener) cycle(ctx context.Context, height uint64) (uint64, error) {
	head, err := l.chain.Head(ctx)
	if err != nil {
		return height, err
	}

	if head.Height <= height {
		l.logger.Debug("waiting for new block", zap.Uint64("height", height), zap.Uint64("head", head.Height))
		return height, nil
	}

	applied := uint64(0)
	for height < head.Height && applied < l.cfg.MaxBlocksPerCycle {
		if err := ctx.Err(); err != nil {
			return height, err
		}
		if err := l.processBlock(ctx, height+1); err != nil {
			return height, &blockFailure{height: height + 1, err: err}
		}
		height++
		applied++
	}

	if height < head.Height {
		l.logger.Info("catch-up paused at batch cap",
			zap.Uint64("checkpoint_height", height),
			zap.Uint64("head", head.Height),
		)
	}
	return height, nil
}

// processBlock fetches, extracts and applies exactly one block.
func (l *Listener) processBlock(ctx context.Context, height uint64) error {
	start := time.Now()

	block, err := l.chain.Block(ctx, height)
	if err != nil {
		return err
	}

	events, err := extract.Extract(block)
	if err != nil {
		return err
	}

	if err := l.store.ApplyBlock(ctx, block, events); err != nil {
		return err
	}

	unknown := 0
	for _, event := range events {
		eventsAppliedTotal.WithLabelValues(event.Kind()).Inc()
		if _, ok := event.(model.Unknown); ok {
			unknown++
			unknownEventsTotal.Inc()
		}
	}
	blocksAppliedTotal.Inc()
	checkpointHeight.Set(float64(height))
	applyDuration.Observe(time.Since(start).Seconds())

	if l.audit != nil {
		if err := l.audit.RecordBlock(block, events); err != nil {
			// Audit is additive; never fail an applied block over it.
			l.logger.Warn("audit record failed", zap.Uint64("height", height), zap.Error(err))
		}
	}

	l.logger.Info("block applied",
		zap.Uint64("height", height),
		zap.String("hash", block.Hash),
		zap.Int("events", len(events)),
		zap.Int("unknown_events", unknown),
	)
	return nil
}

func (l *Listener) startHeight(ctx context.Context) (uint64, error) {
	cp, exists, err := l.store.LoadCheckpoint(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return l.cfg.GenesisHeight, nil
	}
	return cp.Height, nil
}

// blockFailure pins a cycle error to the block that was being processed.
type blockFailure struct {
	height uint64
	err    error
}

func (e *blockFailure) Error() string { return fmt.Sprintf("block %d: %v", e.height, e.err) }

func (e *blockFailure) Unwrap() error { return e.err }

func ctxDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// errorKind labels a failure for logs and metrics. All kinds retry the same
// way; the label only aids debugging.
func errorKind(err error) string {
	var connErr *chain.ConnectionError
	var notReadyErr *chain.NodeNotReadyError
	var notFoundErr *chain.NotFoundError
	var decodeErr *chain.DecodeError
	var reorgErr *storage.ReorgOrGapError
	var rpcErr interface{ ErrorCode() int }
	switch {
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &notReadyErr):
		return "node_not_ready"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &reorgErr):
		return "reorg_or_gap"
	case errors.As(err, &rpcErr):
		return "rpc"
	default:
		return "storage"
	}
}
