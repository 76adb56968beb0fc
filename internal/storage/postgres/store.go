// Package postgres persists the checkpoint and the projection tables.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"daoListener/internal/model"
	"daoListener/internal/storage"
)

// checkpointName keys the singleton checkpoint row. A single listener
// instance owns it; redundant deployments need external mutual exclusion.
const checkpointName = "listener"

// Store applies blocks to the projection tables atomically with the
// checkpoint advance.
type Store struct {
	pool          *pgxpool.Pool
	genesisHeight uint64
}

func NewStore(ctx context.Context, dsn string, genesisHeight uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, genesisHeight: genesisHeight}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadCheckpoint returns the persisted checkpoint, if any.
func (s *Store) LoadCheckpoint(ctx context.Context) (model.Checkpoint, bool, error) {
	var cp model.Checkpoint
	row := s.pool.QueryRow(ctx,
		`SELECT height, block_hash, updated_at FROM checkpoint WHERE name = $1`, checkpointName)
	if err := row.Scan(&cp.Height, &cp.BlockHash, &cp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, err
	}
	return cp, true, nil
}

// ApplyBlock runs the per-block transaction: verify the block connects to the
// checkpoint, apply each event's effect gated by the applied_events ledger,
// advance the checkpoint, commit. Any failure rolls the whole block back.
func (s *Store) ApplyBlock(ctx context.Context, block model.RawBlock, events []model.DomainEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin block %d: %w", block.Height, err)
	}
	defer tx.Rollback(ctx)

	if err := s.verifyContinuity(ctx, tx, block); err != nil {
		return err
	}

	for _, event := range events {
		fresh, err := markApplied(ctx, tx, event)
		if err != nil {
			return fmt.Errorf("record event %v: %w", event.ID(), err)
		}
		if !fresh {
			continue
		}
		if err := applyEvent(ctx, tx, event); err != nil {
			return fmt.Errorf("apply %s %v: %w", event.Kind(), event.ID(), err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO checkpoint (name, height, block_hash, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET height = EXCLUDED.height, block_hash = EXCLUDED.block_hash, updated_at = now()
	`, checkpointName, int64(block.Height), block.Hash); err != nil {
		return fmt.Errorf("advance checkpoint to %d: %w", block.Height, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Height, err)
	}
	return nil
}

// verifyContinuity locks the checkpoint row and checks the block is exactly
// the next one. Any discontinuity is a ReorgOrGapError, never skipped over.
func (s *Store) verifyContinuity(ctx context.Context, tx pgx.Tx, block model.RawBlock) error {
	var height int64
	var hash string
	row := tx.QueryRow(ctx,
		`SELECT height, block_hash FROM checkpoint WHERE name = $1 FOR UPDATE`, checkpointName)
	err := row.Scan(&height, &hash)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// First run: the checkpoint base is the configured genesis height.
		if block.Height != s.genesisHeight+1 {
			return &storage.ReorgOrGapError{
				Height:           block.Height,
				CheckpointHeight: s.genesisHeight,
				WantParent:       "",
				GotParent:        block.ParentHash,
			}
		}
		return nil
	case err != nil:
		return fmt.Errorf("load checkpoint: %w", err)
	}

	if block.Height != uint64(height)+1 {
		return &storage.ReorgOrGapError{
			Height:           block.Height,
			CheckpointHeight: uint64(height),
			WantParent:       hash,
			GotParent:        hash,
		}
	}
	if block.ParentHash != hash {
		return &storage.ReorgOrGapError{
			Height:           block.Height,
			CheckpointHeight: uint64(height),
			WantParent:       hash,
			GotParent:        block.ParentHash,
		}
	}
	return nil
}

// markApplied inserts the event's natural identity into the applied_events
// ledger. A conflict means the event's effect is already in the projection,
// so the caller skips it instead of double-applying.
func markApplied(ctx context.Context, tx pgx.Tx, event model.DomainEvent) (bool, error) {
	id := event.ID()
	tag, err := tx.Exec(ctx, `
		INSERT INTO applied_events (block_height, extrinsic_index, event_index, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (block_height, extrinsic_index, event_index) DO NOTHING
	`, int64(id.BlockHeight), int32(id.ExtrinsicIndex), int32(id.EventIndex), event.Kind())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func applyEvent(ctx context.Context, tx pgx.Tx, event model.DomainEvent) error {
	switch ev := event.(type) {
	case model.AccountCreated:
		return ensureAccount(ctx, tx, ev.Address)

	case model.DaoCreated:
		if err := ensureAccount(ctx, tx, ev.Owner); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO daos (id, name, owner_address, asset_id)
			VALUES ($1, $2, $3, NULLIF($4, 0))
			ON CONFLICT (id) DO NOTHING
		`, ev.DaoID, ev.Name, ev.Owner, int64(ev.AssetID))
		return err

	case model.DaoMetadataSet:
		_, err := tx.Exec(ctx, `
			UPDATE daos
			SET metadata_url = $2, metadata_hash = $3, updated_at = now()
			WHERE id = $1
		`, ev.DaoID, ev.MetadataURL, ev.MetadataHash)
		return err

	case model.DaoDestroyed:
		// Asset, holdings, proposals and votes cascade.
		_, err := tx.Exec(ctx, `DELETE FROM daos WHERE id = $1`, ev.DaoID)
		return err

	case model.AssetIssued:
		if err := ensureAccount(ctx, tx, ev.To); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO assets (id, dao_id, owner_address, total_supply)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, int64(ev.AssetID), ev.DaoID, ev.To, numericFromUint64(ev.Amount)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE daos SET asset_id = $2, updated_at = now() WHERE id = $1
		`, ev.DaoID, int64(ev.AssetID)); err != nil {
			return err
		}
		// The issuer starts with the entire supply.
		_, err := tx.Exec(ctx, `
			INSERT INTO asset_holdings (asset_id, owner_address, balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (asset_id, owner_address) DO NOTHING
		`, int64(ev.AssetID), ev.To, numericFromUint64(ev.Amount))
		return err

	case model.AssetTransferred:
		if err := ensureAccount(ctx, tx, ev.To); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE asset_holdings
			SET balance = balance - $3, updated_at = now()
			WHERE asset_id = $1 AND owner_address = $2
		`, int64(ev.AssetID), ev.From, numericFromUint64(ev.Amount)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO asset_holdings (asset_id, owner_address, balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (asset_id, owner_address) DO UPDATE
			SET balance = asset_holdings.balance + EXCLUDED.balance, updated_at = now()
		`, int64(ev.AssetID), ev.To, numericFromUint64(ev.Amount))
		return err

	case model.ProposalCreated:
		if err := ensureAccount(ctx, tx, ev.Creator); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO proposals (id, dao_id, creator_address, status, body_hash, birth_block_height)
			VALUES ($1, $2, $3, 'running', $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, ev.ProposalID, ev.DaoID, ev.Creator, ev.BodyHash, int64(ev.BlockHeight))
		return err

	case model.ProposalMetadataSet:
		_, err := tx.Exec(ctx, `
			UPDATE proposals
			SET metadata_url = $2, metadata_hash = $3, updated_at = now()
			WHERE id = $1
		`, ev.ProposalID, ev.MetadataURL, ev.MetadataHash)
		return err

	case model.VoteCast:
		if err := ensureAccount(ctx, tx, ev.Voter); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO votes (proposal_id, voter_address, in_favor, voting_power)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (proposal_id, voter_address) DO UPDATE
			SET in_favor = EXCLUDED.in_favor, voting_power = EXCLUDED.voting_power, updated_at = now()
		`, ev.ProposalID, ev.Voter, ev.InFavor, numericFromUint64(ev.Weight))
		return err

	case model.ProposalFinalized:
		status := "rejected"
		if ev.Accepted {
			status = "accepted"
		}
		_, err := tx.Exec(ctx, `
			UPDATE proposals SET status = $2, updated_at = now() WHERE id = $1
		`, ev.ProposalID, status)
		return err

	case model.ProposalFaulted:
		_, err := tx.Exec(ctx, `
			UPDATE proposals
			SET status = 'faulted', fault_reason = $2, updated_at = now()
			WHERE id = $1
		`, ev.ProposalID, ev.Reason)
		return err

	case model.Unknown:
		// Counted in the ledger, no projection effect.
		return nil

	default:
		return fmt.Errorf("unhandled event kind %s", event.Kind())
	}
}

// numericFromUint64 carries full-range on-chain amounts into NUMERIC columns.
// An int64 cast would sign-flip values at or above 1<<63.
func numericFromUint64(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func ensureAccount(ctx context.Context, tx pgx.Tx, address string) error {
	if address == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING
	`, address)
	return err
}
