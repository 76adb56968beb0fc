// Package extract decodes raw blocks into ordered domain events. Decoding is
// deterministic and side-effect-free so it can be tested without a live chain.
package extract

import (
	"encoding/json"
	"fmt"

	"daoListener/internal/chain"
	"daoListener/internal/model"
)

// Extract walks a block's extrinsics in order, then each extrinsic's events
// in order, and decodes every event into its domain representation.
// Unrecognized tags become model.Unknown rather than failing the block; a
// recognized tag with a malformed payload fails the whole block with a
// *chain.DecodeError.
func Extract(block model.RawBlock) ([]model.DomainEvent, error) {
	var events []model.DomainEvent
	for _, ext := range block.Extrinsics {
		for _, raw := range ext.Events {
			id := model.EventID{
				BlockHeight:    block.Height,
				ExtrinsicIndex: ext.Index,
				EventIndex:     raw.Index,
			}
			event, err := decodeEvent(id, raw)
			if err != nil {
				return nil, &chain.DecodeError{
					Height: block.Height,
					Err:    fmt.Errorf("event %s at extrinsic %d index %d: %w", raw.Tag(), ext.Index, raw.Index, err),
				}
			}
			events = append(events, event)
		}
	}
	return events, nil
}

func decodeEvent(id model.EventID, raw model.RawEvent) (model.DomainEvent, error) {
	switch raw.Tag() {
	case "System.NewAccount":
		var attrs struct {
			Account string `json:"account"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.Account == "" {
			return nil, fmt.Errorf("missing account")
		}
		return model.AccountCreated{EventID: id, Address: attrs.Account}, nil

	case "DaoCore.DaoCreated":
		var attrs struct {
			DaoID   string `json:"dao_id"`
			DaoName string `json:"dao_name"`
			Owner   string `json:"owner"`
			AssetID uint64 `json:"asset_id"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.DaoID == "" || attrs.Owner == "" {
			return nil, fmt.Errorf("missing dao_id or owner")
		}
		return model.DaoCreated{
			EventID: id,
			DaoID:   attrs.DaoID,
			Name:    attrs.DaoName,
			Owner:   attrs.Owner,
			AssetID: attrs.AssetID,
		}, nil

	case "DaoCore.DaoMetadataSet":
		var attrs struct {
			DaoID        string `json:"dao_id"`
			MetadataURL  string `json:"metadata_url"`
			MetadataHash string `json:"metadata_hash"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.DaoID == "" {
			return nil, fmt.Errorf("missing dao_id")
		}
		return model.DaoMetadataSet{
			EventID:      id,
			DaoID:        attrs.DaoID,
			MetadataURL:  attrs.MetadataURL,
			MetadataHash: attrs.MetadataHash,
		}, nil

	case "DaoCore.DaoDestroyed":
		var attrs struct {
			DaoID string `json:"dao_id"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.DaoID == "" {
			return nil, fmt.Errorf("missing dao_id")
		}
		return model.DaoDestroyed{EventID: id, DaoID: attrs.DaoID}, nil

	case "Assets.Issued":
		var attrs struct {
			AssetID     uint64 `json:"asset_id"`
			DaoID       string `json:"dao_id"`
			Owner       string `json:"owner"`
			TotalSupply uint64 `json:"total_supply"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.DaoID == "" || attrs.Owner == "" {
			return nil, fmt.Errorf("missing dao_id or owner")
		}
		return model.AssetIssued{
			EventID: id,
			AssetID: attrs.AssetID,
			DaoID:   attrs.DaoID,
			To:      attrs.Owner,
			Amount:  attrs.TotalSupply,
		}, nil

	case "Assets.Transferred":
		var attrs struct {
			AssetID uint64 `json:"asset_id"`
			From    string `json:"from"`
			To      string `json:"to"`
			Amount  uint64 `json:"amount"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.From == "" || attrs.To == "" {
			return nil, fmt.Errorf("missing from or to")
		}
		return model.AssetTransferred{
			EventID: id,
			AssetID: attrs.AssetID,
			From:    attrs.From,
			To:      attrs.To,
			Amount:  attrs.Amount,
		}, nil

	case "Votes.ProposalCreated":
		var attrs struct {
			ProposalID string `json:"proposal_id"`
			DaoID      string `json:"dao_id"`
			Creator    string `json:"creator"`
			BodyHash   string `json:"body_hash"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.ProposalID == "" || attrs.DaoID == "" || attrs.Creator == "" {
			return nil, fmt.Errorf("missing proposal_id, dao_id or creator")
		}
		return model.ProposalCreated{
			EventID:    id,
			ProposalID: attrs.ProposalID,
			DaoID:      attrs.DaoID,
			Creator:    attrs.Creator,
			BodyHash:   attrs.BodyHash,
		}, nil

	case "Votes.ProposalMetadataSet":
		var attrs struct {
			ProposalID   string `json:"proposal_id"`
			MetadataURL  string `json:"metadata_url"`
			MetadataHash string `json:"metadata_hash"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.ProposalID == "" {
			return nil, fmt.Errorf("missing proposal_id")
		}
		return model.ProposalMetadataSet{
			EventID:      id,
			ProposalID:   attrs.ProposalID,
			MetadataURL:  attrs.MetadataURL,
			MetadataHash: attrs.MetadataHash,
		}, nil

	case "Votes.VoteCast":
		var attrs struct {
			ProposalID  string `json:"proposal_id"`
			Voter       string `json:"voter"`
			InFavor     bool   `json:"in_favor"`
			VotingPower uint64 `json:"voting_power"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.ProposalID == "" || attrs.Voter == "" {
			return nil, fmt.Errorf("missing proposal_id or voter")
		}
		return model.VoteCast{
			EventID:    id,
			ProposalID: attrs.ProposalID,
			Voter:      attrs.Voter,
			InFavor:    attrs.InFavor,
			Weight:     attrs.VotingPower,
		}, nil

	case "Votes.ProposalAccepted", "Votes.ProposalRejected":
		var attrs struct {
			ProposalID string `json:"proposal_id"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.ProposalID == "" {
			return nil, fmt.Errorf("missing proposal_id")
		}
		return model.ProposalFinalized{
			EventID:    id,
			ProposalID: attrs.ProposalID,
			Accepted:   raw.Name == "ProposalAccepted",
		}, nil

	case "Votes.ProposalFaulted":
		var attrs struct {
			ProposalID string `json:"proposal_id"`
			Reason     string `json:"reason"`
		}
		if err := decodeAttrs(raw.Attributes, &attrs); err != nil {
			return nil, err
		}
		if attrs.ProposalID == "" {
			return nil, fmt.Errorf("missing proposal_id")
		}
		return model.ProposalFaulted{
			EventID:    id,
			ProposalID: attrs.ProposalID,
			Reason:     attrs.Reason,
		}, nil

	default:
		return model.Unknown{EventID: id, RawTag: raw.Tag()}, nil
	}
}

func decodeAttrs(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing attributes")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed attributes: %w", err)
	}
	return nil
}
