package model

// EventID is the natural, globally-unique identity of an event within the
// chain's timeline. Ordering is (block height, extrinsic index, event index).
type EventID struct {
	BlockHeight    uint64 `json:"block_height"`
	ExtrinsicIndex uint32 `json:"extrinsic_index"`
	EventIndex     uint32 `json:"event_index"`
}

// DomainEvent is a decoded on-chain event relevant to the DAO projection.
type DomainEvent interface {
	ID() EventID
	Kind() string
}

func (id EventID) ID() EventID { return id }

// Less reports whether id orders strictly before other in chain order.
func (id EventID) Less(other EventID) bool {
	if id.BlockHeight != other.BlockHeight {
		return id.BlockHeight < other.BlockHeight
	}
	if id.ExtrinsicIndex != other.ExtrinsicIndex {
		return id.ExtrinsicIndex < other.ExtrinsicIndex
	}
	return id.EventIndex < other.EventIndex
}

// AccountCreated is emitted when a new account appears on chain.
type AccountCreated struct {
	EventID
	Address string `json:"address"`
}

func (AccountCreated) Kind() string { return "account_created" }

// DaoCreated is emitted when a new dao is registered.
type DaoCreated struct {
	EventID
	DaoID   string `json:"dao_id"`
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	AssetID uint64 `json:"asset_id"`
}

func (DaoCreated) Kind() string { return "dao_created" }

// DaoMetadataSet updates a dao's metadata pointer.
type DaoMetadataSet struct {
	EventID
	DaoID        string `json:"dao_id"`
	MetadataURL  string `json:"metadata_url"`
	MetadataHash string `json:"metadata_hash"`
}

func (DaoMetadataSet) Kind() string { return "dao_metadata_set" }

// DaoDestroyed removes a dao and its dependents.
type DaoDestroyed struct {
	EventID
	DaoID string `json:"dao_id"`
}

func (DaoDestroyed) Kind() string { return "dao_destroyed" }

// AssetIssued creates a dao governance asset with its initial supply.
type AssetIssued struct {
	EventID
	AssetID uint64 `json:"asset_id"`
	DaoID   string `json:"dao_id"`
	To      string `json:"to"`
	Amount  uint64 `json:"amount"`
}

func (AssetIssued) Kind() string { return "asset_issued" }

// AssetTransferred moves asset balance between two holders.
type AssetTransferred struct {
	EventID
	AssetID uint64 `json:"asset_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  uint64 `json:"amount"`
}

func (AssetTransferred) Kind() string { return "asset_transferred" }

// ProposalCreated opens a governance proposal for a dao.
type ProposalCreated struct {
	EventID
	ProposalID string `json:"proposal_id"`
	DaoID      string `json:"dao_id"`
	Creator    string `json:"creator"`
	BodyHash   string `json:"body_hash"`
}

func (ProposalCreated) Kind() string { return "proposal_created" }

// ProposalMetadataSet updates a proposal's metadata pointer.
type ProposalMetadataSet struct {
	EventID
	ProposalID   string `json:"proposal_id"`
	MetadataURL  string `json:"metadata_url"`
	MetadataHash string `json:"metadata_hash"`
}

func (ProposalMetadataSet) Kind() string { return "proposal_metadata_set" }

// VoteCast records a vote on a running proposal.
type VoteCast struct {
	EventID
	ProposalID string `json:"proposal_id"`
	Voter      string `json:"voter"`
	InFavor    bool   `json:"in_favor"`
	Weight     uint64 `json:"weight"`
}

func (VoteCast) Kind() string { return "vote_cast" }

// ProposalFinalized closes voting with an accepted or rejected outcome.
type ProposalFinalized struct {
	EventID
	ProposalID string `json:"proposal_id"`
	Accepted   bool   `json:"accepted"`
}

func (ProposalFinalized) Kind() string { return "proposal_finalized" }

// ProposalFaulted marks a proposal as invalid with a reason.
type ProposalFaulted struct {
	EventID
	ProposalID string `json:"proposal_id"`
	Reason     string `json:"reason"`
}

func (ProposalFaulted) Kind() string { return "proposal_faulted" }

// Unknown is the catch-all for event tags the extractor does not recognize.
// The applier counts and skips it without aborting the block.
type Unknown struct {
	EventID
	RawTag string `json:"raw_tag"`
}

func (Unknown) Kind() string { return "unknown" }
