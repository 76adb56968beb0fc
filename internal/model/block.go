package model

import "encoding/json"

// Head is the finalized head of the chain.
type Head struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// RawBlock is a finalized block as served by the node. Transient, never persisted.
type RawBlock struct {
	Height     uint64      `json:"height"`
	Hash       string      `json:"hash"`
	ParentHash string      `json:"parent_hash"`
	Extrinsics []Extrinsic `json:"extrinsics"`
}

// Extrinsic is one call included in a block, with the events it emitted.
type Extrinsic struct {
	Index  uint32     `json:"index"`
	Module string     `json:"module"`
	Call   string     `json:"call"`
	Events []RawEvent `json:"events"`
}

// RawEvent is an undecoded on-chain event emitted by an extrinsic.
type RawEvent struct {
	Index      uint32          `json:"index"`
	Module     string          `json:"module"`
	Name       string          `json:"name"`
	Attributes json.RawMessage `json:"attributes"`
}

// Tag returns the module-qualified event tag, e.g. "DaoCore.DaoCreated".
func (e RawEvent) Tag() string {
	return e.Module + "." + e.Name
}
