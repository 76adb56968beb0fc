package chain

import (
	"errors"
	"testing"

	"daoListener/internal/model"
)

func TestValidateBlock(t *testing.T) {
	valid := model.RawBlock{
		Height:     5,
		Hash:       "0x05",
		ParentHash: "0x04",
		Extrinsics: []model.Extrinsic{{Index: 0}, {Index: 1}},
	}

	cases := []struct {
		name    string
		height  uint64
		mutate  func(*model.RawBlock)
		wantErr bool
	}{
		{"valid", 5, func(*model.RawBlock) {}, false},
		{"missing hash", 5, func(b *model.RawBlock) { b.Hash = "" }, true},
		{"height mismatch", 6, func(*model.RawBlock) {}, true},
		{"missing parent", 5, func(b *model.RawBlock) { b.ParentHash = "" }, true},
		{"extrinsics out of order", 5, func(b *model.RawBlock) { b.Extrinsics[1].Index = 3 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block := valid
			block.Extrinsics = append([]model.Extrinsic(nil), valid.Extrinsics...)
			tc.mutate(&block)
			err := validateBlock(tc.height, block)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGenesisBlockNeedsNoParent(t *testing.T) {
	block := model.RawBlock{Height: 0, Hash: "0x00"}
	if err := validateBlock(0, block); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")

	connErr := &ConnectionError{Err: inner}
	if !errors.Is(connErr, inner) {
		t.Fatal("ConnectionError should unwrap")
	}

	decodeErr := &DecodeError{Height: 3, Err: inner}
	if !errors.Is(decodeErr, inner) {
		t.Fatal("DecodeError should unwrap")
	}
}

type serverError struct {
	code int
	msg  string
}

func (e serverError) Error() string  { return e.msg }
func (e serverError) ErrorCode() int { return e.code }

func TestClassifyHeadError(t *testing.T) {
	cases := []struct {
		name         string
		err          error
		wantNotReady bool
	}{
		{"server defined", serverError{code: -32000, msg: "still syncing"}, true},
		{"server defined upper bound", serverError{code: -32099, msg: "resource unavailable"}, true},
		{"unknown method", serverError{code: -32601, msg: "method not found"}, false},
		{"invalid params", serverError{code: -32602, msg: "invalid params"}, false},
		{"plain error", errors.New("dial tcp: refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classified := classifyHeadError(tc.err)
			var notReady *NodeNotReadyError
			if got := errors.As(classified, &notReady); got != tc.wantNotReady {
				t.Fatalf("not-ready classification mismatch: got %v for %v", got, tc.err)
			}
			if !tc.wantNotReady && classified != tc.err {
				t.Fatalf("error identity lost: %v became %v", tc.err, classified)
			}
		})
	}
}

func TestNodeNotReadyMessage(t *testing.T) {
	err := &NodeNotReadyError{}
	if err.Error() != "node has no finalized head yet" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	withMsg := &NodeNotReadyError{Msg: "syncing"}
	if withMsg.Error() != "node not ready: syncing" {
		t.Fatalf("unexpected message: %s", withMsg.Error())
	}
}
