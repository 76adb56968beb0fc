package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"

	"daoListener/internal/model"
)

// Client wraps the node's JSON-RPC endpoint and provides typed block access.
// It holds a live connection and redials transparently after a transport
// failure; callers see every call as stateless. Retry policy lives with the
// caller, never here.
type Client struct {
	url string

	mu        sync.Mutex
	rpcClient *rpc.Client
}

// NewClient creates a chain client. Dialing is lazy: the first call connects,
// and an unreachable node surfaces as a retryable ConnectionError rather than
// a construction failure.
func NewClient(url string) *Client {
	return &Client{url: url}
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
}

// Head returns the current finalized head of the chain.
func (c *Client) Head(ctx context.Context) (model.Head, error) {
	var head *model.Head
	if err := c.call(ctx, &head, "chain_getFinalizedHead"); err != nil {
		return model.Head{}, classifyHeadError(err)
	}
	if head == nil || head.Hash == "" {
		return model.Head{}, &NodeNotReadyError{}
	}
	return *head, nil
}

// Block fetches the finalized block at the given height.
func (c *Client) Block(ctx context.Context, height uint64) (model.RawBlock, error) {
	var raw json.RawMessage
	if err := c.call(ctx, &raw, "chain_getBlock", height); err != nil {
		if _, ok := asRPCError(err); ok {
			// The node answered but refused the request; most commonly the
			// height is past its head.
			return model.RawBlock{}, &NotFoundError{Height: height}
		}
		return model.RawBlock{}, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return model.RawBlock{}, &NotFoundError{Height: height}
	}

	var block model.RawBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return model.RawBlock{}, &DecodeError{Height: height, Err: err}
	}
	if err := validateBlock(height, block); err != nil {
		return model.RawBlock{}, &DecodeError{Height: height, Err: err}
	}
	return block, nil
}

// call performs one RPC round trip. Transport failures drop the connection so
// the next call dials fresh.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	client, err := c.conn(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	if err := client.CallContext(ctx, result, method, args...); err != nil {
		if _, ok := asRPCError(err); ok {
			return err
		}
		c.drop(client)
		return &ConnectionError{Err: err}
	}
	return nil
}

func (c *Client) conn(ctx context.Context) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpcClient != nil {
		return c.rpcClient, nil
	}
	client, err := rpc.DialContext(ctx, c.url)
	if err != nil {
		return nil, err
	}
	c.rpcClient = client
	return client, nil
}

func (c *Client) drop(client *rpc.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpcClient == client {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
}

func asRPCError(err error) (rpc.Error, bool) {
	rpcErr, ok := err.(rpc.Error)
	return rpcErr, ok
}

// classifyHeadError maps server-defined codes (-32099..-32000), which nodes
// use for transient states such as still syncing, to NodeNotReadyError.
// Protocol errors like unknown method keep their own identity.
func classifyHeadError(err error) error {
	rpcErr, ok := asRPCError(err)
	if !ok {
		return err
	}
	if code := rpcErr.ErrorCode(); code >= -32099 && code <= -32000 {
		return &NodeNotReadyError{Msg: rpcErr.Error()}
	}
	return err
}

func validateBlock(height uint64, block model.RawBlock) error {
	if block.Hash == "" {
		return fmt.Errorf("missing block hash")
	}
	if block.Height != height {
		return fmt.Errorf("height mismatch: requested %d, got %d", height, block.Height)
	}
	if height > 0 && block.ParentHash == "" {
		return fmt.Errorf("missing parent hash")
	}
	for i, ext := range block.Extrinsics {
		if int(ext.Index) != i {
			return fmt.Errorf("extrinsic index out of order at position %d", i)
		}
	}
	return nil
}
