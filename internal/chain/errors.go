package chain

import "fmt"

// ConnectionError wraps a transport-level failure talking to the node.
// The client drops its connection and redials on the next call.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("chain connection: %v", e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

// NodeNotReadyError means the node is reachable but reports no finalized head yet.
type NodeNotReadyError struct {
	Msg string
}

func (e *NodeNotReadyError) Error() string {
	if e.Msg == "" {
		return "node has no finalized head yet"
	}
	return "node not ready: " + e.Msg
}

// NotFoundError means the requested height exceeds the node's current head.
type NotFoundError struct {
	Height uint64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("block %d not found", e.Height) }

// DecodeError means the node returned a structurally invalid payload.
type DecodeError struct {
	Height uint64
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode block %d: %v", e.Height, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
