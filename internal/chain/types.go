package chain

import (
	"encoding/json"
	"fmt"
)

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Error codes surfaced by the node's wallet bridge.
const (
	// CodeUserRejected is returned when the wallet owner declines to sign.
	CodeUserRejected = -32003
	// CodeUnknownTransaction is returned while a transaction is not yet indexed.
	CodeUnknownTransaction = -32004
)

// Param is a typed contract invocation parameter.
type Param struct {
	Type  string      `json:"type"` // string, int, bytes, bool
	Value interface{} `json:"value"`
}

// StringParam builds a string parameter.
func StringParam(v string) Param { return Param{Type: "string", Value: v} }

// IntParam builds an integer parameter.
func IntParam(v int64) Param { return Param{Type: "int", Value: v} }

// BytesParam builds a hex-encoded byte parameter.
func BytesParam(v string) Param { return Param{Type: "bytes", Value: v} }

// InvokeResult is the outcome of a read-only contract invocation.
type InvokeResult struct {
	State     string          `json:"state"` // HALT on success, FAULT otherwise
	Exception string          `json:"exception,omitempty"`
	Stack     json.RawMessage `json:"stack"`
}

// Receipt describes a confirmed transaction.
type Receipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	State       string `json:"state"`
	Exception   string `json:"exception,omitempty"`
	GasConsumed int64  `json:"gas_consumed"`
}
