package registry

import "errors"

// Sentinel errors for consistent error handling.
var (
	ErrNotInstalled    = errors.New("registry: no tool set installed")
	ErrToolNotFound    = errors.New("registry: tool not found")
	ErrUnknownFeature  = errors.New("registry: unknown feature")
	ErrInvalidArgs     = errors.New("registry: invalid arguments")
	ErrInvalidRequest  = errors.New("registry: invalid request")
	ErrExecutionFailed = errors.New("registry: tool execution failed")
)

// JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeToolNotFound   = -32001
	ErrCodeToolExecFailed = -32002
)
