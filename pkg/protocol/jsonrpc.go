package protocol

import "encoding/json"

// JSON-RPC 2.0 message types for tool mode communication.

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"` // string or int; nil for notifications
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application-specific error codes.
const (
	CodeUnknownProducer  = -32000
	CodeStoreUnavailable = -32001
)

// Method constants for all supported JSON-RPC methods.
const (
	MethodInitialize = "initialize"
	MethodShutdown   = "shutdown"

	// Producer discovery.
	MethodProducersList = "producers.list"

	// Deliverable checks.
	MethodVerify   = "verify"
	MethodPrecheck = "precheck"
)

// NewResponse creates a successful response.
func NewResponse(id any, result any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id any, code int, message string, data any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// InitializeResult describes the server to a newly connected client.
type InitializeResult struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Methods []string `json:"methods"`
}

// VerifyParams holds parameters for the "verify" and "precheck" methods.
type VerifyParams struct {
	Producer string `json:"producer"`
}

// ProducerInfo describes one producer in the producers.list response.
type ProducerInfo struct {
	Name        string   `json:"name"`
	Stage       string   `json:"stage"`
	Description string   `json:"description"`
	Paths       []string `json:"paths"`
}
