// Package jsonrpc implements the JSON-RPC 2.0-flavored envelope used for all
// cross-partition and client-to-service calls, together with a typed dispatch
// table and the two transports the cluster speaks: HTTP GET with the request
// in the query string, and a length-prefixed framed byte stream.
//
// The error response shape is flat, matching the legacy wire contract:
//
//	{"jsonrpc":"2.0","id":1,"error":-32601,"message":"...","data":"..."}
package jsonrpc

// Version is fixed; requests carrying anything else are rejected.
const Version = "2.0"

// Error codes per http://www.jsonrpc.org/specification.
const (
	CodeParse             = -32700
	CodeInvalidRequest    = -32600
	CodeMethodNotFound    = -32601
	CodeInvalidParameters = -32602
	CodeInternal          = -32603

	// Implementation-defined server errors occupy -32000..-32099.
	CodeApplication = -32000
)
