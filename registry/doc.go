// Package registry hosts the tool set produced by a discovery run and
// serves it over MCP.
//
// Tools are data records, not handler closures: each record carries its
// descriptor plus the guide content or meta operation it answers with, and
// a single dispatcher in Execute interprets every call. Installing a new
// record set is atomic: validation happens up front and the previous set
// stays live until the whole replacement is accepted.
//
// Transports mirror the MCP surface: newline-delimited JSON-RPC over
// stdio, plain HTTP POST, and SSE. All three funnel into HandleRequest.
package registry
