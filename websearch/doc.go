// Package websearch issues discovery queries to external search backends.
//
// Backends can fail in backend-specific ways; the Adapter is the boundary
// that absorbs those failures. An adapter never returns an error: backend
// errors become an empty result list plus a logged warning, and zero
// results is an ordinary answer, so the caller only ever branches on the
// shape of the data.
package websearch
