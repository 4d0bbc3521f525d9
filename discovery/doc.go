// Package discovery runs the end-to-end repository discovery workflow.
//
// A run starts from a natural-language query and moves through query
// analysis, parallel web and video search, relevance filtering, candidate
// extraction, deduplication, quality assessment, selection, deep analysis,
// guide generation, and tool registration. The step graph routes on action
// tags, so empty or poor intermediate results branch to recovery states
// (query clarification, fallback selection, degraded completion) instead
// of aborting.
//
// The shared run state is owned by the workflow engine: concurrent
// sub-tasks inside the search and extraction steps return values, and only
// the finalize phases write them back. Every run produces a RunReport with
// candidate and scrape counts regardless of which terminal state it
// reached.
package discovery
