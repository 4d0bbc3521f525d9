// Package model defines the shared domain types for repository discovery.
//
// Types flow through the discovery pipeline in a fixed lifecycle:
//
//	RequirementProfile (immutable after query analysis)
//	  → SearchResult (per search backend)
//	  → ScoredResult (after relevance scoring)
//	  → ExtractionOutcome (after scraping surviving results)
//	  → RepositoryCandidate (after dedup + quality assessment)
//	  → RepositoryAnalysis + ImplementationGuide (after deep analysis)
//	  → ToolDescriptor (ready for registration)
//
// The candidate set only shrinks through the pipeline; it is re-expanded
// solely by an explicit clarify-and-restart branch in the workflow.
package model
