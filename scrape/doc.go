// Package scrape fetches candidate pages and extracts repository evidence
// from them.
//
// Fetching is the only unreliable operation in the discovery pipeline, so
// it is the only one wrapped in retries. Failures after the final attempt
// are data, not errors: Extract always returns a usable outcome whose
// Failed flag and attempt count record what happened, and the pipeline
// carries on with whatever succeeded.
package scrape
