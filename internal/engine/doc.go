// Package engine provides the asynchronous query execution engine: the
// worker side of the job queue. It resolves a job's data source, looks up
// the matching runner via the registry, executes the query, persists the
// tabular result, and records the job's terminal state in the store.
package engine
