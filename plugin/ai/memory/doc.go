// Package memory implements the long-term memory engine: deterministic
// identity, token-bounded chunking, an idempotent write path, similarity
// retrieval with chunk-sibling reconstruction, and channel-scoped
// waterfall retrieval.
//
// Write-path errors propagate to the caller so upstream jobs can retry;
// retries are always safe because record ids derive deterministically
// from content. Read-path errors are logged and converted to empty
// results: a missing memory degrades conversation quality, a thrown
// error breaks the conversation turn.
package memory
