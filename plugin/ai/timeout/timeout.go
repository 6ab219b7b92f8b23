// Package timeout defines centralized timeout constants for external calls.
package timeout

import "time"

const (
	// EmbeddingTimeout is the timeout for a single embedding request.
	EmbeddingTimeout = 30 * time.Second

	// StoreTimeout is the timeout for a single storage operation.
	StoreTimeout = 15 * time.Second

	// ReadinessTimeout is the timeout for the embedding readiness probe.
	ReadinessTimeout = 10 * time.Second
)
