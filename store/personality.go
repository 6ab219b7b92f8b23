package store

// Personality is a display-name lookup row for a bot personality.
// The memory engine treats personality ids as opaque foreign keys; this
// table exists only so search results can be enriched with a name.
type Personality struct {
	ID        string
	Name      string
	UpdatedTs int64
}
