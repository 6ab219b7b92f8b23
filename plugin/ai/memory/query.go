package memory

import (
	"github.com/lorekeep/lorekeep/store"
)

// Retrieval defaults. A zero limit means "caller did not choose" and is
// replaced; same for a zero similarity floor. Negative limits are
// treated as unset, but a caller may set a floor of any positive value
// below 1 to loosen matching.
const (
	DefaultLimit         = 10
	DefaultMinSimilarity = 0.85
)

// QueryOptions carries the caller-facing retrieval parameters. The
// zero value is usable: it queries with default limit and similarity
// floor, no scoping, and sibling expansion on.
type QueryOptions struct {
	// PersonaID scopes every query; required.
	PersonaID string
	// PersonalityID optionally narrows to one personality.
	PersonalityID string
	// ExcludeNewerThan drops memories created at or after this unix
	// timestamp. Zero means no recency cutoff.
	ExcludeNewerThan int64
	// ExcludeIDs drops specific record ids from the result set.
	ExcludeIDs []string
	// ChannelIDs restricts matches to these Discord channels.
	ChannelIDs []string
	// Limit caps the ranked result count; <=0 uses DefaultLimit.
	Limit int
	// MinSimilarity is the score floor in [0,1); 0 uses
	// DefaultMinSimilarity.
	MinSimilarity float32
	// NoSiblings disables chunk-group reconstruction.
	NoSiblings bool
	// ChannelBudgetRatio is the share of Limit reserved for
	// channel-scoped results in waterfall retrieval, clamped to [0,1].
	ChannelBudgetRatio float64
}

// resolvedQueryOptions are QueryOptions after default substitution,
// with the similarity floor converted to the distance cutoff the
// store layer filters on.
type resolvedQueryOptions struct {
	Limit         int
	MinSimilarity float32
	MaxDistance   float32
}

func resolveQueryOptions(opts QueryOptions) resolvedQueryOptions {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	minSimilarity := opts.MinSimilarity
	if minSimilarity == 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return resolvedQueryOptions{
		Limit:         limit,
		MinSimilarity: minSimilarity,
		MaxDistance:   1 - minSimilarity,
	}
}

// buildMemoryFilter translates caller options into the store predicate
// set. Unset options produce no predicate at all, so they can never
// accidentally match empty-string columns.
func buildMemoryFilter(opts QueryOptions) store.MemoryFilter {
	filter := store.MemoryFilter{PersonaID: opts.PersonaID}
	if opts.PersonalityID != "" {
		personalityID := opts.PersonalityID
		filter.PersonalityID = &personalityID
	}
	if opts.ExcludeNewerThan > 0 {
		createdBefore := opts.ExcludeNewerThan
		filter.CreatedBefore = &createdBefore
	}
	if len(opts.ExcludeIDs) > 0 {
		filter.ExcludeIDs = append([]string(nil), opts.ExcludeIDs...)
	}
	if len(opts.ChannelIDs) > 0 {
		filter.ChannelIDs = append([]string(nil), opts.ChannelIDs...)
	}
	return filter
}
