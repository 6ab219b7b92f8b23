package memory

import (
	"context"
	"log/slog"
	"math"
	"regexp"
)

// Discord snowflakes are numeric strings of 17 to 20 digits.
var snowflakePattern = regexp.MustCompile(`^[0-9]{17,20}$`)

// QueryMemoriesWithChannelScoping retrieves memories with a budget split
// between the given channels and the persona's global memory. A share of
// the limit (opts.ChannelBudgetRatio, at least one slot) goes to
// channel-scoped results first; the remainder backfills from unscoped
// memory, excluding anything the channel stage already returned.
// Channel-scoped results always precede backfill in the output.
//
// With no channel ids, or none that survive snowflake validation, this
// degrades to a plain unscoped query.
func (s *Service) QueryMemoriesWithChannelScoping(ctx context.Context, queryText string, opts QueryOptions) []*MemoryDocument {
	if len(opts.ChannelIDs) == 0 {
		return s.QueryMemories(ctx, queryText, opts)
	}

	valid := validChannelIDs(opts.ChannelIDs)
	if dropped := len(opts.ChannelIDs) - len(valid); dropped > 0 {
		slog.Warn("dropped malformed channel ids from memory query",
			"persona_id", opts.PersonaID,
			"dropped", dropped)
	}
	if len(valid) == 0 {
		unscoped := opts
		unscoped.ChannelIDs = nil
		return s.QueryMemories(ctx, queryText, unscoped)
	}

	resolved := resolveQueryOptions(opts)
	ratio := opts.ChannelBudgetRatio
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	channelBudget := int(math.Floor(float64(resolved.Limit) * ratio))
	if channelBudget < 1 {
		channelBudget = 1
	}

	channelOpts := opts
	channelOpts.ChannelIDs = valid
	channelOpts.Limit = channelBudget
	channelResults := s.QueryMemories(ctx, queryText, channelOpts)

	remaining := resolved.Limit - len(channelResults)
	if remaining <= 0 {
		return channelResults
	}

	globalOpts := opts
	globalOpts.ChannelIDs = nil
	globalOpts.Limit = remaining
	globalOpts.ExcludeIDs = append(documentIDs(channelResults), opts.ExcludeIDs...)
	globalResults := s.QueryMemories(ctx, queryText, globalOpts)

	return append(channelResults, globalResults...)
}

func validChannelIDs(channelIDs []string) []string {
	valid := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		if snowflakePattern.MatchString(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

func documentIDs(documents []*MemoryDocument) []string {
	ids := make([]string, 0, len(documents))
	for _, doc := range documents {
		ids = append(ids, doc.Memory.ID)
	}
	return ids
}
