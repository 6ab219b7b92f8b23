package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveQueryOptions(t *testing.T) {
	t.Run("ZeroValueGetsDefaults", func(t *testing.T) {
		resolved := resolveQueryOptions(QueryOptions{})
		require.Equal(t, DefaultLimit, resolved.Limit)
		require.InDelta(t, DefaultMinSimilarity, resolved.MinSimilarity, 1e-6)
		require.InDelta(t, 1-DefaultMinSimilarity, resolved.MaxDistance, 1e-6)
	})

	t.Run("NegativeLimitTreatedAsUnset", func(t *testing.T) {
		resolved := resolveQueryOptions(QueryOptions{Limit: -3})
		require.Equal(t, DefaultLimit, resolved.Limit)
	})

	t.Run("ExplicitValuesKept", func(t *testing.T) {
		resolved := resolveQueryOptions(QueryOptions{Limit: 25, MinSimilarity: 0.5})
		require.Equal(t, 25, resolved.Limit)
		require.InDelta(t, 0.5, resolved.MaxDistance, 1e-6)
	})
}

func TestBuildMemoryFilter(t *testing.T) {
	t.Run("UnsetFieldsProduceNoPredicate", func(t *testing.T) {
		filter := buildMemoryFilter(QueryOptions{PersonaID: "persona-1"})
		require.Equal(t, "persona-1", filter.PersonaID)
		require.Nil(t, filter.PersonalityID)
		require.Nil(t, filter.CreatedBefore)
		require.Empty(t, filter.ExcludeIDs)
		require.Empty(t, filter.ChannelIDs)
	})

	t.Run("AllFieldsTranslate", func(t *testing.T) {
		filter := buildMemoryFilter(QueryOptions{
			PersonaID:        "persona-1",
			PersonalityID:    "luna",
			ExcludeNewerThan: 1700000000,
			ExcludeIDs:       []string{"a", "b"},
			ChannelIDs:       []string{"12345678901234567"},
		})
		require.NotNil(t, filter.PersonalityID)
		require.Equal(t, "luna", *filter.PersonalityID)
		require.NotNil(t, filter.CreatedBefore)
		require.EqualValues(t, 1700000000, *filter.CreatedBefore)
		require.Equal(t, []string{"a", "b"}, filter.ExcludeIDs)
		require.Equal(t, []string{"12345678901234567"}, filter.ChannelIDs)
	})

	t.Run("SlicesAreCopied", func(t *testing.T) {
		exclude := []string{"a"}
		filter := buildMemoryFilter(QueryOptions{PersonaID: "p", ExcludeIDs: exclude})
		exclude[0] = "mutated"
		require.Equal(t, []string{"a"}, filter.ExcludeIDs)
	})
}
