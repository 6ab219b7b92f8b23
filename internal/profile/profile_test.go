package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidate(t *testing.T) {
	t.Run("DefaultsToSQLiteDev", func(t *testing.T) {
		p := &Profile{}
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
		assert.Equal(t, "sqlite", p.Driver)
		assert.Equal(t, "lorekeep_dev.db", p.DSN)
		assert.Equal(t, 384, p.EmbeddingDims)
		assert.Equal(t, 8000, p.MaxMemoryTokens)
	})

	t.Run("PostgresRequiresDSN", func(t *testing.T) {
		p := &Profile{Driver: "postgres"}
		assert.Error(t, p.Validate())

		p.DSN = "postgres://lorekeep@localhost:5432/lorekeep?sslmode=disable"
		assert.NoError(t, p.Validate())
	})

	t.Run("UnknownDriverRejected", func(t *testing.T) {
		p := &Profile{Driver: "mysql"}
		assert.Error(t, p.Validate())
	})
}

func TestProfileFromEnv(t *testing.T) {
	t.Setenv("LOREKEEP_DRIVER", "postgres")
	t.Setenv("LOREKEEP_DSN", "postgres://x")
	t.Setenv("LOREKEEP_EMBEDDING_DIMS", "768")

	p := &Profile{}
	p.FromEnv()
	require.NoError(t, p.Validate())

	assert.Equal(t, "postgres", p.Driver)
	assert.Equal(t, "postgres://x", p.DSN)
	assert.Equal(t, 768, p.EmbeddingDims)
	assert.Equal(t, "openai", p.EmbeddingProvider)
}
