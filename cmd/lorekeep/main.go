package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lorekeep/lorekeep/internal/logging"
	"github.com/lorekeep/lorekeep/internal/profile"
	"github.com/lorekeep/lorekeep/plugin/ai"
	"github.com/lorekeep/lorekeep/plugin/ai/memory"
	"github.com/lorekeep/lorekeep/store"
	"github.com/lorekeep/lorekeep/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "lorekeep",
	Short: "Long-term memory engine for conversational personas",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		logger, _ := logging.Setup(viper.GetString("log-file"), level)
		slog.SetDefault(logger)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Initialize the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, cleanup, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("database ready")
		return nil
	},
}

var rememberCmd = &cobra.Command{
	Use:   "remember [text]",
	Short: "Embed and persist one memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, cleanup, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := newEngine(s)
		if err != nil {
			return err
		}
		return engine.AddMemory(ctx, args[0], memory.AddMemoryOptions{
			PersonaID:     viper.GetString("persona"),
			PersonalityID: viper.GetString("personality"),
			SessionID:     viper.GetString("session"),
			CanonScope:    viper.GetString("canon-scope"),
			SummaryType:   viper.GetString("summary-type"),
			ChannelID:     viper.GetString("channel"),
			GuildID:       viper.GetString("guild"),
		})
	},
}

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Retrieve memories similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, cleanup, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := newEngine(s)
		if err != nil {
			return err
		}

		opts := memory.QueryOptions{
			PersonaID:          viper.GetString("persona"),
			PersonalityID:      viper.GetString("personality"),
			Limit:              viper.GetInt("limit"),
			MinSimilarity:      float32(viper.GetFloat64("min-similarity")),
			ChannelIDs:         viper.GetStringSlice("channels"),
			ChannelBudgetRatio: viper.GetFloat64("channel-ratio"),
		}
		documents := engine.QueryMemoriesWithChannelScoping(ctx, args[0], opts)
		if len(documents) == 0 {
			fmt.Println("no memories found")
			return nil
		}
		for _, doc := range documents {
			name := doc.PersonalityName
			if name == "" {
				name = doc.Memory.PersonalityID
			}
			fmt.Printf("[%.3f] (%s) %s\n", doc.Score, name, strings.TrimSpace(doc.Memory.Content))
		}
		return nil
	},
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:   viper.GetString("mode"),
		Driver: viper.GetString("driver"),
		DSN:    viper.GetString("dsn"),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func openStore(ctx context.Context) (*store.Store, func(), error) {
	p, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	s := store.New(driver, p)
	return s, func() {
		if err := s.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}, nil
}

func newEngine(s *store.Store) (*memory.Service, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, err
	}
	embedder, err := ai.NewEmbeddingServiceFromProfile(p)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	counter, err := memory.NewTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("token counter: %w", err)
	}
	return memory.NewService(s, embedder, counter, &memory.Config{
		MaxMemoryTokens: p.MaxMemoryTokens,
	})
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `runtime mode ("dev" or "prod")`)
	flags.String("driver", "", `database driver ("sqlite" or "postgres")`)
	flags.String("dsn", "", "database connection string")
	flags.String("log-file", "", "append JSON logs to this file")
	flags.Bool("verbose", false, "enable debug logging")
	flags.String("persona", "", "owning persona id")
	flags.String("personality", "", "personality id")

	rememberCmd.Flags().String("session", "", "session id")
	rememberCmd.Flags().String("canon-scope", "", `canon scope (default "personal")`)
	rememberCmd.Flags().String("summary-type", "", "summary type tag")
	rememberCmd.Flags().String("channel", "", "source Discord channel id")
	rememberCmd.Flags().String("guild", "", "source Discord guild id")

	recallCmd.Flags().Int("limit", 0, "maximum results (default 10)")
	recallCmd.Flags().Float64("min-similarity", 0, "similarity floor (default 0.85)")
	recallCmd.Flags().StringSlice("channels", nil, "scope retrieval to these channel ids")
	recallCmd.Flags().Float64("channel-ratio", 0, "share of the limit reserved for channel results")

	rootCmd.AddCommand(migrateCmd, rememberCmd, recallCmd)

	viper.SetEnvPrefix("lorekeep")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.OnInitialize(func() {
		_ = viper.BindPFlags(rootCmd.PersistentFlags())
		_ = viper.BindPFlags(rememberCmd.Flags())
		_ = viper.BindPFlags(recallCmd.Flags())
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
