// Package cli is the operator-facing command surface: ingest a corpus,
// install anchors, run enrichment stages, validate, report status.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mawsuah/tahqiq/internal/cache"
	"github.com/mawsuah/tahqiq/internal/llm"
	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/store"
)

// ErrPartialFailure marks a run that finished but left permanently
// failed items behind. The binary maps it to its own exit status so
// operators can script around it.
var ErrPartialFailure = errors.New("completed with item failures")

var (
	cfgFile string
	verbose bool
	dbPath  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tahqiq",
	Short: "Tahqiq - versioned LLM enrichment pipeline for hadith corpora",
	Long: `Tahqiq drives a large immutable text corpus through staged LLM
enrichment: temporal assignment against a fixed anchor timeline, then
layered semantic tagging, with post-hoc consistency validation.

Enrichment is versioned and append-only: reprocessing writes a new
version, it never rewrites an old one. Runs are checkpointed and
resumable; model calls are rate-limited, cached, and budget-capped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tahqiq v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tahqiq/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "corpus store path (overrides config)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.tahqiq")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match TAHQIQ_*
	viper.SetEnvPrefix("TAHQIQ")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the built-in
// defaults. Flags are applied on top by individual commands.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	if db := viper.GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	return cfg, nil
}

// openStore opens the configured corpus store.
func openStore(cfg *model.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// buildClient assembles the rate-limited, cached model client from the
// configuration.
func buildClient(cfg *model.Config) (*llm.Client, error) {
	provider, err := llm.NewProvider(llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	return llm.NewClient(provider, llm.Options{
		Cache:             c,
		Meter:             llm.NewMeter(cfg.LLM.PromptCostPer1K, cfg.LLM.CompletionCostPer1K),
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		TokensPerMinute:   cfg.LLM.TokensPerMinute,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		InitialBackoff:    cfg.LLM.InitialBackoff,
		MaxBackoff:        cfg.LLM.MaxBackoff,
		MaxReprompts:      cfg.LLM.MaxReprompts,
	}), nil
}
