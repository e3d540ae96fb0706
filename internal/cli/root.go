package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/latool/internal/model"
)

// Version is the latool release
const Version = "0.2.0"

// ErrReported is returned when the failure was already printed to the user
var ErrReported = errors.New("analysis failed")

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "latool",
	Short: "latool - Linked Art JSON-LD analysis",
	Long: `latool fetches a Linked Art entity and extracts its catalogue fields:
titles, identifiers, creators, dates, dimensions, materials, statements,
web pages, IIIF manifests and images.

Vocabulary URIs are resolved to their preferred terms. Anything that could
not be found or that deviates from the Linked Art patterns is logged.

latool reports what the data says; it does not correct it.`,
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
	Long:  `Display the version number of latool.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("latool v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.latool/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

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

		viper.AddConfigPath(filepath.Join(home, ".latool"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// LATOOL_HTTP_USER_AGENT overrides http.user_agent
	viper.SetEnvPrefix("LATOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	registerDefaults(cfg)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg, nil
}

// registerDefaults makes every config key known to viper so that
// AutomaticEnv can override keys absent from the config file.
func registerDefaults(cfg *model.Config) {
	defaults := map[string]any{
		"http.timeout":                   cfg.HTTP.Timeout,
		"http.user_agent":                cfg.HTTP.UserAgent,
		"http.max_body_bytes":            cfg.HTTP.MaxBodyBytes,
		"http.insecure_tls":              cfg.HTTP.InsecureTLS,
		"http.respect_robots":            cfg.HTTP.RespectRobots,
		"http.http_proxy":                cfg.HTTP.HTTPProxy,
		"http.https_proxy":               cfg.HTTP.HTTPSProxy,
		"http.no_proxy":                  cfg.HTTP.NoProxy,
		"rate_limit.requests_per_second": cfg.RateLimit.RequestsPerSecond,
		"rate_limit.burst_size":          cfg.RateLimit.BurstSize,
		"cache.enabled":                  cfg.Cache.Enabled,
		"cache.memory_ttl":               cfg.Cache.MemoryTTL,
		"cache.dir":                      cfg.Cache.Dir,
		"cache.disk_ttl":                 cfg.Cache.DiskTTL,
		"parse.max_depth":                cfg.Parse.MaxDepth,
		"parse.resolve_references":       cfg.Parse.ResolveReferences,
		"parse.max_concurrency":          cfg.Parse.MaxConcurrency,
		"concurrency.workers":            cfg.Concurrency.Workers,
		"concurrency.link_workers":       cfg.Concurrency.LinkWorkers,
		"output.show_log":                cfg.Output.ShowLog,
		"output.show_tree":               cfg.Output.ShowTree,
		"output.markdown_statements":     cfg.Output.MarkdownStatements,
		"llm.provider":                   cfg.LLM.Provider,
		"llm.model":                      cfg.LLM.Model,
		"llm.api_key":                    cfg.LLM.APIKey,
		"llm.base_url":                   cfg.LLM.BaseURL,
		"llm.timeout":                    cfg.LLM.Timeout,
		"llm.max_tokens":                 cfg.LLM.MaxTokens,
		"llm.strict_citations":           cfg.LLM.StrictCitations,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// newLogger returns the operational logger. Domain diagnostics are not
// logged here; they travel with each result.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
