package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/llm"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/parse"
	"github.com/ppiankov/latool/internal/pipeline"
	"github.com/ppiankov/latool/internal/validate"
)

var (
	showLog       bool
	savePath      string
	outPath       string
	depth         int
	noResolve     bool
	showTree      bool
	timeout       time.Duration
	userAgent     string
	maxBytes      int64
	noCache       bool
	cacheDir      string
	insecureTLS   bool
	respectRobots bool
	checkLinks    bool
	describeWith  string
	llmModel      string
	markdown      bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Analyze a single Linked Art entity",
	Long: `Scan fetches one Linked Art JSON-LD document and:
- Resolves compact Getty identifiers and vocabulary terms
- Extracts the catalogue fields for its entity type
- Logs missing data and deviations from the Linked Art patterns
- Optionally checks the links it found and writes a short description

With --tree the entity is parsed recursively instead, following bare
references up to --depth levels.

Example:
  latool scan https://linked.art/example/object/nightwatch
  latool scan https://example.org/object/1 --log --json result.json
  latool scan https://example.org/object/1 --tree --depth 2 --save tree.yaml
  latool scan https://example.org/object/1 --check-links --describe openai`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().BoolVar(&showLog, "log", false, "print the log messages instead of their count")
	scanCmd.Flags().StringVar(&outPath, "json", "", "write the result to this path (.yaml/.yml for YAML)")
	scanCmd.Flags().StringVar(&savePath, "save", "", "write the parsed entity tree as YAML to this path")
	scanCmd.Flags().BoolVar(&markdown, "markdown", false, "convert HTML in statements to Markdown")

	// Tree flags
	scanCmd.Flags().BoolVar(&showTree, "tree", false, "print the complete parsed entity tree")
	scanCmd.Flags().IntVar(&depth, "depth", 3, "maximum depth of the entity tree")
	scanCmd.Flags().BoolVar(&noResolve, "no-resolve", false, "do not fetch referenced entities or vocabulary terms in the tree")

	addHTTPFlags(scanCmd.Flags())
	scanCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall scan timeout")
	scanCmd.Flags().Int64Var(&maxBytes, "max-bytes", 10_000_000, "max response bytes to read")
	scanCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	scanCmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "honour robots.txt of collection servers")

	addOptionalStepFlags(scanCmd.Flags())
}

// addHTTPFlags registers the fetch flags shared by scan and batch
func addHTTPFlags(flags *pflag.FlagSet) {
	flags.StringVar(&userAgent, "ua", model.DefaultUserAgent, "HTTP User-Agent")
	flags.BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	flags.StringVar(&cacheDir, "cache-dir", "", "also keep fetched documents on disk under this directory")
}

// addOptionalStepFlags registers the link check and description flags
func addOptionalStepFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&checkLinks, "check-links", false, "check that web pages, manifests and images are reachable")
	flags.StringVar(&describeWith, "describe", "", "generate a description with an LLM provider (openai, ollama)")
	flags.StringVar(&llmModel, "llm-model", "", "LLM model name (default depends on the provider)")
}

// applyFlags overrides cfg with the flags set on the command line only, so
// config file and environment values survive unset flags.
func applyFlags(flags *pflag.FlagSet, cfg *model.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "ua":
			cfg.HTTP.UserAgent = userAgent
		case "max-bytes":
			cfg.HTTP.MaxBodyBytes = maxBytes
		case "insecure":
			cfg.HTTP.InsecureTLS = insecureTLS
		case "respect-robots":
			cfg.HTTP.RespectRobots = respectRobots
		case "no-cache":
			cfg.Cache.Enabled = !noCache
		case "cache-dir":
			cfg.Cache.Dir = cacheDir
		case "log":
			cfg.Output.ShowLog = showLog
		case "tree":
			cfg.Output.ShowTree = showTree
		case "markdown":
			cfg.Output.MarkdownStatements = markdown
		case "depth":
			cfg.Parse.MaxDepth = depth
		case "no-resolve":
			cfg.Parse.ResolveReferences = !noResolve
		case "describe":
			cfg.LLM.Provider = describeWith
			if describeWith == "openai" && cfg.LLM.APIKey == "" {
				cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			}
		case "llm-model":
			cfg.LLM.Model = llmModel
		}
	})
	if flags.Changed("describe") && !flags.Changed("llm-model") && describeWith == "ollama" {
		// the configured model is an OpenAI one by default
		cfg.LLM.Model = ""
	}
}

// buildAnalyzer wires the fetcher and the optional steps cfg asks for
func buildAnalyzer(cfg *model.Config, withLinks bool, logger *slog.Logger) (*pipeline.Analyzer, error) {
	fetchOpts := fetch.OptionsFromConfig(cfg, logger)
	fetcher := fetch.NewHTTPFetcher(fetchOpts)

	var opts []pipeline.Option
	if withLinks {
		opts = append(opts, pipeline.WithLinkChecker(validate.NewCheckerFromConfig(cfg, fetchOpts.Limiter, logger)))
	}
	if cfg.LLM.Provider != "" {
		summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg))
		if err != nil {
			return nil, fmt.Errorf("description: %w", err)
		}
		opts = append(opts, pipeline.WithDescriber(summarizer))
	}
	return pipeline.NewAnalyzer(fetcher, cfg, logger, opts...), nil
}

// parseOptions returns the tree options of cfg
func parseOptions(cfg *model.Config) parse.Options {
	opts := parse.DefaultOptions()
	opts.MaxDepth = cfg.Parse.MaxDepth
	opts.ResolveReferences = cfg.Parse.ResolveReferences
	opts.MaxConcurrency = cfg.Parse.MaxConcurrency
	return opts
}

func runScan(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), cfg)
	logger := newLogger(cfg.Output.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	analyzer, err := buildAnalyzer(cfg, checkLinks, logger)
	if err != nil {
		return err
	}
	renderer := pipeline.NewRenderer(os.Stdout, cfg.Output.ShowLog)

	if cfg.Output.ShowTree || savePath != "" {
		node, log, err := analyzer.Parse(ctx, url, parseOptions(cfg))
		if err != nil {
			return err
		}
		if cfg.Output.ShowTree {
			renderer.RenderTree(node, log.Messages())
		}
		if savePath != "" {
			if err := parse.SaveYAML(savePath, node); err != nil {
				return fmt.Errorf("save tree: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Saved entity tree to %s\n", savePath)
		}
		if cfg.Output.ShowTree {
			return nil
		}
	}

	result := analyzer.Analyze(ctx, url)
	renderer.RenderSummary(result)

	if outPath != "" && result.Success {
		if err := pipeline.WriteResult(outPath, result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved result to %s\n", outPath)
	}

	if !result.Success {
		return ErrReported
	}
	return nil
}
