package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/latool/internal/pipeline"
	"github.com/ppiankov/latool/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	outputFormat string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple Linked Art entities from a file in parallel",
	Long: `Batch analyzes many entities concurrently:
- Read URLs from input file (one per line, # starts a comment)
- Analyze URLs in parallel with configurable worker count
- Write one result file per URL

Example:
  latool batch urls.txt
  latool batch urls.txt --concurrency 8 --output-dir ./results
  latool batch urls.txt --format yaml --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./latool-results", "output directory for results")
	batchCmd.Flags().StringVar(&outputFormat, "format", "json", "result file format (json, yaml)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&markdown, "markdown", false, "convert HTML in statements to Markdown")

	addHTTPFlags(batchCmd.Flags())
	addOptionalStepFlags(batchCmd.Flags())
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	ext := strings.ToLower(outputFormat)
	if ext != "json" && ext != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", outputFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	logger := newLogger(cfg.Output.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  latool Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s\n", cfg.LLM.Provider)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	analyzer, err := buildAnalyzer(cfg, checkLinks, logger)
	if err != nil {
		return err
	}
	processor := worker.NewBatchProcessor(analyzer, cfg.Concurrency.Workers)

	// per-URL failures are reported below; only a missing input file stops here
	results, err := processor.ProcessFile(ctx, file)
	if results == nil && err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	written := 0
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", r.Error)
			continue
		}

		path := filepath.Join(outputDir, fmt.Sprintf("%03d-%s.%s", r.Index+1, sanitizeFilename(r.URL), ext))
		if err := pipeline.WriteResult(path, r.Result); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write result: %v\n", r.URL, err)
			continue
		}
		written++
		fmt.Fprintf(os.Stderr, "✓ %s (%s, %d issue(s))\n", r.URL, r.Result.EntityType, len(r.Result.LogMessages))
	}

	failures := worker.Failed(results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d URLs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", written)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if ctx.Err() != nil {
		return fmt.Errorf("batch interrupted: %w", ctx.Err())
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"&", "_",
	"=", "_",
	" ", "-",
)

// sanitizeFilename turns a URL into a file name
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.Trim(filenameReplacer.Replace(s), "_")

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "result"
	}
	return s
}
