package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/gaurav-prasanna/mdbatch/config"
	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/gaurav-prasanna/mdbatch/core/fetch"
	"github.com/gaurav-prasanna/mdbatch/core/input"
	"github.com/gaurav-prasanna/mdbatch/core/normalize"
	"github.com/gaurav-prasanna/mdbatch/core/notify"
	"github.com/gaurav-prasanna/mdbatch/core/output"
	"github.com/gaurav-prasanna/mdbatch/core/pipeline"
	"github.com/gaurav-prasanna/mdbatch/core/render"
	"github.com/gaurav-prasanna/mdbatch/core/rewrite"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert [url-file]",
	Short: "Convert every URL in a file to Markdown",
	Long: `Convert reads one URL per line and converts each page to a Markdown file in
the output directory, up to --concurrency pages at a time. Without a file
argument you are asked for one.

Failed pages are reported but do not fail the run.

Examples:
  mdbatch convert urls.txt
  mdbatch convert urls.txt --output-dir ./docs --format json --format pdf
  mdbatch convert urls.txt --host https://docs.example.com --concurrency 8`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

// flagKeys maps convert flags to their configuration keys.
var flagKeys = map[string]string{
	"output-dir":           config.KeyOutputDir,
	"images-dir":           config.KeyImagesDir,
	"concurrency":          config.KeyConcurrency,
	"host":                 config.KeyCanonicalHost,
	"format":               config.KeyFormats,
	"timeout":              config.KeyHTTPTimeout,
	"retries":              config.KeyMaxRetries,
	"user-agent":           config.KeyUserAgent,
	"notify":               config.KeyNotify,
	"per-task-image-names": config.KeyPerTaskImageNames,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	d := config.Default()
	f := convertCmd.Flags()
	f.String("output-dir", "", "Output directory (default: current directory)")
	f.String("images-dir", d.ImagesDir, "Images subdirectory under the output directory")
	f.Int("concurrency", d.Concurrency, "Maximum pages converted at once")
	f.String("host", d.CanonicalHost, "Canonical host image links are rewritten to")
	f.StringSlice("format", d.Formats, "Output formats: markdown, json, pdf (repeatable)")
	f.Duration("timeout", d.HTTPTimeout, "HTTP timeout per request")
	f.Int("retries", d.MaxRetries, "Retries for transient HTTP failures (0 disables)")
	f.String("user-agent", "", "User-Agent header sent with requests")
	f.String("notify", d.Notify, "Completion notifier: console, log, none")
	f.Bool("per-task-image-names", false, "Count image names per page instead of per run")
	f.Bool("no-sanitize", false, "Skip HTML sanitizing before Markdown conversion")

	for name, key := range flagKeys {
		_ = viper.BindPFlag(key, f.Lookup(name))
	}
}

// runConvert reads the URL list from the file argument or the prompt and
// converts it.
func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if noSanitize, _ := cmd.Flags().GetBool("no-sanitize"); noSanitize {
		viper.Set(config.KeySanitize, false)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		path, err = input.Prompt(ctx, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	urls, err := input.ReadFile(path)
	if err != nil {
		return err
	}

	_, err = convert(ctx, cfg, urls, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// convert runs one batch over urls through the pool of conversions
// (fetch → images → normalize → render → rewrite → write). Per-page
// failures are reported on errOut once the batch has finished; only setup
// errors are returned.
func convert(ctx context.Context, cfg config.Config, urls []string, out, errOut io.Writer) (core.Summary, error) {
	if len(urls) == 0 {
		fmt.Fprintln(out, "No URLs to convert.")
		return core.Summary{}, nil
	}

	writer, err := output.New(cfg.OutputDir, cfg.ImagesDir)
	if err != nil {
		return core.Summary{}, fmt.Errorf("initializing output writer: %w", err)
	}
	encoders, err := render.Encoders(cfg.Formats)
	if err != nil {
		return core.Summary{}, err
	}
	notifier, err := notify.New(cfg.Notify, out)
	if err != nil {
		return core.Summary{}, err
	}

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = -1
	}
	conv := pipeline.NewConverter(pipeline.Stages{
		Fetcher: fetch.NewWithOptions(fetch.Options{
			Timeout:    cfg.HTTPTimeout,
			UserAgent:  cfg.UserAgent,
			MaxRetries: retries,
		}),
		Normalizer: normalize.New(),
		Renderer:   render.NewMarkdownRenderer(cfg.Sanitize),
		Rewriter:   rewrite.New(cfg.CanonicalHost),
		Writer:     writer,
		Encoders:   encoders,
	}, cfg.PerTaskImageNames)

	log.Debug().
		Str("output_dir", writer.OutputDir).
		Strs("formats", cfg.Formats).
		Int("concurrency", cfg.Concurrency).
		Msg("configuration loaded")

	summary := pipeline.NewPool(cfg.Concurrency, notifier, writer.OutputDir).Run(ctx, urls, conv.Convert)

	for _, r := range summary.Results {
		if !r.OK() {
			fmt.Fprintf(errOut, "  ✗ [%d] %s: %v\n", r.Task.Index+1, r.Task.URL, r.Err)
		}
	}
	return summary, nil
}
