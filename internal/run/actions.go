// Package run holds the CLI actions for the fetch, bulk, and history
// commands.
package run

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/internal/common"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/cookies"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/db"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/downloader"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/fetcher"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/pipeline"
)

func FetchAction(c *cli.Context) error {
	logger := newLogger(c)

	config, err := buildConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	rawURL := c.String("url")
	if rawURL == "" {
		rawURL = c.Args().First()
	}
	if rawURL == "" {
		fmt.Fprintln(os.Stderr, "Error: No URL provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  web-image-to-pdf fetch --url "https://example.com/comic/chapter-1"`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Need help? Run: web-image-to-pdf fetch --help")
		os.Exit(1)
	}

	sanitized, invalid := common.SanitizeAndValidateURLs([]string{rawURL})
	if len(invalid) > 0 {
		fmt.Fprintf(os.Stderr, "Error: URL is malformed (even after cleanup): %s\n", invalid[0])
		os.Exit(1)
	}

	p, database, err := buildPipeline(c, config, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(2)
	}
	if database != nil {
		defer database.Close()
	}

	accept := acceptPolicy(config.Related, c.Bool("quiet"))
	results, runErr := p.RunWithRelated(c.Context, sanitized[0], accept)
	if runErr != nil {
		logger.Error("run failed", "url", sanitized[0], "error", runErr)
		os.Exit(1)
	}

	for _, result := range results {
		printResult(result)
	}
	return nil
}

func BulkAction(c *cli.Context) error {
	logger := newLogger(c)

	config, err := buildConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	path := c.String("file")
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: No URL file provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  web-image-to-pdf bulk --file urls.txt`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "The file holds one URL per line; blank lines and # comments are skipped.")
		os.Exit(1)
	}

	urls, err := readURLFile(path)
	if err != nil {
		logger.Error("failed to read URL file", "path", path, "error", err)
		os.Exit(2)
	}
	if len(urls) == 0 {
		fmt.Fprintf(os.Stderr, "No URLs found in %s\n", path)
		os.Exit(1)
	}

	sanitized, invalid := common.SanitizeAndValidateURLs(urls)
	if len(invalid) > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d URL(s) are malformed (even after cleanup):\n", len(invalid))
		for _, badURL := range invalid {
			fmt.Fprintf(os.Stderr, "  - %s\n", badURL)
		}
		os.Exit(1)
	}

	p, database, err := buildPipeline(c, config, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(2)
	}
	if database != nil {
		defer database.Close()
	}

	// Bulk mode never follows related links; the URL list is the full plan.
	var succeeded, failed int
	for _, u := range sanitized {
		result, runErr := p.Run(c.Context, u)
		if runErr != nil {
			logger.Error("run failed", "url", u, "error", runErr)
			failed++
			continue
		}
		succeeded++
		printResult(result)
	}

	fmt.Printf("Done: %d succeeded, %d failed (of %d)\n", succeeded, failed, len(sanitized))

	if succeeded == 0 {
		os.Exit(2)
	}
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

func HistoryAction(c *cli.Context) error {
	logger := newLogger(c)

	database, err := db.Open()
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	records, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		logger.Error("failed to list runs", "error", err)
		os.Exit(2)
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	for _, record := range records {
		line := fmt.Sprintf("#%d  %s  %s  %s", record.RunID,
			record.CreatedAt.Format("2006-01-02 15:04"), record.Status, record.URL)
		if record.Status == models.StatusSuccess {
			line += fmt.Sprintf("  pages=%d failed=%d  %s", record.PageCount, record.FailedCount, record.PdfPath)
		} else if record.ErrorKind != "" {
			line += fmt.Sprintf("  error=%s", record.ErrorKind)
		}
		fmt.Println(line)
	}
	return nil
}

func newLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// buildConfig loads the YAML config file and overrides it with any flags the
// user set explicitly.
func buildConfig(c *cli.Context) (*models.Config, error) {
	config, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("output-dir") {
		config.OutputDir = c.String("output-dir")
	}
	if c.IsSet("workers") {
		config.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		config.TimeoutSeconds = c.Int("timeout")
	}
	if c.IsSet("bypass") {
		config.Bypass = c.Bool("bypass")
	}
	if c.IsSet("related") {
		switch c.String("related") {
		case models.RelatedAsk, models.RelatedAll, models.RelatedNone:
			config.Related = c.String("related")
		default:
			return nil, fmt.Errorf("invalid --related value %q (want ask, all, or none)", c.String("related"))
		}
	}
	return config, nil
}

func buildPipeline(c *cli.Context, config *models.Config, logger *slog.Logger) (*pipeline.Pipeline, *db.DB, error) {
	opts := fetcher.Options{
		Bypass:  config.Bypass,
		Timeout: config.Timeout(),
	}

	if cookiePath := c.String("cookies"); cookiePath != "" {
		parsed, err := cookies.ParseFile(cookiePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load cookies: %w", err)
		}
		opts.Cookies = parsed
		logger.Info("cookies loaded", "path", cookiePath, "count", len(parsed))
	}

	database, err := db.Open()
	if err != nil {
		// History is best-effort; a run without a database still produces PDFs.
		logger.Warn("failed to open database, run history disabled", "error", err)
		database = nil
	}

	p := pipeline.New(pipeline.Options{
		Fetcher:     fetcher.NewFetcher(opts),
		OutDir:      config.OutputDir,
		Workers:     config.Workers,
		Logger:      logger,
		Database:    database,
		NewProgress: progressFactory(c.Bool("quiet")),
	})
	return p, database, nil
}

// progressFactory builds a per-run progress bar observer. The downloader
// invokes observers from worker goroutines, so updates are serialized here.
func progressFactory(quiet bool) func(total int) downloader.Progress {
	if quiet {
		return nil
	}
	return func(total int) downloader.Progress {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		var mu sync.Mutex
		return func(downloader.Event) {
			mu.Lock()
			defer mu.Unlock()
			_ = bar.Add(1)
		}
	}
}

// acceptPolicy maps the related-link policy to a pipeline Accept callback.
func acceptPolicy(policy string, quiet bool) pipeline.Accept {
	switch policy {
	case models.RelatedAll:
		return func(_ *pipeline.Result, related []models.RelatedLink) []models.RelatedLink {
			return related
		}
	case models.RelatedNone:
		return nil
	}

	// Ask mode prompts once per completed run.
	reader := bufio.NewReader(os.Stdin)
	return func(result *pipeline.Result, related []models.RelatedLink) []models.RelatedLink {
		if !quiet {
			fmt.Fprintf(os.Stderr, "\nFound %d related link(s) after %q:\n", len(related), result.Title)
			for i, link := range related {
				label := link.Label
				if label == "" {
					label = link.URL
				}
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, label)
			}
		}
		fmt.Fprint(os.Stderr, "Download them too? [y/N]: ")

		answer, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return related
		}
		return nil
	}
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

func printResult(result *pipeline.Result) {
	fmt.Printf("%s\n", result.Artifact.FilePath)
	fmt.Printf("  title: %s", result.Title)
	if result.Language != "" {
		fmt.Printf(" (%s)", result.Language)
	}
	fmt.Println()
	fmt.Printf("  pages: %d/%d", result.Artifact.PageCount, result.ImageCount)
	if result.FailedCount > 0 {
		fmt.Printf(" (%d failed)", result.FailedCount)
	}
	fmt.Println()
}
