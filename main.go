package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/internal/run"
)

func main() {
	app := &cli.App{
		Name:  "web-image-to-pdf",
		Usage: "download every image on a webpage into a single ordered PDF",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the YAML config file",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "suppress progress output and non-error logs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "download one page's images into a PDF",
				Action: run.FetchAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "page URL to download",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "path to a Netscape-format cookies file",
					},
					&cli.BoolFlag{
						Name:  "bypass",
						Usage: "retry protection challenges with a browser fingerprint",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "concurrent image downloads",
					},
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "per-request timeout in seconds",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "directory for generated PDFs",
					},
					&cli.StringFlag{
						Name:  "related",
						Usage: "related-chapter policy: ask, all, or none",
					},
				},
			},
			{
				Name:   "bulk",
				Usage:  "download a list of page URLs, one PDF each",
				Action: run.BulkAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "file with one URL per line (# comments allowed)",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "path to a Netscape-format cookies file",
					},
					&cli.BoolFlag{
						Name:  "bypass",
						Usage: "retry protection challenges with a browser fingerprint",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "concurrent image downloads",
					},
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "per-request timeout in seconds",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "directory for generated PDFs",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "list recent runs from the local database",
				Action: run.HistoryAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "maximum runs to show",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
