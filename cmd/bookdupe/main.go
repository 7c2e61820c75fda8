// Package main provides bookdupe, a command-line duplicate-book-detection
// tool: a thin urfave/cli wrapper around internal/dedupe, internal/store/
// dbstore, and internal/output, in the teacher's cmd/edition style.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calibretools/bookdupe/internal/config"
	"github.com/calibretools/bookdupe/internal/dedupe"
	"github.com/calibretools/bookdupe/internal/dedupe/exemption"
	"github.com/calibretools/bookdupe/internal/logger"
	"github.com/calibretools/bookdupe/internal/output"
	"github.com/calibretools/bookdupe/internal/store/dbstore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	logger.Setup(logger.Config{
		Level:      "info",
		Format:     logger.FormatJSON,
		TimeFormat: time.RFC3339,
	})
}

func main() {
	app := &cli.App{
		Name:    "bookdupe",
		Usage:   "find and manage duplicate books in a local library",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			scanCommand(),
			exemptCommand(),
			summaryCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Error("bookdupe failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "scan the library and report duplicate groups",
		Flags: scanFlags(),
		Action: func(c *cli.Context) error {
			cfg, store, err := openFromContext(c)
			if err != nil {
				return err
			}
			defer store.Close()

			applyFlagOverrides(cfg, c)
			result, err := runScan(c.Context, cfg, store)
			if err != nil {
				return err
			}
			return output.Write(os.Stdout, output.Format(c.String("format")), result)
		},
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "scan the library and print aggregate statistics",
		Flags: scanFlags(),
		Action: func(c *cli.Context) error {
			cfg, store, err := openFromContext(c)
			if err != nil {
				return err
			}
			defer store.Close()

			applyFlagOverrides(cfg, c)
			result, err := runScan(c.Context, cfg, store)
			if err != nil {
				return err
			}

			engine, err := dedupe.New(store, nil, 0)
			if err != nil {
				return err
			}
			summary := engine.Summary(result.Groups)

			if output.Format(c.String("format")) == output.FormatJSON {
				return output.WriteSummaryJSON(os.Stdout, summary)
			}
			return output.WriteSummary(os.Stdout, summary, 0)
		},
	}
}

func exemptCommand() *cli.Command {
	return &cli.Command{
		Name:      "exempt",
		Usage:     "record two book ids as a known non-duplicate pair",
		ArgsUsage: "<book-id> <book-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Usage: "why these books are not duplicates"},
			&cli.StringFlag{Name: "exemptions", Usage: "path to the exemptions file", Value: "./exemptions.json"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 2 {
				return fmt.Errorf("exempt requires exactly two book ids, got %d", c.Args().Len())
			}
			a, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q: %w", c.Args().Get(0), err)
			}
			b, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q: %w", c.Args().Get(1), err)
			}

			path := c.String("exemptions")
			store, err := exemption.Load(path)
			if err != nil {
				return err
			}
			store.Add(dedupe.BookID(a), dedupe.BookID(b), c.String("reason"), "cli")
			return store.Save()
		},
	}
}

func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: text, json, csv", Value: "text"},
		&cli.StringFlag{Name: "search-type", Usage: "title_author, identifier, binary, or author_only"},
		&cli.StringFlag{Name: "title-match", Usage: "identical, similar, soundex, or fuzzy"},
		&cli.StringFlag{Name: "author-match", Usage: "identical, similar, soundex, fuzzy, or ignore"},
		&cli.StringFlag{Name: "identifier-type", Usage: "identifier scheme to match on in identifier mode"},
	}
}

func openFromContext(c *cli.Context) (*config.Config, *dbstore.Store, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	dbCfg := dbstore.Config{
		Driver:          dbstore.Driver(cfg.Store.Driver),
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	}
	store, err := dbstore.Open(dbCfg, "./bookdupe-fallback.db", logger.Get())
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runScan(ctx context.Context, cfg *config.Config, store *dbstore.Store) (dedupe.Result, error) {
	exemptions := dedupe.NewExemptionMap()
	if cfg.Paths.ExemptionsFile != "" {
		s, err := exemption.Load(cfg.Paths.ExemptionsFile)
		if err != nil {
			return dedupe.Result{}, err
		}
		exemptions = s.ToExemptionMap()
	}

	opts := optionsFromConfig(cfg)
	return dedupe.FindDuplicates(ctx, store, exemptions, opts, nil)
}

// applyFlagOverrides layers explicitly-set scan flags over the loaded
// config, so a one-off `--search-type identifier` doesn't require editing
// the config file.
func applyFlagOverrides(cfg *config.Config, c *cli.Context) {
	if c.IsSet("search-type") {
		cfg.Matching.SearchType = c.String("search-type")
	}
	if c.IsSet("title-match") {
		cfg.Matching.TitleMatch = c.String("title-match")
	}
	if c.IsSet("author-match") {
		cfg.Matching.AuthorMatch = c.String("author-match")
	}
	if c.IsSet("identifier-type") {
		cfg.Matching.IdentifierType = c.String("identifier-type")
	}
}

func optionsFromConfig(cfg *config.Config) dedupe.Options {
	opts := dedupe.DefaultOptions()
	if cfg.Matching.SearchType != "" {
		opts.SearchType = dedupe.SearchType(cfg.Matching.SearchType)
	}
	if cfg.Matching.TitleMatch != "" {
		opts.TitleMatch = dedupe.Policy(cfg.Matching.TitleMatch)
	}
	if cfg.Matching.AuthorMatch != "" {
		opts.AuthorMatch = dedupe.Policy(cfg.Matching.AuthorMatch)
	}
	if cfg.Matching.IdentifierType != "" {
		opts.IdentifierType = cfg.Matching.IdentifierType
	}
	opts.IncludeLanguages = cfg.Matching.IncludeLanguages
	opts.SortByTitle = cfg.Matching.SortByTitle
	opts.Soundex = dedupe.SoundexLengths{
		Title:     cfg.Soundex.TitleLength,
		Author:    cfg.Soundex.AuthorLength,
		Publisher: cfg.Soundex.PublisherLength,
		Series:    cfg.Soundex.SeriesLength,
		Tags:      cfg.Soundex.TagsLength,
	}
	return opts
}
