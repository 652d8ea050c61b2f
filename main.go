package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/serisow/docqa/config"
	"github.com/serisow/docqa/logging"
	"github.com/serisow/docqa/orchestrator"
	"github.com/serisow/docqa/server"
	"github.com/urfave/cli/v2"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docqa",
		Usage: "Document ingestion and grounded question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Store a document and run ingestion on it",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about an ingested document",
				ArgsUsage: "<doc-id> <question>",
				Action:    askCommand,
			},
		},
	}
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}
}

func setup(c *cli.Context) error {
	cfg = config.Load()

	levelStr := c.String("log-level")
	if levelStr == "" {
		levelStr = "info"
		if cfg.Environment != "production" {
			levelStr = "debug"
		}
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	fileHandler, err := logging.NewDailyFileHandler(cfg.LogDir, "docqa", &slog.HandlerOptions{Level: level})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = slog.New(fileHandler)
	slog.SetDefault(logger)
	return nil
}

func serveCommand(c *cli.Context) error {
	svc, err := bootstrap(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	dispatcher, err := orchestrator.NewDispatcher(svc.orchestrator, cfg.IngestWorkers, logger)
	if err != nil {
		return fmt.Errorf("failed to create ingestion dispatcher: %w", err)
	}
	defer dispatcher.Close(30 * time.Second)

	r := server.SetupRoutes(server.Dependencies{
		Documents:  svc.orchestrator,
		Dispatcher: dispatcher,
		Narrator:   svc.narrator,
		StorageDir: cfg.StorageDir,
		Logger:     logger,
	})
	n := server.SetupNegroni(r)

	serverCfg := server.Config{
		Domains:      cfg.Domains,
		CertCacheDir: cfg.CertCacheDir,
		HTTPPort:     cfg.HTTPPort,
		HTTPSPort:    cfg.HTTPSPort,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	logger.Info("Starting server",
		slog.String("environment", cfg.Environment),
		slog.String("store_driver", cfg.StoreDriver),
		slog.Int("ingest_workers", cfg.IngestWorkers))

	if cfg.Environment == "production" {
		server.ServeProduction(serverCfg, n)
	} else {
		srv := &http.Server{
			Addr:         ":" + serverCfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  serverCfg.IdleTimeout,
			ReadTimeout:  serverCfg.ReadTimeout,
			WriteTimeout: serverCfg.WriteTimeout,
		}
		server.ServeDevelopment(srv)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	svc, err := bootstrap(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	doc, err := svc.orchestrator.CreateDocument(ctx, filepath.Base(path), content)
	if err != nil {
		return err
	}

	runErr := svc.orchestrator.Ingest(ctx, doc.ID)

	// Print whatever was committed, including after a partial run.
	if stored, err := svc.orchestrator.Document(ctx, doc.ID); err == nil {
		doc = stored
	}
	if err := printJSON(c, doc); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("ingestion of document %d failed: %w", doc.ID, runErr)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("expected a document id and a question")
	}
	documentID, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", c.Args().First(), err)
	}
	question := strings.Join(c.Args().Tail(), " ")
	if strings.TrimSpace(question) == "" {
		return orchestrator.ErrEmptyQuestion
	}

	svc, err := bootstrap(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	interaction, err := svc.orchestrator.Ask(context.Background(), documentID, question)
	if errors.Is(err, orchestrator.ErrTextNotReady) {
		return fmt.Errorf("document %d has no extracted text yet; run ingest first", documentID)
	}
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, interaction.Answer)
	for _, quote := range interaction.Quotes {
		fmt.Fprintf(out, "  > %s\n", quote)
	}
	if interaction.HighlightPath != nil {
		fmt.Fprintf(out, "highlighted: %s\n", *interaction.HighlightPath)
	}
	return nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
