// Package main is the kbassist CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/kbassist/internal/chat"
	"github.com/hyperjump/kbassist/internal/chunker"
	"github.com/hyperjump/kbassist/internal/config"
	"github.com/hyperjump/kbassist/internal/knowledge"
	"github.com/hyperjump/kbassist/internal/lexical"
	"github.com/hyperjump/kbassist/internal/library"
	"github.com/hyperjump/kbassist/internal/llm"
	"github.com/hyperjump/kbassist/internal/metrics"
	"github.com/hyperjump/kbassist/internal/mirror"
	"github.com/hyperjump/kbassist/internal/retrieval"
	"github.com/hyperjump/kbassist/internal/server"
	"github.com/hyperjump/kbassist/internal/storage"
	"github.com/hyperjump/kbassist/internal/watcher"
	"github.com/hyperjump/kbassist/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kbassist/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists; when neither exists, defaults plus
// environment overrides are used with paths relative to the current
// directory. Returns the config and the path actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		fallback := filepath.Join(cwd, "config.yaml")
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default(cwd)
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "retrieve":
		runRetrieve()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "validate":
		runValidate()
	case "pdf":
		runPDF()
	case "version", "--version", "-v":
		fmt.Printf("kbassist version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds a logger, exiting on failure.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLoggerWithLevel(debugMode, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolved == "" {
		resolved = "(defaults)"
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	if cfg.Admin.Password == config.DefaultAdminPassword {
		logger.Warn("using the default admin password; set ADMIN_PASSWORD")
	}
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	source := components.Base.Load(ctx)
	logger.Info("knowledge base loaded", zap.String("source", source), zap.Int("chunks", components.Base.Len()))

	chain, err := components.NewChain()
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	srv, err := server.NewServer(server.Deps{
		Base:     components.Base,
		Builder:  components.Builder,
		Library:  components.Library,
		Registry: components.Registry,
		Chain:    chain,
		Sessions: chat.NewSessionStore(cfg.Admin.SessionTimeout, nil),
		Metrics:  components.Metrics,
	}, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	if cfg.Watch.Enabled {
		w := watcher.NewWatcher(cfg.Storage.PDFDir, cfg.Upload.AllowedExtensions,
			func(paths []string) {
				if _, err := srv.Rebuild(ctx); err != nil {
					logger.Warn("rebuild after directory change failed", zap.Strings("paths", paths), zap.Error(err))
				}
			},
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// Components holds initialized services.
type Components struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry storage.Registry
	Metrics  *metrics.Metrics
	Mirror   *mirror.Mirror
	Base     *knowledge.Base
	Builder  *knowledge.Builder
	Library  *library.Library
}

func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
}

// Retriever returns a retriever over the live knowledge base.
func (c *Components) Retriever() *retrieval.Retriever {
	return retrieval.New(c.Base, retrieval.Config{
		K:              c.Config.Search.K,
		ScoreThreshold: c.Config.Search.ScoreThreshold,
	})
}

// NewChain builds the LLM client and the question-answering chain.
func (c *Components) NewChain() (*chat.Chain, error) {
	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:      c.Config.LLM.APIKey,
		BaseURL:     c.Config.LLM.BaseURL,
		Model:       c.Config.LLM.Model,
		Temperature: c.Config.LLM.Temperature,
		MaxTokens:   c.Config.LLM.MaxTokens,
		Timeout:     c.Config.LLM.Timeout,
	}, llm.WithLogger(c.Logger))
	if err != nil {
		return nil, err
	}
	return chat.NewChain(c.Retriever(), client, chat.WithLogger(c.Logger), chat.WithMetrics(c.Metrics)), nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry, err := storage.NewSQLiteRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	m := metrics.New()
	var store mirror.Store
	if cfg.Mirror.Enabled {
		minioStore, err := mirror.NewMinioStore(ctx, mirror.MinioConfig{
			Endpoint:  cfg.Mirror.Endpoint,
			Bucket:    cfg.Mirror.Bucket,
			AccessKey: cfg.Mirror.AccessKey,
			SecretKey: cfg.Mirror.SecretKey,
			UseSSL:    cfg.Mirror.UseSSL,
			Region:    cfg.Mirror.Region,
		})
		if err != nil {
			// Local storage keeps working without the mirror.
			logger.Warn("object-store mirror unavailable, continuing with local storage only", zap.Error(err))
		} else {
			store = minioStore
		}
	}
	mir := mirror.New(store, cfg.Mirror.Prefix, mirror.WithLogger(logger))

	layout := knowledge.Layout{Root: cfg.Storage.EmbeddingsDir}
	opts := []knowledge.Option{
		knowledge.WithLogger(logger),
		knowledge.WithMirror(mir),
		knowledge.WithRegistry(registry),
		knowledge.WithMetrics(m),
		knowledge.WithExtensions(cfg.Upload.AllowedExtensions...),
		knowledge.WithParams(lexical.Params{
			MaxFeatures: cfg.Index.MaxFeatures,
			MinDF:       cfg.Index.MinDF,
			MaxDF:       cfg.Index.MaxDF,
			SmallCorpus: cfg.Index.SmallCorpus,
		}),
	}
	splitter := chunker.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, cfg.Chunking.Separator)

	lib := library.New(library.Config{
		PDFDir:            cfg.Storage.PDFDir,
		BackupDir:         cfg.Storage.BackupDir,
		MaxFileSize:       cfg.Upload.MaxFileSizeBytes(),
		MaxFiles:          cfg.Upload.MaxFiles,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}, registry, library.WithLogger(logger))

	return &Components{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  m,
		Mirror:   mir,
		Base:     knowledge.NewBase(layout, opts...),
		Builder:  knowledge.NewBuilder(layout, splitter, opts...),
		Library:  lib,
	}, nil
}

func printUsage() {
	fmt.Println(`kbassist - Retrieval-augmented assistant over a PDF knowledge base

Usage:
  kbassist server [flags]              Start the HTTP server
  kbassist ask [flags] [question]      Ask a question (interactive when no question is given)
  kbassist retrieve [flags] <query>    Show the chunks retrieved for a query
  kbassist ingest [flags]              Rebuild the knowledge base from the PDF directory
  kbassist status [flags]              Show knowledge base status
  kbassist validate [flags]            Check configuration, PDFs and index artifacts
  kbassist pdf <command> [flags]       Manage the PDF library
  kbassist version                     Show version
  kbassist help                        Show this help

PDF Commands:
  upload <file>...     Validate and store PDFs (--description sets their description)
  list                 List stored PDFs
  delete <name>        Delete a PDF (a copy is kept in the backup directory)
  backup               Back up every PDF (--name sets the backup name)
  restore <backup>     Restore PDFs from a backup
  backups              List backups
  info                 Show library statistics

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kbassist/config.yaml, then ./config.yaml, then defaults)
  --debug            Enable debug logging
  --output string    Output format: text, compact or json (default: text)

Ask/Retrieve Flags:
  --server string           Server URL; when set, the request is sent to a running server
  --k int                   Number of chunks to retrieve (retrieve only; default from config)
  --score-threshold float   Minimum similarity score (retrieve only; default from config)

Examples:
  kbassist ingest
  kbassist ask "Can parents attend the ARD meeting by phone?"
  kbassist retrieve --k 5 "initial evaluation timeline"
  kbassist retrieve --server http://localhost:8080 "written consent"
  kbassist pdf upload --description "district policy" handbook.pdf idea_regulations.pdf
  kbassist pdf backup --name before-audit
  kbassist status --output json`)
}
