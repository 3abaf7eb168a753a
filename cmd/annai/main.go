// Package main is the Annai CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/answer"
	"github.com/hyperjump/annai/internal/config"
	"github.com/hyperjump/annai/internal/corpus"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/orchestrator"
	"github.com/hyperjump/annai/internal/ranking"
	"github.com/hyperjump/annai/internal/server"
	"github.com/hyperjump/annai/internal/session"
	"github.com/hyperjump/annai/internal/transport"
	"github.com/hyperjump/annai/internal/usagelog"
	"github.com/hyperjump/annai/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/annai/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if that
// exists it is used, so that "annai server" from the project dir uses the
// project's config (including debug).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; credentials may come from the real
	// environment.
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
	case "version", "--version", "-v":
		fmt.Printf("annai version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug

	var logger *zap.Logger
	if cfg.LogFile != "" {
		logger, err = utils.NewFileLogger(cfg.LogFile, debugMode)
	} else {
		logger, err = utils.NewLogger(debugMode)
	}
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("corpus_source", cfg.Corpus.Source),
		zap.Bool("debug", debugMode),
	)

	creds := config.CredentialsFromEnv()
	if creds.SlackBotToken == "" {
		logger.Fatal("SLACK_BOT_TOKEN is not set")
	}
	if creds.OpenAIAPIKey == "" {
		logger.Fatal("OPENAI_API_KEY is not set")
	}
	if creds.SlackSigningSecret == "" {
		logger.Warn("SLACK_SIGNING_SECRET is not set; request signatures are not verified")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := buildSource(ctx, cfg, creds, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document source", zap.Error(err))
	}

	sessions, err := session.NewFileStore(
		cfg.Sessions.FilePath,
		session.WithSaveDelay(cfg.Sessions.SaveDelay.Std()),
		session.WithTTL(cfg.Sessions.TTL.Std()),
		session.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer sessions.Close()

	sink, err := usagelog.NewSQLiteSink(cfg.UsageLog.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open usage log", zap.Error(err))
	}
	defer sink.Close()

	generator := answer.NewOpenAIGenerator(
		creds.OpenAIAPIKey,
		cfg.Answer.Model,
		answer.WithOpenAIBaseURL(cfg.Answer.BaseURL),
		answer.WithTemperature(cfg.Answer.Temperature),
		answer.WithOpenAILogger(logger),
	)
	chat := transport.NewSlackClient(creds.SlackBotToken, transport.WithSlackLogger(logger))

	orch := orchestrator.New(
		sessions,
		source,
		ranking.NewRanker(&cfg.Ranking),
		generator,
		sink,
		chat,
		orchestrator.WithLogger(logger),
	)

	srv := server.NewServer(orch, &cfg.Server, creds.SlackSigningSecret, logger)
	go func() {
		if err := srv.Start(); err != nil {
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
	if err := sessions.Flush(); err != nil {
		logger.Warn("session flush failed", zap.Error(err))
	}
}

// buildSource constructs the configured document source. The dir source is
// started so its snapshot tracks filesystem changes for the process
// lifetime.
func buildSource(ctx context.Context, cfg *config.Config, creds config.Credentials, logger *zap.Logger) (corpus.Source, error) {
	switch cfg.Corpus.Source {
	case "dir":
		opts := []corpus.DirOption{corpus.WithDirLogger(logger)}
		if len(cfg.Corpus.Dir.Extensions) > 0 {
			opts = append(opts, corpus.WithDirExtensions(cfg.Corpus.Dir.Extensions))
		}
		src := corpus.NewDirSource(cfg.Corpus.Dir.Path, opts...)
		if err := src.Start(ctx); err != nil {
			return nil, err
		}
		return src, nil
	case "coda":
		if creds.CodaAPIToken == "" {
			return nil, fmt.Errorf("CODA_API_TOKEN is not set")
		}
		return corpus.NewCodaSource(
			cfg.Corpus.Coda.DocID,
			cfg.Corpus.Coda.TableID,
			creds.CodaAPIToken,
			corpus.WithCodaBaseURL(cfg.Corpus.Coda.BaseURL),
			corpus.WithCodaLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}

// buildAskQuery joins all positional args with spaces so multi-word
// questions work the same with or without shell quoting.
func buildAskQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// runAsk does one retrieval (and optionally one generation) from the
// terminal. Useful for tuning ranking weights without a Slack workspace.
func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	generate := fs.Bool("generate", false, "also generate an answer from the top candidates")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: annai ask [flags] <question>\n\n")
		fmt.Fprintf(fs.Output(), "Question is all remaining arguments joined by spaces.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	query := buildAskQuery(fs.Args())
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	creds := config.CredentialsFromEnv()
	source, err := buildSource(ctx, cfg, creds, logger)
	if err != nil {
		fmt.Printf("Failed to initialize document source: %v\n", err)
		os.Exit(1)
	}

	docs, err := source.FetchAll(ctx)
	if err != nil {
		fmt.Printf("Fetch failed: %v\n", err)
		os.Exit(1)
	}

	ranker := ranking.NewRanker(&cfg.Ranking)
	ranked := ranker.Rank(docs, query)
	if len(ranked) == 0 {
		fmt.Println(answer.NoMatchSentinel)
		os.Exit(0)
	}

	fmt.Printf("Top matches for %q:\n", query)
	for i, r := range ranked {
		fmt.Printf("%d. %s (score %.1f", i+1, r.Document.Title, r.Score)
		if r.Document.Status != "" {
			fmt.Printf(", status %s", r.Document.Status)
		}
		fmt.Printf(")\n   %s\n", r.Document.Link)
	}

	if !*generate {
		return
	}
	if creds.OpenAIAPIKey == "" {
		fmt.Println("OPENAI_API_KEY is not set; cannot generate an answer")
		os.Exit(1)
	}
	generator := answer.NewOpenAIGenerator(
		creds.OpenAIAPIKey,
		cfg.Answer.Model,
		answer.WithOpenAIBaseURL(cfg.Answer.BaseURL),
		answer.WithTemperature(cfg.Answer.Temperature),
	)
	reply, err := generator.Generate(ctx, answer.BuildTopLevelPrompt(query, documentsOf(ranked)))
	if err != nil {
		fmt.Printf("Generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%s\n", reply)
}

func documentsOf(ranked []*models.RankedSOP) []*models.SOPDocument {
	docs := make([]*models.SOPDocument, len(ranked))
	for i, r := range ranked {
		docs[i] = r.Document
	}
	return docs
}

func printUsage() {
	fmt.Println(`annai - SOP answer bot for Slack

Usage:
  annai server [-config path] [-debug]   Start the Slack webhook server
  annai ask [-config path] [-generate] <question>
                                         Rank SOPs for a question from the terminal
  annai version                          Print version
  annai help                             Show this help`)
}
