package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/resolvebot/config"
	"github.com/alejandrodnm/resolvebot/internal/adapters/notify"
	"github.com/alejandrodnm/resolvebot/internal/adapters/sources"
	"github.com/alejandrodnm/resolvebot/internal/adapters/storage"
	"github.com/alejandrodnm/resolvebot/internal/ports"
	"github.com/alejandrodnm/resolvebot/internal/resolver"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	marketPath := flag.String("market", "", "path to market spec file (required)")
	table := flag.Bool("table", false, "print fetch-attempt diagnostics table to stderr")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	race := flag.Bool("race-sources", false, "query all sources concurrently, first success wins")
	dryRun := flag.Bool("dry-run", false, "skip the resolution journal")
	flag.Parse()

	if *marketPath == "" {
		slog.Error("missing required -market flag")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	spec, err := config.LoadMarket(*marketPath)
	if err != nil {
		slog.Error("failed to load market spec", "err", err, "path", *marketPath)
		os.Exit(1)
	}

	slog.Info("resolvebot starting",
		"config", *configPath,
		"market", *marketPath,
		"subject", spec.Subject,
		"rule_kind", spec.RuleKind,
		"race_sources", *race || cfg.Resolver.RaceSources,
		"dry_run", *dryRun,
	)

	raceSources := *race || cfg.Resolver.RaceSources
	candles := sources.NewKlinesChain(raceSources, klinesClients(cfg)...)
	games := sources.NewSportsChain(raceSources,
		sources.NewClient("sports", cfg.Sports.Base,
			sources.WithAPIKey("Ocp-Apim-Subscription-Key", cfg.Sports.APIKey),
			sources.WithTimeout(cfg.Timeout()),
		),
	)

	var journal *storage.SQLiteJournal
	if !*dryRun {
		journal, err = storage.NewSQLiteJournal(cfg.Journal.DSN)
		if err != nil {
			slog.Error("failed to open journal", "err", err, "dsn", cfg.Journal.DSN)
			os.Exit(1)
		}
		defer journal.Close()
	}

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := resolver.New(candles, games, journalOrNil(journal), notifier)
	res := r.Resolve(ctx, spec)

	slog.Info("resolvebot finished", "token", res.OutcomeToken, "degraded", res.Degraded)
}

// klinesClients construye la cadena de endpoints de precio en orden de
// preferencia: el proxy primero si está configurado, el primario siempre.
func klinesClients(cfg *config.Config) []*sources.Client {
	var clients []*sources.Client
	if cfg.Price.ProxyBase != "" {
		clients = append(clients, sources.NewClient("proxy", cfg.Price.ProxyBase,
			sources.WithTimeout(cfg.Timeout())))
	}
	clients = append(clients, sources.NewClient("primary", cfg.Price.PrimaryBase,
		sources.WithTimeout(cfg.Timeout())))
	return clients
}

// journalOrNil evita pasar un puntero tipado no nulo como interfaz nula.
func journalOrNil(j *storage.SQLiteJournal) ports.Journal {
	if j == nil {
		return nil
	}
	return j
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
