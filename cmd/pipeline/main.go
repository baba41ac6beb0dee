// Command pipeline runs one matching and journal cycle against the configured
// database and prints the summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"cash-application-engine/internal/config"
	"cash-application-engine/internal/logging"
	"cash-application-engine/internal/repository"
	service "cash-application-engine/internal/services/reconciliation"

	"github.com/joho/godotenv"
)

type options struct {
	journal    bool
	unmatched  bool
	configFile string
}

// parseOptions loads .env before reading flags, so CONFIG_FILE can come
// from it.
func parseOptions(args []string, envFiles ...string) (options, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	var o options
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.BoolVar(&o.journal, "journal", true, "generate journal postings after matching")
	fs.BoolVar(&o.unmatched, "unmatched", true, "also post payments left unmatched")
	fs.StringVar(&o.configFile, "config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	err := fs.Parse(args)
	return o, err
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// stdout carries the summary
	logger := logging.New(os.Stderr, cfg.Logging)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(db); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := service.NewReconciliationService(db, *cfg, logger)
	summary, runErr := svc.RunPipeline(ctx, opts.journal, opts.unmatched)

	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logger.Error("write summary", "error", err)
		}
	}
	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		os.Exit(1)
	}
}
