// Command ptimport copies a Moses text phrase table (optionally gzipped)
// into the Redis or Postgres layout read by ProbingPT and
// PhraseDictionarySQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/phrasetable"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("in", "", "phrase table file (.gz allowed)")
	target := flag.String("to", "redis", "destination: redis or postgres")
	prefix := flag.String("key-prefix", "pt:", "redis key prefix")
	table := flag.String("table", "phrase_table", "postgres table name")
	numScores := flag.Int("num-features", 4, "scores per entry")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: ptimport -in phrase-table.gz [-to redis|postgres]")
		os.Exit(2)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *input, *target, *prefix, *table, *numScores); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, input, target, prefix, table string, numScores int) error {
	rc, err := ff.OpenModel(input)
	if err != nil {
		return err
	}
	defer rc.Close()

	start := time.Now()
	var n int
	switch target {
	case "redis":
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		n, err = phrasetable.ImportRedis(ctx, client, prefix, numScores, rc)
		if err != nil {
			return err
		}
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		n, err = phrasetable.ImportSQL(ctx, db, table, numScores, rc)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown destination %q", target)
	}
	slog.Info("phrase table imported",
		"input", input,
		"destination", target,
		"entries", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
