// Command linkfeed prints link events from Kafka to stdout, one JSON object
// per line.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"shortl.local/internal/app/shortlink/events"
	"shortl.local/internal/platform/config"
)

func main() {
	group := flag.String("group", "linkfeed", "kafka consumer group id")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	// Logs go to stderr so stdout stays a clean event stream.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tail := events.NewKafkaTail(cfg.KafkaBrokers, cfg.KafkaTopic, *group, os.Stdout)
	g, gctx := errgroup.WithContext(stopCtx)
	g.Go(func() error {
		return tail.Run(gctx)
	})
	slog.Info("tailing link events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic, "group", *group)

	err = g.Wait()
	if cerr := tail.Close(); cerr != nil {
		slog.Error("kafka reader close failed", "err", cerr)
	}
	if err != nil {
		log.Fatal(err)
	}
}
