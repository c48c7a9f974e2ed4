// Command replay runs the confluence engine over an archived bar
// history and prints the signals it would have emitted. Used to
// validate parameter changes against recorded sessions.
//
// Usage:
//
//	go run ./cmd/replay --db=data/bars.db --symbol=NQ --speed=0
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/saistv/corolla-trading-bot/config"
	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/engine"
	"github.com/saistv/corolla-trading-bot/internal/feed/replay"
	"github.com/saistv/corolla-trading-bot/internal/logger"
	"github.com/saistv/corolla-trading-bot/internal/model"
	sqlitestore "github.com/saistv/corolla-trading-bot/internal/store/sqlite"
	"github.com/saistv/corolla-trading-bot/internal/tfbuilder"
)

func main() {
	dbPath := flag.String("db", "data/bars.db", "Path to the SQLite bar archive")
	symbol := flag.String("symbol", "NQ", "Instrument symbol to replay")
	speed := flag.Float64("speed", 0, "Playback speed (0=max, 1=realtime, 100=100x)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	verbose := flag.Bool("v", false, "Log every confluence score")
	flag.Parse()

	logger.Init("replay", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	reader, err := sqlitestore.NewReader(*dbPath)
	if err != nil {
		slog.Error("sqlite open failed", "err", err)
		os.Exit(1)
	}
	defer reader.Close()

	engCfg := config.Load().EngineConfig()
	engCfg.Symbol = *symbol
	eng, err := engine.New(engCfg)
	if err != nil {
		slog.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	signals := 0
	eng.OnSignal = func(sig model.Signal) {
		signals++
		fmt.Printf("%s\n", sig.JSON())
	}
	if *verbose {
		eng.OnScore = func(score model.ConfluenceScore) {
			slog.Info("score",
				"ts", score.TS, "score", score.Score,
				"bias", score.Bias.String(), "actionable", score.Actionable)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	barCh := make(chan bus.Msg, 10000)
	go func() {
		defer close(barCh)
		rep := replay.New(reader, *symbol)
		if err := rep.Run(ctx, []model.Timeframe{model.TF1m}, *fromTS, *speed, barCh); err != nil && err != context.Canceled {
			slog.Error("replay failed", "err", err)
		}
	}()

	builder := tfbuilder.New(engCfg.SlowTF)
	processed := 0
	rejected := 0
	feed := func(tf model.Timeframe, b model.Bar) {
		if err := eng.OnBarClose(tf, b); err != nil {
			rejected++
			slog.Debug("bar rejected", "tf", tf.String(), "ts", b.TS, "err", err)
			return
		}
		processed++
	}

	for m := range barCh {
		if slowBar, done := builder.OnBar(m.Bar); done {
			feed(engCfg.SlowTF, slowBar)
		}
		feed(m.TF, m.Bar)
	}

	slog.Info("replay finished",
		"processed", processed, "rejected", rejected, "signals", signals)
}
