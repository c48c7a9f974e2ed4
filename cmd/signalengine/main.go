// Command signalengine runs the full pipeline: consume closed 1m bars
// from the Redis feed stream, resample 15m, run the confluence engine,
// and publish snapshots, scores and signals to Redis, SQLite and the
// WebSocket gateway.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/saistv/corolla-trading-bot/config"
	"github.com/saistv/corolla-trading-bot/internal/barstore"
	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/engine"
	"github.com/saistv/corolla-trading-bot/internal/feed/replay"
	"github.com/saistv/corolla-trading-bot/internal/gateway"
	"github.com/saistv/corolla-trading-bot/internal/logger"
	"github.com/saistv/corolla-trading-bot/internal/markethours"
	"github.com/saistv/corolla-trading-bot/internal/metrics"
	"github.com/saistv/corolla-trading-bot/internal/model"
	"github.com/saistv/corolla-trading-bot/internal/notification"
	"github.com/saistv/corolla-trading-bot/internal/ringbuf"
	"github.com/saistv/corolla-trading-bot/internal/signaltimer"
	redisstore "github.com/saistv/corolla-trading-bot/internal/store/redis"
	sqlitestore "github.com/saistv/corolla-trading-bot/internal/store/sqlite"
	"github.com/saistv/corolla-trading-bot/internal/tfbuilder"
)

func main() {
	cfg := config.Load()
	logger.Init("signalengine", logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting", "symbol", cfg.Symbol, "demo", cfg.DemoMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	defer func() {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		metricsSrv.Stop(shutCtx)
	}()

	// ---- SQLite (bar archive + signal journal) ----
	os.MkdirAll("data", 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		slog.Error("sqlite init failed", "err", err)
		os.Exit(1)
	}
	defer sqlWriter.Close()
	sqlWriter.OnCommit = func(d time.Duration) {
		prom.SQLiteCommitDur.Observe(d.Seconds())
	}

	sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		slog.Error("sqlite reader init failed", "err", err)
		os.Exit(1)
	}
	defer sqlReader.Close()

	// ---- Redis output path: writer behind a circuit breaker ----
	var pub *redisstore.BufferedWriter
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Warn("redis init failed, continuing without redis output", "err", err)
	} else {
		cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
		cb.OnStateChange = func(from, to redisstore.State) {
			prom.RedisCircuitBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.RedisCircuitBreakerTrips.Inc()
			}
		}
		redisWriter.OnWrite = func(d time.Duration) {
			prom.RedisWriteDur.Observe(d.Seconds())
		}
		pub = redisstore.NewBufferedWriter(ctx, redisWriter, cb, 10000)
		pub.OnBuffer = func() {
			prom.RedisBufferedWrites.Inc()
		}
		defer redisWriter.Close()
	}

	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Notifier ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.WebhookURL != "" && !cfg.DemoMode {
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
	}

	// ---- Engine ----
	engCfg := cfg.EngineConfig()
	eng, err := engine.New(engCfg)
	if err != nil {
		slog.Error("engine init failed", "err", err)
		os.Exit(1)
	}
	health.SetEngineOK(true)

	// lastClose is written and read only on the engine goroutine; the
	// OnSignal hook runs synchronously inside OnBarClose.
	var lastClose float64

	eng.OnSnapshot = func(snap model.IndicatorSnapshot) {
		prom.BarsTotal.WithLabelValues(snap.TF.String()).Inc()
		if pub != nil {
			pub.PublishSnapshot(snap)
		}
	}
	eng.OnScore = func(score model.ConfluenceScore) {
		prom.ScoresTotal.Inc()
		prom.ConfluenceScore.Set(score.Score)
		if pub != nil {
			pub.PublishScore(score)
		}
	}
	eng.OnTimerEvent = func(ev signaltimer.Event) {
		prom.WindowEvents.WithLabelValues(ev.String()).Inc()
	}
	eng.OnRetransmit = func(tf model.Timeframe) {
		prom.BarsRetransmit.Inc()
	}
	eng.OnSignal = func(sig model.Signal) {
		winCtx := logger.WithWindowID(context.Background(), sig.WindowID)
		slog.Info("signal emitted", append([]any{
			"direction", sig.Direction.String(),
			"strength", sig.Strength,
			"close", lastClose,
		}, logger.WithWindow(winCtx)...)...)

		prom.SignalsTotal.WithLabelValues(sig.Direction.String()).Inc()
		prom.SignalStrength.Observe(sig.Strength)
		if err := sqlWriter.RecordSignal(sig); err != nil {
			slog.Error("signal journal write failed", append([]any{"err", err}, logger.WithWindow(winCtx)...)...)
		}
		if pub != nil {
			pub.PublishSignal(sig)
		}
		alertCtx, alertCancel := context.WithTimeout(winCtx, 10*time.Second)
		defer alertCancel()
		if err := notifier.Send(alertCtx, notification.SignalAlert(&sig, lastClose)); err != nil {
			slog.Warn("signal alert delivery failed", append([]any{"err", err}, logger.WithWindow(winCtx)...)...)
		}
	}

	// ---- Fan-out of closed bars to the archive writers ----
	fanout := bus.New(5000)
	fanout.OnDrop = func(idx int) {
		prom.FanoutDrops.WithLabelValues(strconv.Itoa(idx)).Inc()
	}
	sqliteCh := fanout.Subscribe()
	var redisCh <-chan bus.Msg
	if redisWriter != nil {
		redisCh = fanout.Subscribe()
	}
	archiveIn := make(chan bus.Msg, 5000)
	go fanout.Run(ctx, archiveIn)
	go sqlWriter.Run(ctx, sqliteCh)
	if redisCh != nil {
		go redisWriter.Run(ctx, redisCh)
	}

	// ---- Bar ingestion into the engine ----
	ring := ringbuf.New(8192)
	builder := tfbuilder.New(engCfg.SlowTF)
	builder.OnStaleBar = func() {
		prom.StaleBarsDropped.Inc()
	}

	feedCh := make(chan bus.Msg, 5000)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-feedCh:
				if !ok {
					return
				}
				if !ring.Push(m.TF, m.Bar) {
					prom.RingBufOverflow.Inc()
				}
			}
		}
	}()

	processBar := func(tf model.Timeframe, b model.Bar) {
		start := time.Now()
		lastClose = b.Close
		if err := eng.OnBarClose(tf, b); err != nil {
			reason := "conflict"
			if errors.Is(err, barstore.ErrOutOfOrder) {
				reason = "out_of_order"
			}
			prom.BarsRejected.WithLabelValues(reason).Inc()
			slog.Warn("bar rejected", "tf", tf.String(), "ts", b.TS, "err", err)
			return
		}
		prom.BarComputeDur.Observe(time.Since(start).Seconds())
		select {
		case archiveIn <- bus.Msg{TF: tf, Bar: b}:
		default:
		}
	}

	go func() {
		for {
			item, ok := ring.Pop()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Millisecond):
				}
				continue
			}
			health.SetLastBarTime(item.Bar.TS)

			// A completed 15m bucket closes before the 1m bar that
			// sealed it is scored, so the fast pass sees the fresh
			// higher-timeframe snapshot.
			if item.TF == engCfg.FastTF {
				if slowBar, done := builder.OnBar(item.Bar); done {
					processBar(engCfg.SlowTF, slowBar)
				}
			}
			processBar(item.TF, item.Bar)
		}
	}()

	// ---- Session-state tracking ----
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				open := markethours.IsSessionOpen(time.Now())
				health.SetSessionOpen(open)
				if open {
					prom.MarketState.Set(1)
				} else {
					prom.MarketState.Set(0)
				}
			}
		}
	}()

	// ---- WebSocket gateway ----
	if redisWriter != nil {
		hub := gateway.NewHub(redisWriter.Client(), cfg.Symbol)
		go hub.Run(ctx)
		go hub.StartStatusBroadcast(ctx, time.Now(), 5*time.Second)

		gwSrv := gateway.NewServer(hub, sqlReader, cfg.DemoMode)
		mux := http.NewServeMux()
		gwSrv.RegisterRoutes(mux)
		httpSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
		go func() {
			slog.Info("gateway listening", "addr", cfg.GatewayAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("gateway server failed", "err", err)
			}
		}()
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			httpSrv.Shutdown(shutCtx)
		}()
	}

	// ---- Feed: live consumer or demo replay ----
	if cfg.DemoMode {
		slog.Info("demo mode: replaying archived bars", "speed", cfg.ReplaySpeed)
		rep := replay.New(sqlReader, cfg.Symbol)
		go func() {
			defer close(feedCh)
			if err := rep.Run(ctx, []model.Timeframe{model.TF1m}, 0, cfg.ReplaySpeed, feedCh); err != nil && err != context.Canceled {
				slog.Error("replay failed", "err", err)
			}
			cancel()
		}()
	} else {
		reader, err := redisstore.NewReader(redisstore.ReaderConfig{
			Addr:          cfg.RedisAddr,
			Password:      cfg.RedisPassword,
			DB:            cfg.RedisDB,
			ConsumerGroup: cfg.ConsumerGroup,
			ConsumerName:  cfg.ConsumerName,
		})
		if err != nil {
			slog.Error("feed reader init failed", "err", err)
			os.Exit(1)
		}
		defer reader.Close()

		if err := reader.EnsureConsumerGroup(ctx, cfg.BarStream); err != nil {
			slog.Error("consumer group setup failed", "err", err)
			os.Exit(1)
		}
		if err := reader.RecoverPending(ctx, cfg.BarStream, model.TF1m, feedCh); err != nil {
			slog.Warn("pending recovery failed", "err", err)
		}
		health.SetFeedConnected(true)

		go func() {
			defer close(feedCh)
			if err := reader.ConsumeBars(ctx, cfg.BarStream, model.TF1m, feedCh); err != nil && err != context.Canceled {
				slog.Error("feed consumer failed", "err", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down")
	// Give the archive writers a moment to flush their batches.
	time.Sleep(500 * time.Millisecond)
}
