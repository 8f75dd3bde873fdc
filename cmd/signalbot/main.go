package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"signalbot-go/internal/api"
	"signalbot-go/internal/config"
	"signalbot-go/internal/engine"
	"signalbot-go/internal/exchange"
	"signalbot-go/internal/execution"
	"signalbot-go/internal/metrics"
	"signalbot-go/internal/paper"
	"signalbot-go/internal/strategy"
	"signalbot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := util.NewLogger("info", "json")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat).With().Str("app", cfg.App.Name).Logger()

	classifier, err := strategy.Build(cfg.Classifier.Mode, strategy.Params{
		ModelPath:         cfg.Classifier.ModelPath,
		MomentumThreshold: cfg.Classifier.MomentumThreshold,
	})
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.Classifier.ModelPath).Msg("load classifier")
	}
	log.Info().Str("classifier", classifier.Name()).Str("model", cfg.Classifier.ModelPath).Msg("model loaded")

	var recorder execution.Recorder
	if cfg.Paper.JournalPath != "" {
		journal, err := paper.NewJSONLRecorder(cfg.Paper.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Paper.JournalPath).Msg("open trade journal")
		}
		defer journal.Close()
		recorder = journal
	}

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		defer srv.Close()
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	feed := exchange.NewFeed(cfg.Source.Provider, cfg.Source.Asset, cfg.Source.Quote, log,
		exchange.WithTimeout(time.Duration(cfg.Source.TimeoutMs)*time.Millisecond),
		exchange.WithMaxStaleness(time.Duration(cfg.Source.MaxStalenessMs)*time.Millisecond),
		exchange.WithCoinGeckoURL(cfg.Source.BaseURL),
		exchange.WithBinanceURL(cfg.Source.StreamURL),
	)
	coord := engine.NewCoordinator(classifier, log,
		engine.WithStartingCash(cfg.Paper.StartingCash),
		engine.WithExecutor(execution.NewExecutor(log, recorder)),
	)
	good := &engine.LastKnownGood{}
	runner := engine.NewRunner(coord, feed, cfg.Interval(), log, good.Observe)

	server := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.NewHandler(coord, feed, good, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return feed.Run(ctx) })
	group.Go(func() error { return runner.Run(ctx) })
	group.Go(func() error {
		log.Info().Str("addr", cfg.API.Addr).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("stopped with error")
		return
	}
	p := coord.Portfolio()
	log.Info().Float64("usd", p.Cash).Int("btc", p.Units).Int("history", coord.HistoryLen()).Msg("shutting down")
}
