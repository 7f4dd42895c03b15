// Package feedd wires the price-feed publisher daemon: config, logging,
// telemetry, the signing session, the failover executor, and the publish
// scheduler.
package feedd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"feedd/chain"
	"feedd/config"
	"feedd/failover"
	"feedd/internal/passphrase"
	"feedd/observability/logging"
	telemetry "feedd/observability/otel"
	"feedd/oracle"
	"feedd/publisher"
	"feedd/wallet"
)

// Main runs the feed publisher daemon using the provided command line flags.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "/etc/feedd/config.yaml", "path to feedd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FEEDD_ENV"))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("feedd", env, logging.Options{FilePath: cfg.LogFile})

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "feedd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	pub, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      otelhttp.NewHandler(router, "feedd"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("metrics listener started", "addr", cfg.ListenAddress)
		errs <- httpServer.ListenAndServe()
	}()

	go runScheduler(stopCtx, pub, cfg.FeedInterval.Duration, logger)

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildPublisher assembles the collaborators from configuration.
func buildPublisher(cfg config.Config, logger *slog.Logger) (*publisher.Publisher, error) {
	store, err := wallet.NewKeystoreStore(cfg.Wallet.Dir)
	if err != nil {
		return nil, fmt.Errorf("open wallet store: %w", err)
	}
	pass := passphrase.NewSource(cfg.Wallet.PassphraseEnv)
	sessions, err := wallet.NewManager(wallet.ManagerConfig{
		Store:       store,
		SessionName: cfg.Wallet.SessionName,
		WalletName:  cfg.Wallet.WalletName,
		Passphrase:  pass.Get,
		SecretHex:   cfg.ResolveSignerSecret(),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build session manager: %w", err)
	}

	executor, err := failover.New(cfg.Endpoints, cfg.AttemptTimeout.Duration, cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("build failover executor: %w", err)
	}

	sources := make([]oracle.Source, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		built, err := buildSource(src)
		if err != nil {
			return nil, fmt.Errorf("build source %s: %w", src.Name, err)
		}
		sources = append(sources, built)
	}
	aggregator, err := oracle.NewAggregator(sources, cfg.Pair.Base, cfg.Pair.Quote,
		cfg.Oracle.MinFeeds, cfg.Oracle.MaxAge.Duration, logger)
	if err != nil {
		return nil, fmt.Errorf("build aggregator: %w", err)
	}

	unit, ok := new(big.Rat).SetString(cfg.Pair.UnitAmount)
	if !ok {
		return nil, fmt.Errorf("invalid unit amount %q", cfg.Pair.UnitAmount)
	}

	return publisher.New(publisher.Config{
		Account:     cfg.FeedAccount,
		ChainID:     cfg.ChainID,
		BaseSymbol:  cfg.Pair.Base,
		QuoteSymbol: cfg.Pair.Quote,
		UnitAmount:  unit,
		Sessions:    sessions,
		Executor:    executor,
		Source:      aggregator,
		Client:      chain.NewClient(),
		Logger:      logger,
	})
}

func buildSource(src config.Source) (oracle.Source, error) {
	switch strings.ToLower(strings.TrimSpace(src.Type)) {
	case "coingecko":
		client := &http.Client{Timeout: 10 * time.Second}
		return oracle.NewCoinGeckoSource(client, src.Name, src.Endpoint, src.Assets), nil
	case "static":
		return oracle.NewStaticSource(src.Name, src.Rate)
	default:
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}

// runScheduler publishes once immediately and then on every interval tick
// until the context is cancelled. Individual cycle failures are logged and
// the loop continues; configuration errors would repeat forever, so they
// too are surfaced only through logs and metrics.
func runScheduler(ctx context.Context, pub *publisher.Publisher, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if txID, err := pub.Publish(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("publish cycle failed", "error", err)
		} else {
			logger.Info("publish cycle complete", "tx", string(txID))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
