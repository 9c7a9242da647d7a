package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	chainconfig "stakevault/config"
	"stakevault/core"
	"stakevault/core/events"
	nativecommon "stakevault/native/common"
	"stakevault/observability/logging"
	telemetry "stakevault/observability/otel"
	"stakevault/services/vault/auth"
	"stakevault/services/vault/httpapi"
	"stakevault/services/vault/indexer"
	vaultserver "stakevault/services/vault/server"
	"stakevault/services/vaultd/config"
	"stakevault/storage"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/vaultd/config.yaml", "path to vaultd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("VAULTD_ENV"))
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logOpts := logging.Options{Service: "vaultd", Env: env, Level: cfg.Log.Level}
	if cfg.Log.File != "" {
		logOpts.File = &logging.FileOptions{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   true,
		}
	}
	logger := logging.SetupWithOptions(logOpts)
	logger.Info("configuration loaded", slog.Any("config", cfg.Sanitized()))

	chain, err := chainconfig.Load(cfg.Chain)
	if err != nil {
		logger.Error("load chain config", slog.Any("error", err))
		os.Exit(1)
	}

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "vaultd",
		ServiceVersion: version,
		Environment:    env,
		ChainID:        chain.ChainID,
		Endpoint:       otlpEndpoint,
		Insecure:       insecure,
		Headers:        telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:        otlpEndpoint != "",
		Traces:         otlpEndpoint != "",
		SampleRatio:    telemetry.ParseSampleRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG")),
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := run(cfg, chain, logger, otlpEndpoint != ""); err != nil {
		logger.Error("vaultd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, chain *chainconfig.Config, logger *slog.Logger, tracing bool) error {
	db, err := openDatabase(chain)
	if err != nil {
		return err
	}
	defer db.Close()

	var emitters events.Multi
	var history httpapi.EventHistory
	if cfg.Indexer.Driver != config.IndexerDisabled {
		idx, err := openIndexer(cfg.Indexer, logger)
		if err != nil {
			return err
		}
		emitters = append(emitters, idx)
		history = idx
		logger.Info("event indexer enabled",
			slog.String("driver", cfg.Indexer.Driver),
			logging.MaskField("dsn", cfg.Indexer.DSN))
	}

	rewards, err := chain.RewardsPerBlockAmount()
	if err != nil {
		return err
	}
	balances, err := chain.GenesisBalances()
	if err != nil {
		return err
	}
	processor, err := core.NewStateProcessor(db, core.Options{
		Params:          chain.StakingParams(),
		CodeID:          chain.VaultCodeID,
		RewardsPerBlock: rewards,
		Validators:      chain.GenesisValidators(),
		Balances:        balances,
		Pauses:          nativecommon.NewStaticPauses(chain.PausedModules...),
		Emitter:         emitters,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}

	authn, err := auth.New(auth.Config{
		HMACSecret: cfg.Auth.HMACSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ClockSkew:  cfg.Auth.ClockSkew,
		TokenTTL:   cfg.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	serveErr := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.GRPC.ListenAddress != "" {
		options, err := vaultserver.ServerOptions(vaultserver.Config{
			TLSCertFile:     cfg.GRPC.TLS.CertPath,
			TLSKeyFile:      cfg.GRPC.TLS.KeyPath,
			AllowInsecure:   cfg.GRPC.TLS.AllowInsecure,
			RateLimitPerMin: int(cfg.HTTP.RequestsPerMinute),
			Authenticator:   authn,
			Logger:          logger,
			Tracing:         tracing,
		})
		if err != nil {
			return fmt.Errorf("configure grpc: %w", err)
		}
		listener, err := net.Listen("tcp", cfg.GRPC.ListenAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.GRPC.ListenAddress, err)
		}
		grpcServer = grpc.NewServer(options...)
		vaultserver.Register(grpcServer, vaultserver.New(processor, logger))
		go func() {
			logger.Info("grpc listening", slog.String("addr", cfg.GRPC.ListenAddress))
			serveErr <- grpcServer.Serve(listener)
		}()
	}

	var httpServer *http.Server
	if cfg.HTTP.ListenAddress != "" {
		handler, err := httpapi.New(httpapi.Config{
			Processor:     processor,
			Authenticator: authn,
			RateLimiter:   httpapi.NewRateLimiter(httpapi.RateLimit{RequestsPerMinute: cfg.HTTP.RequestsPerMinute, Burst: cfg.HTTP.Burst}),
			History:       history,
			Logger:        logger,
			Metrics:       cfg.HTTP.Metrics,
		})
		if err != nil {
			return err
		}
		httpServer = &http.Server{
			Addr:              cfg.HTTP.ListenAddress,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http listening", slog.String("addr", cfg.HTTP.ListenAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	go produceBlocks(ctx, processor, time.Duration(chain.BlockIntervalSecs)*time.Second, logger)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if grpcServer != nil {
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("forcing grpc server stop")
			grpcServer.Stop()
		}
	}
	return runErr
}

// produceBlocks advances the ledger clock until ctx is cancelled.
func produceBlocks(ctx context.Context, processor *core.StateProcessor, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			block, err := processor.BeginBlock(now.Unix())
			if err != nil {
				logger.Error("begin block failed", slog.Any("error", err))
				continue
			}
			logger.Debug("block produced",
				slog.Uint64("height", block.Height),
				slog.Int("matured", block.Matured),
				slog.String("rewards", block.Rewards))
		}
	}
}

func openDatabase(chain *chainconfig.Config) (storage.Database, error) {
	switch chain.DBBackend {
	case chainconfig.BackendMemory:
		return storage.NewMemDB(), nil
	case chainconfig.BackendBolt:
		if err := os.MkdirAll(chain.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(chain.DatabasePath())
	default:
		return storage.NewLevelDB(chain.DatabasePath())
	}
}

func openIndexer(cfg config.IndexerConfig, logger *slog.Logger) (*indexer.Indexer, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.IndexerPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open indexer: %w", err)
	}
	return indexer.New(db, logger)
}
