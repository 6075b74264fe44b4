package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/okian/commentsense/internal/adapters/amazon"
	"github.com/okian/commentsense/internal/adapters/http/api"
	"github.com/okian/commentsense/internal/adapters/http/swagger"
	"github.com/okian/commentsense/internal/adapters/lambda"
	"github.com/okian/commentsense/internal/adapters/mq/kafka"
	"github.com/okian/commentsense/internal/adapters/repository"
	"github.com/okian/commentsense/internal/adapters/zendesk"
	app "github.com/okian/commentsense/internal/app"
	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/config"
	"github.com/okian/commentsense/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 90 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

// lambdaRuntimeEnv is set by the Lambda runtime in every function sandbox.
const lambdaRuntimeEnv = "AWS_LAMBDA_RUNTIME_API"

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "commentsense exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	clients, err := amazon.NewClients(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	publisher := kafka.New(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	log.Info(ctx, "outcome publisher ready",
		logger.Bool("kafka", publisher.Enabled()),
		logger.String("topic", cfg.Kafka.Topic),
	)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error(ctx, "closing outcome publisher", logger.Error(err))
		}
	}()

	ledger, err := newLedger(cfg, clients)
	if err != nil {
		return err
	}
	proc, err := newProcessor(cfg, clients, ledger, publisher)
	if err != nil {
		return err
	}

	if runAsLambda(cfg) {
		log.Info(ctx, "starting lambda handler")
		awslambda.Start(lambda.NewHandler(proc).Handle)
		return nil
	}
	return runServer(ctx, cfg, proc, ledger)
}

// runAsLambda reports whether the process should serve Lambda invocations
// instead of HTTP.
func runAsLambda(cfg *config.Config) bool {
	switch cfg.Mode {
	case config.ModeLambda:
		return true
	case config.ModeServer:
		return false
	default:
		return os.Getenv(lambdaRuntimeEnv) != ""
	}
}

// newLedger returns the DynamoDB outcome store, or nil when no table is
// configured.
func newLedger(cfg *config.Config, clients *amazon.Clients) (*repository.DynamoStore, error) {
	if cfg.LedgerTable == "" {
		return nil, nil
	}
	return repository.NewDynamoStore(clients.DynamoDB, cfg.LedgerTable)
}

// newProcessor wires the AWS clients, the ticketing client and the outcome
// sinks into a pipeline.
func newProcessor(cfg *config.Config, clients *amazon.Clients, ledger *repository.DynamoStore, publisher pipeline.OutcomePublisher) (*pipeline.Processor, error) {
	tickets, err := zendesk.NewClient(cfg.Zendesk.Domain, cfg.Zendesk.Email, cfg.Zendesk.APIKey,
		zendesk.WithTimeout(cfg.Zendesk.Timeout),
	)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithTranslator(amazon.NewTranslator(clients.Translate)),
		pipeline.WithNotifier(amazon.NewNotifier(clients.SNS)),
		pipeline.WithAnalyzer(amazon.NewAnalyzer(clients.Comprehend)),
		pipeline.WithTicketUpdater(tickets),
		pipeline.WithPhoneNumber(cfg.PhoneNumber),
		pipeline.WithForcedPriority(cfg.ForcedPriority),
		pipeline.WithStepTimeout(cfg.StepTimeout),
		pipeline.WithLogger(logger.Named("pipeline")),
	}
	if publisher != nil {
		opts = append(opts, pipeline.WithOutcomePublisher(publisher))
	}
	if ledger != nil {
		opts = append(opts, pipeline.WithLedger(ledger))
	}
	return pipeline.New(opts...)
}

// newRouter registers the webhook API and its docs.
func newRouter(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

func runServer(ctx context.Context, cfg *config.Config, proc *pipeline.Processor, ledger *repository.DynamoStore) error {
	log := logger.Get()

	opts := []app.Option{
		app.WithLogger(logger.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
	}
	if ledger != nil {
		opts = append(opts, app.WithOutcomeReader(ledger))
	}
	svc := app.New(proc, opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return serveErr
}

// startServiceMetricsUpdater refreshes queue gauges between requests.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}
