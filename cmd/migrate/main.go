// Command migrate moves user identities from the source provider to the
// target platform. Main only wires dependencies; the batch logic lives in
// internal/run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"exodus/internal/audit"
	"exodus/internal/normalize"
	"exodus/internal/ops"
	"exodus/internal/platform/config"
	"exodus/internal/platform/logger"
	"exodus/internal/platform/metrics"
	platformredis "exodus/internal/platform/redis"
	"exodus/internal/run"
	"exodus/internal/schema"
	"exodus/internal/source"
	"exodus/internal/target"
	"exodus/internal/transport"
)

func main() {
	if err := execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func execute() error {
	dryRun := flag.Bool("dry-run", false, "report the would-migrate count without touching the target platform")
	attrSource := flag.String("attributes-source", "", "import custom attributes from this store (document or tree)")
	envFile := flag.String("env-file", ".env", "path to an optional .env file")
	flag.Parse()

	attributeStore, err := source.ParseAttributeStoreKind(*attrSource)
	if err != nil {
		return err
	}

	cfg, err := config.FromEnv(*envFile)
	if err != nil {
		return err
	}

	hashParams, err := config.LoadHashParams(cfg.HashParamsFile)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg.LogDir)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := context.Background()
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	if cfg.OpsAddr != "" {
		opsServer := ops.New(cfg.OpsAddr, registry, log)
		opsServer.Start()
		defer func() { _ = opsServer.Shutdown(ctx) }()
	}

	invoker := transport.New(cfg.RequestTimeout,
		transport.WithLogger(log),
		transport.WithRetryCounter(m.TransportRetries),
	)

	targetClient, err := target.New(cfg.TargetBaseURL, cfg.ProjectID, cfg.ManagementKey, invoker,
		target.WithLogger(log))
	if err != nil {
		return err
	}

	var schemaStore schema.Store = schema.NewInMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect schema cache: %w", err)
		}
		defer redisClient.Close()
		schemaStore = schema.NewRedisStore(redisClient.Client)
	}

	registrar, err := schema.New(targetClient, schemaStore,
		schema.WithLogger(log),
		schema.WithRegistrationCounter(m.SchemaRegistrations),
	)
	if err != nil {
		return err
	}

	provider, err := source.NewHTTPProvider(cfg.SourceDBURL, invoker)
	if err != nil {
		return err
	}

	normalizerOpts := []normalize.Option{normalize.WithLogger(log)}
	if attributeStore != source.AttributeStoreNone {
		normalizerOpts = append(normalizerOpts, normalize.WithAttributeSource(provider, attributeStore))
	}
	normalizer, err := normalize.New(registrar, normalizerOpts...)
	if err != nil {
		return err
	}

	var publisher audit.Publisher = audit.NopPublisher{}
	if len(cfg.KafkaBrokers) != 0 {
		kafka, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return fmt.Errorf("connect audit brokers: %w", err)
		}
		defer kafka.Close()
		publisher = kafka
	}

	runner, err := run.New(runID, provider, normalizer, targetClient, registrar, hashParams,
		run.WithLogger(log),
		run.WithMetrics(m),
		run.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	report, err := runner.Execute(ctx, *dryRun)
	if err != nil {
		return err
	}

	fmt.Print(report.String())
	return nil
}
