package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"

	"github.com/cloud-gov/tally/internal/api"
	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/clock"
	"github.com/cloud-gov/tally/internal/config"
	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/db"
	"github.com/cloud-gov/tally/internal/dbx"
	"github.com/cloud-gov/tally/internal/events"
	"github.com/cloud-gov/tally/internal/jobs"
	"github.com/cloud-gov/tally/internal/migrate"
	"github.com/cloud-gov/tally/internal/offering"
	"github.com/cloud-gov/tally/internal/product"
	"github.com/cloud-gov/tally/internal/report"
	"github.com/cloud-gov/tally/internal/server"
	"github.com/cloud-gov/tally/internal/subscription"
	"github.com/cloud-gov/tally/internal/tally"
	"github.com/cloud-gov/tally/internal/upstream"
	"github.com/cloud-gov/tally/internal/usage/reader"
)

// run sets up dependencies, calls route registration, and starts the server.
// It is separate from main so it can return errors conventionally and main
// can handle them all in one place, and so the [io.Writer] can be passed as a
// dependency, making it possible to mock and test for outputs.
func run(ctx context.Context, out io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	conn, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn, logger); err != nil {
		return err
	}
	q := dbx.NewQuerier(db.New(conn))

	catalog, err := product.Load(cfg.ProductConfig, logger)
	if err != nil {
		return err
	}
	denylist, err := product.LoadDenylist(cfg.ProductDenylist, logger)
	if err != nil {
		return err
	}

	upstreamOpts := upstream.Options{MaxRetries: cfg.UpstreamMaxRetries}
	products, err := upstream.NewProductClient(cfg.ProductAPIURL, logger, upstreamOpts)
	if err != nil {
		return err
	}
	var sources []reader.FactSource
	if cfg.InventoryAPIURL != "" {
		inventory, err := upstream.NewInventoryClient(cfg.InventoryAPIURL, logger, upstreamOpts)
		if err != nil {
			return err
		}
		sources = append(sources, inventory)
	} else {
		logger.Warn("main: no inventory api configured, tally passes will record nothing")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reconciler := capacity.NewReconciler(logger, denylist, capacity.NewMetrics(reg))
	subscriptions := subscription.NewService(logger, reconciler, clock.UTC{}, reg)
	offerings := offering.NewSyncer(logger, products, denylist, cfg.ReconcilePageSize)

	riverc, err := jobs.NewClient(conn, logger, jobs.Schedules{
		Tally:        cfg.TallySchedule,
		OfferingSync: cfg.OfferingSyncSchedule,
	}, jobs.Services{
		Querier:       q,
		Reconciler:    reconciler,
		Offerings:     offerings,
		Subscriptions: subscriptions,
		Translator:    contract.NewTranslator(logger, catalog),
		Reader:        reader.New(clock.UTC{}, sources...),
		Engine:        tally.NewEngine(catalog),
	})
	if err != nil {
		return err
	}
	if err := riverc.Start(ctx); err != nil {
		return fmt.Errorf("starting river client: %w", err)
	}
	defer func() {
		// ctx is already done here, so give workers a fresh context to finish in.
		if err := riverc.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.Error("main: stopping river client", "err", err)
		}
	}()

	var verifier *oidc.IDTokenVerifier
	if cfg.OIDCEnabled() {
		provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
		if err != nil {
			return fmt.Errorf("discovering oidc provider: %w", err)
		}
		verifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	}

	store := dbx.NewStore(q)
	capacityReports := capacity.NewReportBuilder(logger, store, catalog)
	routes := api.Routes(logger, api.Deps{
		Tally:    report.NewBuilder(logger, store, catalog, capacityReports, clock.UTC{}),
		Capacity: capacityReports,
		Lookup:   subscriptions.WithStore(store),
		Admin:    jobs.NewOperations(logger, conn, q, riverc, offerings, cfg.ReconcilePageSize),
		Metrics:  reg,
		Verifier: verifier,
	})

	var wg conc.WaitGroup
	defer wg.Wait()
	if cfg.KafkaEnabled() {
		router, err := events.NewRouter(logger)
		if err != nil {
			return err
		}
		sub, err := events.NewKafkaSubscriber(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, logger)
		if err != nil {
			return err
		}
		events.NewConsumer(logger, jobs.NewEnqueuer(riverc)).Register(router, sub, cfg.OfferingTopic, cfg.ContractTopic)
		wg.Go(func() {
			if err := router.Run(ctx); err != nil {
				logger.Error("main: event router stopped", "err", err)
			}
		})
	}

	srv := server.New(cfg.Host, cfg.Port, routes, logger)
	err = srv.ListenAndServe(ctx)
	cancel()
	return err
}

func main() {
	ctx := context.Background()
	err := run(ctx, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
