package jobs

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/dbx"
	"github.com/cloud-gov/tally/internal/offering"
	"github.com/cloud-gov/tally/internal/subscription"
	"github.com/cloud-gov/tally/internal/tally"
	"github.com/cloud-gov/tally/internal/usage/reader"
)

// Schedules are standard five-field cron specs.
type Schedules struct {
	Tally        string
	OfferingSync string
}

// Services are the domain services the workers delegate to.
type Services struct {
	Querier       dbx.Querier
	Reconciler    *capacity.Reconciler
	Offerings     *offering.Syncer
	Subscriptions *subscription.Service
	Translator    *contract.Translator
	Reader        *reader.Reader
	Engine        *tally.Engine
}

// NewClient creates a new river client with every worker registered and the tally and offering sync scheduled.
func NewClient(conn *pgxpool.Pool, logger *slog.Logger, sched Schedules, svc Services) (*river.Client[pgx.Tx], error) {
	tallySchedule, err := cron.ParseStandard(sched.Tally)
	if err != nil {
		return nil, fmt.Errorf("parsing tally cron spec: %w", err)
	}
	offeringSchedule, err := cron.ParseStandard(sched.OfferingSync)
	if err != nil {
		return nil, fmt.Errorf("parsing offering sync cron spec: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewReconcileCapacityWorker(logger, conn, svc.Querier, svc.Reconciler))
	river.AddWorker(workers, NewSyncOfferingWorker(logger, conn, svc.Querier, svc.Offerings))
	river.AddWorker(workers, NewSyncAllOfferingsWorker(logger, conn, svc.Querier, svc.Offerings))
	river.AddWorker(workers, NewSyncContractWorker(logger, conn, svc.Querier, svc.Translator, svc.Subscriptions))
	river.AddWorker(workers, NewTallyWorker(logger, conn, svc.Querier, svc.Reader, svc.Engine))

	return river.NewClient(riverpgxv5.New(conn), &river.Config{
		JobTimeout: 10 * time.Minute,
		Logger:     logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: runtime.GOMAXPROCS(0)}, // Run as many workers as we have CPU cores available.
		},
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				tallySchedule,
				func() (river.JobArgs, *river.InsertOpts) {
					return TallyArgs{Periodic: true}, nil
				},
				nil,
			),
			river.NewPeriodicJob(
				offeringSchedule,
				func() (river.JobArgs, *river.InsertOpts) {
					return SyncAllOfferingsArgs{Periodic: true}, nil
				},
				nil,
			),
		},
		Workers: workers,
	})
}
