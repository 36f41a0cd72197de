package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/cloud-gov/tally/internal/dbx"
	"github.com/cloud-gov/tally/internal/offering"
)

type SyncOfferingArgs struct {
	SKU string `json:"sku"`
}

func (SyncOfferingArgs) Kind() string {
	return SyncOfferingKind
}

func (SyncOfferingArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByState: activeStates,
		},
	}
}

// SyncOfferingWorker fetches one offering from the product catalog and stores it. Use [NewSyncOfferingWorker] to create an instance for registration with the River client.
type SyncOfferingWorker struct {
	river.WorkerDefaults[SyncOfferingArgs]
	logger  *slog.Logger
	conn    *pgxpool.Pool
	querier dbx.Querier
	syncer  *offering.Syncer
}

// Work upserts the offering and enqueues capacity reconciliation in the same transaction that completes the job.
func (w *SyncOfferingWorker) Work(ctx context.Context, job *river.Job[SyncOfferingArgs]) error {
	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	store := dbx.NewStore(w.querier.WithTx(tx))
	enq := NewEnqueuer(river.ClientFromContext[pgx.Tx](ctx)).WithTx(tx)

	result, err := w.syncer.SyncOffering(ctx, store, enq, job.Args.SKU)
	if err != nil {
		return cancelIfPermanent(err)
	}
	w.logger.DebugContext(ctx, "sync-offering job: synced", "sku", job.Args.SKU, "result", result)

	jobAfter, err := river.JobCompleteTx[*riverpgxv5.Driver](ctx, tx, job)
	if err != nil {
		return err
	}
	w.logger.Info(fmt.Sprintf("sync-offering job: transitioned job from %q to %q", job.State, jobAfter.State))

	return tx.Commit(ctx)
}

func NewSyncOfferingWorker(l *slog.Logger, c *pgxpool.Pool, q dbx.Querier, s *offering.Syncer) *SyncOfferingWorker {
	return &SyncOfferingWorker{
		logger:  l,
		conn:    c,
		querier: q,
		syncer:  s,
	}
}

type SyncAllOfferingsArgs struct {
	// Periodic is true if the sync was started by the schedule, or false if it was requested manually.
	Periodic bool `json:"periodic"`
}

func (SyncAllOfferingsArgs) Kind() string {
	return SyncAllOfferingsKind
}

func (SyncAllOfferingsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByQueue: true,
			ByState: activeStates,
		},
	}
}

// SyncAllOfferingsWorker fans out one [SyncOfferingArgs] job per stored SKU.
type SyncAllOfferingsWorker struct {
	river.WorkerDefaults[SyncAllOfferingsArgs]
	logger  *slog.Logger
	conn    *pgxpool.Pool
	querier dbx.Querier
	syncer  *offering.Syncer
}

func (w *SyncAllOfferingsWorker) Work(ctx context.Context, job *river.Job[SyncAllOfferingsArgs]) error {
	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	store := dbx.NewStore(w.querier.WithTx(tx))
	enq := NewEnqueuer(river.ClientFromContext[pgx.Tx](ctx)).WithTx(tx)

	w.logger.DebugContext(ctx, "sync-all-offerings job: enqueueing syncs", "periodic", job.Args.Periodic)
	if _, err := w.syncer.SyncAllOfferings(ctx, store, enq); err != nil {
		return err
	}

	jobAfter, err := river.JobCompleteTx[*riverpgxv5.Driver](ctx, tx, job)
	if err != nil {
		return err
	}
	w.logger.Info(fmt.Sprintf("sync-all-offerings job: transitioned job from %q to %q", job.State, jobAfter.State))

	return tx.Commit(ctx)
}

func NewSyncAllOfferingsWorker(l *slog.Logger, c *pgxpool.Pool, q dbx.Querier, s *offering.Syncer) *SyncAllOfferingsWorker {
	return &SyncAllOfferingsWorker{
		logger:  l,
		conn:    c,
		querier: q,
		syncer:  s,
	}
}
