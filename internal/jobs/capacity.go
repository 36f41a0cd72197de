package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/dbx"
)

// ReconcileCapacityArgs carries one page of a capacity reconciliation. Continuations are new jobs with the next offset.
type ReconcileCapacityArgs struct {
	capacity.ReconcileTask
}

func (ReconcileCapacityArgs) Kind() string {
	return ReconcileCapacityKind
}

func (ReconcileCapacityArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		// A redelivered page must not fan out into two continuation chains. Pages of different offering revisions are distinct args.
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByState: activeStates,
		},
	}
}

// ReconcileCapacityWorker reconciles one page of subscriptions of a SKU. Use [NewReconcileCapacityWorker] to create an instance for registration with the River client.
type ReconcileCapacityWorker struct {
	river.WorkerDefaults[ReconcileCapacityArgs]
	logger     *slog.Logger
	conn       *pgxpool.Pool
	querier    dbx.Querier
	reconciler *capacity.Reconciler
}

// Work writes the page's measurement changes, enqueues the continuation and completes the job in one transaction, so a page is either fully applied with its successor queued or not applied at all.
func (w *ReconcileCapacityWorker) Work(ctx context.Context, job *river.Job[ReconcileCapacityArgs]) error {
	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	store := dbx.NewStore(w.querier.WithTx(tx))
	enq := NewEnqueuer(river.ClientFromContext[pgx.Tx](ctx)).WithTx(tx)

	w.logger.DebugContext(ctx, "reconcile-capacity job: reconciling page", "sku", job.Args.SKU, "revision", job.Args.Revision, "offset", job.Args.Offset, "limit", job.Args.Limit)
	result, err := w.reconciler.ReconcileForOffering(ctx, store, enq, job.Args.ReconcileTask)
	if err != nil {
		return cancelIfPermanent(err)
	}
	w.logger.DebugContext(ctx, "reconcile-capacity job: page done", "sku", job.Args.SKU, "subscriptions", result.Subscriptions, "changed", result.Changed, "continued", result.Continuation != nil)

	jobAfter, err := river.JobCompleteTx[*riverpgxv5.Driver](ctx, tx, job)
	if err != nil {
		return err
	}
	w.logger.Info(fmt.Sprintf("reconcile-capacity job: transitioned job from %q to %q", job.State, jobAfter.State))

	return tx.Commit(ctx)
}

func NewReconcileCapacityWorker(l *slog.Logger, c *pgxpool.Pool, q dbx.Querier, r *capacity.Reconciler) *ReconcileCapacityWorker {
	return &ReconcileCapacityWorker{
		logger:     l,
		conn:       c,
		querier:    q,
		reconciler: r,
	}
}
