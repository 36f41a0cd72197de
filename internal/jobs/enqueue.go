package jobs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/contract"
)

// activeStates are the job states that make an identical unique job a duplicate. Completed jobs are left out so the same work can be requested again once it has finished.
var activeStates = []rivertype.JobState{
	rivertype.JobStateAvailable,
	rivertype.JobStatePending,
	rivertype.JobStateRetryable,
	rivertype.JobStateRunning,
	rivertype.JobStateScheduled,
}

// Enqueuer inserts jobs through a River client, inside a transaction when bound to one with [Enqueuer.WithTx].
type Enqueuer struct {
	client *river.Client[pgx.Tx]
	tx     pgx.Tx
}

func NewEnqueuer(client *river.Client[pgx.Tx]) *Enqueuer {
	return &Enqueuer{client: client}
}

// WithTx returns an Enqueuer whose jobs become visible only when tx commits.
func (e *Enqueuer) WithTx(tx pgx.Tx) *Enqueuer {
	return &Enqueuer{client: e.client, tx: tx}
}

func (e *Enqueuer) insert(ctx context.Context, args river.JobArgs) error {
	var err error
	if e.tx != nil {
		_, err = e.client.InsertTx(ctx, e.tx, args, nil)
	} else {
		_, err = e.client.Insert(ctx, args, nil)
	}
	return err
}

func (e *Enqueuer) EnqueueReconcile(ctx context.Context, task capacity.ReconcileTask) error {
	return e.insert(ctx, ReconcileCapacityArgs{ReconcileTask: task})
}

func (e *Enqueuer) EnqueueOfferingSync(ctx context.Context, sku string) error {
	return e.insert(ctx, SyncOfferingArgs{SKU: sku})
}

func (e *Enqueuer) EnqueueContractSync(ctx context.Context, c contract.Contract) error {
	return e.insert(ctx, SyncContractArgs{Contract: c})
}
