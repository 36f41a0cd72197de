package jobs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/dbx"
	"github.com/cloud-gov/tally/internal/offering"
)

// Operations runs administrative requests: synchronous offering syncs in their own transaction, and enqueueing of background jobs.
type Operations struct {
	logger    *slog.Logger
	conn      *pgxpool.Pool
	querier   dbx.Querier
	client    *river.Client[pgx.Tx]
	offerings *offering.Syncer
	pageSize  int
}

func NewOperations(logger *slog.Logger, conn *pgxpool.Pool, q dbx.Querier, client *river.Client[pgx.Tx], offerings *offering.Syncer, pageSize int) *Operations {
	return &Operations{
		logger:    logger.WithGroup("operations"),
		conn:      conn,
		querier:   q,
		client:    client,
		offerings: offerings,
		pageSize:  pageSize,
	}
}

// SyncOffering syncs sku now. Any reconciliation it triggers is committed with the offering and runs in the background.
func (o *Operations) SyncOffering(ctx context.Context, sku string) (offering.Result, error) {
	tx, err := o.conn.Begin(ctx)
	if err != nil {
		return offering.Failed, err
	}
	defer tx.Rollback(ctx)

	res, err := o.offerings.SyncOffering(ctx, dbx.NewStore(o.querier.WithTx(tx)), NewEnqueuer(o.client).WithTx(tx), sku)
	if err != nil {
		return res, err
	}
	if err := tx.Commit(ctx); err != nil {
		return offering.Failed, err
	}
	return res, nil
}

func (o *Operations) SyncAllOfferings(ctx context.Context) (*rivertype.JobInsertResult, error) {
	return o.client.Insert(ctx, SyncAllOfferingsArgs{}, nil)
}

// ReconcileCapacity starts a reconciliation of every subscription of sku from the first page.
func (o *Operations) ReconcileCapacity(ctx context.Context, sku string) error {
	o.logger.DebugContext(ctx, "operations: enqueueing reconciliation", "sku", sku, "limit", o.pageSize)
	return NewEnqueuer(o.client).EnqueueReconcile(ctx, capacity.ReconcileTask{SKU: sku, Revision: uuid.NewString(), Offset: 0, Limit: o.pageSize})
}

func (o *Operations) SyncContract(ctx context.Context, c contract.Contract) error {
	return NewEnqueuer(o.client).EnqueueContractSync(ctx, c)
}

func (o *Operations) Tally(ctx context.Context) (*rivertype.JobInsertResult, error) {
	return o.client.Insert(ctx, TallyArgs{}, nil)
}
