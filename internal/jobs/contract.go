package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/dbx"
	"github.com/cloud-gov/tally/internal/subscription"
)

type SyncContractArgs struct {
	Contract contract.Contract `json:"contract"`
}

func (SyncContractArgs) Kind() string {
	return SyncContractKind
}

// SyncContractWorker maps a marketplace contract onto a subscription and syncs it. Use [NewSyncContractWorker] to create an instance for registration with the River client.
type SyncContractWorker struct {
	river.WorkerDefaults[SyncContractArgs]
	logger        *slog.Logger
	conn          *pgxpool.Pool
	querier       dbx.Querier
	translator    *contract.Translator
	subscriptions *subscription.Service
}

// Work runs the subscription sync, which may split the subscription and reconcile its capacity, in the transaction that completes the job. Contracts that cannot be translated are cancelled rather than retried.
func (w *SyncContractWorker) Work(ctx context.Context, job *river.Job[SyncContractArgs]) error {
	sub, err := w.translator.ToSubscription(ctx, job.Args.Contract)
	if err != nil {
		w.logger.WarnContext(ctx, "sync-contract job: contract cannot be mapped", "subscription_id", job.Args.Contract.SubscriptionID, "err", err)
		return cancelIfPermanent(err)
	}

	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := w.subscriptions.SyncSubscription(ctx, dbx.NewStore(w.querier.WithTx(tx)), sub)
	if err != nil {
		return cancelIfPermanent(err)
	}
	w.logger.DebugContext(ctx, "sync-contract job: synced", "subscription_id", sub.SubscriptionID, "result", result)

	jobAfter, err := river.JobCompleteTx[*riverpgxv5.Driver](ctx, tx, job)
	if err != nil {
		return err
	}
	w.logger.Info(fmt.Sprintf("sync-contract job: transitioned job from %q to %q", job.State, jobAfter.State))

	return tx.Commit(ctx)
}

func NewSyncContractWorker(l *slog.Logger, c *pgxpool.Pool, q dbx.Querier, t *contract.Translator, s *subscription.Service) *SyncContractWorker {
	return &SyncContractWorker{
		logger:        l,
		conn:          c,
		querier:       q,
		translator:    t,
		subscriptions: s,
	}
}
