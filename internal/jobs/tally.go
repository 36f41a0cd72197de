package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/cloud-gov/tally/internal/dbx"
	"github.com/cloud-gov/tally/internal/tally"
	"github.com/cloud-gov/tally/internal/usage/reader"
	"github.com/cloud-gov/tally/internal/usage/recorder"
)

type TallyArgs struct {
	// Periodic is true if the tally was started by the hourly schedule, or false if it was requested manually.
	Periodic bool `json:"periodic"`
}

func (TallyArgs) Kind() string {
	return TallyKind
}

func (TallyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		// Unique jobs only exist once for a given set of properties: https://riverqueue.com/docs/unique-jobs
		UniqueOpts: river.UniqueOpts{
			ByQueue: true,
			ByState: activeStates,
		},
	}
}

// TallyWorker reads facts from every inventory source and records instances and snapshots. Use [NewTallyWorker] to create an instance for registration with the River client.
type TallyWorker struct {
	river.WorkerDefaults[TallyArgs]
	logger  *slog.Logger
	conn    *pgxpool.Pool
	rdr     *reader.Reader
	engine  *tally.Engine
	querier dbx.Querier
}

// Work records the facts of every source that answered. Snapshots are keyed by period, so a second run within the hour replaces the first run's hourly and daily values.
//
// Transactional job completion example: https://riverqueue.com/docs/transactional-job-completion
func (w *TallyWorker) Work(ctx context.Context, job *river.Job[TallyArgs]) error {
	w.logger.DebugContext(ctx, "tally job: reading facts")
	reading, err := w.rdr.Read(ctx)
	if err != nil && len(reading.Facts) == 0 {
		return err
	}
	if err != nil {
		// Failed sources are read again on the next scheduled run.
		w.logger.WarnContext(ctx, "tally job: some sources failed", "err", err)
	}

	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// TODO: remember the last hour applied per instance so a manual rerun within the same hour does not add instance-hours to the monthly totals twice.
	w.logger.DebugContext(ctx, "tally job: recording facts", "facts", len(reading.Facts))
	result, err := recorder.RecordFacts(ctx, w.logger, dbx.NewStore(w.querier.WithTx(tx)), w.engine, reading)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "tally job: recorded", "instances", result.Instances, "skipped", result.Skipped, "snapshots", result.Snapshots, "periodic", job.Args.Periodic)

	jobAfter, err := river.JobCompleteTx[*riverpgxv5.Driver](ctx, tx, job)
	if err != nil {
		return err
	}
	w.logger.Info(fmt.Sprintf("tally job: transitioned job from %q to %q", job.State, jobAfter.State))

	return tx.Commit(ctx)
}

// NewTallyWorker stores dependencies required for job execution and returns a new worker.
func NewTallyWorker(l *slog.Logger, c *pgxpool.Pool, q dbx.Querier, r *reader.Reader, e *tally.Engine) *TallyWorker {
	return &TallyWorker{
		logger:  l,
		conn:    c,
		querier: q,
		rdr:     r,
		engine:  e,
	}
}
