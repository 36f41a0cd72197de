// Package recorder runs the tally over a reading and persists the result: instances with their buckets and monthly totals, then one snapshot per granularity for each account.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/tally"
	"github.com/cloud-gov/tally/internal/usage/reader"
)

// Store is bound to one transaction.
type Store interface {
	// FindInstances batch-loads the instances of org among instanceIDs, keyed by instance id, with buckets, measurements and monthly totals.
	FindInstances(ctx context.Context, orgID string, instanceIDs []string) (map[string]*model.Instance, error)
	// SaveInstance upserts inst and replaces its measurements, monthly totals and buckets.
	SaveInstance(ctx context.Context, inst *model.Instance) error
	// UpsertSnapshots replaces the measurements of each snapshot with the same key.
	UpsertSnapshots(ctx context.Context, snaps []model.TallySnapshot) error
}

// Result summarizes one recorded reading.
type Result struct {
	Instances int
	Skipped   int
	Snapshots int
}

// snapshotGranularities are written on every reading. Snapshots coarser than hourly hold the most recent reading of their period.
var snapshotGranularities = model.Granularities()

// RecordFacts applies every fact in r to its instance and writes the resulting snapshots. Facts without an org or instance id are skipped.
func RecordFacts(ctx context.Context, logger *slog.Logger, store Store, engine *tally.Engine, r reader.Reading) (Result, error) {
	var res Result
	valid := lo.Filter(r.Facts, func(f tally.Facts, _ int) bool {
		if f.OrgID == "" || f.InstanceID == "" {
			logger.WarnContext(ctx, "recorder: skipping facts without identity", "org_id", f.OrgID, "instance_id", f.InstanceID)
			res.Skipped++
			return false
		}
		return true
	})
	byOrg := lo.GroupBy(valid, func(f tally.Facts) string { return f.OrgID })

	for _, org := range slices.Sorted(maps.Keys(byOrg)) {
		// A host reported twice in one reading is tallied once.
		facts := lo.UniqBy(byOrg[org], func(f tally.Facts) string { return f.InstanceID })
		logger.DebugContext(ctx, "recorder: loading instances", "org_id", org, "count", len(facts))
		ids := lo.Map(facts, func(f tally.Facts, _ int) string { return f.InstanceID })
		existing, err := store.FindInstances(ctx, org, ids)
		if err != nil {
			return res, fmt.Errorf("loading instances of org %s: %w", org, err)
		}
		if existing == nil {
			existing = map[string]*model.Instance{}
		}

		calc := tally.NewAccountCalculation(org)
		for _, f := range facts {
			inst, ok := existing[f.InstanceID]
			if !ok {
				inst = model.NewInstance(org, f.InstanceID)
				inst.ID = uuid.New()
				existing[f.InstanceID] = inst
			}
			if err := engine.Apply(inst, f, r.Time, calc); err != nil {
				return res, err
			}
			if err := store.SaveInstance(ctx, inst); err != nil {
				return res, fmt.Errorf("saving instance %s: %w", inst.InstanceID, err)
			}
			res.Instances++
		}

		var snaps []model.TallySnapshot
		for _, g := range snapshotGranularities {
			snaps = append(snaps, calc.Snapshots(g, r.Time)...)
		}
		if len(snaps) == 0 {
			continue
		}
		logger.DebugContext(ctx, "recorder: saving snapshots", "org_id", org, "count", len(snaps))
		if err := store.UpsertSnapshots(ctx, snaps); err != nil {
			return res, fmt.Errorf("saving snapshots of org %s: %w", org, err)
		}
		res.Snapshots += len(snaps)
	}
	return res, nil
}
