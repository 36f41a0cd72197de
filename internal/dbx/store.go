package dbx

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/db"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/offering"
	"github.com/cloud-gov/tally/internal/report"
	"github.com/cloud-gov/tally/internal/subscription"
	"github.com/cloud-gov/tally/internal/usage/recorder"
)

// Store implements the persistence interfaces of the domain packages on top of a [Querier]. Bind it to a transaction with [Querier.WithTx] when writes must be atomic.
type Store struct {
	q Querier
}

func NewStore(q Querier) *Store {
	return &Store{q: q}
}

var (
	_ capacity.Store       = (*Store)(nil)
	_ capacity.ReportStore = (*Store)(nil)
	_ subscription.Store   = (*Store)(nil)
	_ offering.Store       = (*Store)(nil)
	_ recorder.Store       = (*Store)(nil)
	_ report.SnapshotStore = (*Store)(nil)
)

func (s *Store) GetOffering(ctx context.Context, sku string) (*model.Offering, error) {
	row, err := s.q.GetOffering(ctx, sku)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Newf("offering %s not found", sku).Mark(errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting offering %s: %w", sku, err)
	}
	return toOffering(row), nil
}

func (s *Store) UpsertOffering(ctx context.Context, o *model.Offering) error {
	if err := s.q.UpsertOffering(ctx, toUpsertOfferingParams(o)); err != nil {
		return fmt.Errorf("upserting offering %s: %w", o.SKU, err)
	}
	return nil
}

func (s *Store) ListOfferingSKUs(ctx context.Context) ([]string, error) {
	skus, err := s.q.ListOfferingSKUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing offering skus: %w", err)
	}
	return skus, nil
}

func (s *Store) FindSubscriptionsBySKU(ctx context.Context, sku string, offset, limit int) ([]*model.Subscription, error) {
	rows, err := s.q.ListSubscriptionsBySKU(ctx, db.ListSubscriptionsBySKUParams{
		Sku:    sku,
		Offset: int32(offset),
		Limit:  int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions for sku %s: %w", sku, err)
	}
	return s.withMeasurements(ctx, rows)
}

func (s *Store) FindSubscriptionVersions(ctx context.Context, subscriptionID string) ([]*model.Subscription, error) {
	rows, err := s.q.ListSubscriptionVersions(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("listing versions of subscription %s: %w", subscriptionID, err)
	}
	return s.withMeasurements(ctx, rows)
}

// withMeasurements maps rows in order and loads the measurements of every version in one query.
func (s *Store) withMeasurements(ctx context.Context, rows []db.Subscription) ([]*model.Subscription, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	subs := lo.Map(rows, func(r db.Subscription, _ int) *model.Subscription { return toSubscription(r) })
	byVersion := lo.SliceToMap(subs, func(sub *model.Subscription) (versionKey, *model.Subscription) {
		return keyOf(sub.SubscriptionID, sub.StartDate), sub
	})
	ids := lo.Uniq(lo.Map(subs, func(sub *model.Subscription, _ int) string { return sub.SubscriptionID }))

	measurements, err := s.q.ListSubscriptionMeasurements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing subscription measurements: %w", err)
	}
	for _, m := range measurements {
		sub, ok := byVersion[keyOf(m.SubscriptionID, m.StartDate.Time)]
		if !ok {
			continue
		}
		sub.SetMeasurement(model.MeasurementKey{
			MeasurementType: model.HardwareMeasurementType(m.MeasurementType),
			MetricID:        model.MetricID(m.MetricID),
		}, m.Value)
	}
	return subs, nil
}

func (s *Store) InsertSubscription(ctx context.Context, sub *model.Subscription) error {
	err := s.q.InsertSubscription(ctx, db.InsertSubscriptionParams{
		SubscriptionID:     sub.SubscriptionID,
		StartDate:          pgTime(sub.StartDate),
		EndDate:            pgTimePtr(sub.EndDate),
		OrgID:              sub.OrgID,
		Sku:                sub.SKU,
		Quantity:           sub.Quantity,
		SubscriptionNumber: sub.SubscriptionNumber,
		BillingProvider:    string(sub.BillingProvider),
		BillingProviderID:  sub.BillingProviderID,
		BillingAccountID:   sub.BillingAccountID,
	})
	if err != nil {
		return fmt.Errorf("inserting subscription %s: %w", sub.SubscriptionID, err)
	}
	return s.SaveMeasurements(ctx, sub.Ref(), capacity.Changes{Upserted: sub.Measurements})
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	err := s.q.UpdateSubscription(ctx, db.UpdateSubscriptionParams{
		SubscriptionID:     sub.SubscriptionID,
		StartDate:          pgTime(sub.StartDate),
		EndDate:            pgTimePtr(sub.EndDate),
		OrgID:              sub.OrgID,
		Sku:                sub.SKU,
		Quantity:           sub.Quantity,
		SubscriptionNumber: sub.SubscriptionNumber,
		BillingProvider:    string(sub.BillingProvider),
		BillingProviderID:  sub.BillingProviderID,
		BillingAccountID:   sub.BillingAccountID,
	})
	if err != nil {
		return fmt.Errorf("updating subscription %s: %w", sub.SubscriptionID, err)
	}
	return nil
}

func (s *Store) SaveMeasurements(ctx context.Context, ref model.SubscriptionRef, changes capacity.Changes) error {
	start := pgTime(ref.StartDate)
	for k, v := range changes.Upserted {
		err := s.q.UpsertSubscriptionMeasurement(ctx, db.UpsertSubscriptionMeasurementParams{
			SubscriptionID:  ref.SubscriptionID,
			StartDate:       start,
			MeasurementType: string(k.MeasurementType),
			MetricID:        string(k.MetricID),
			Value:           v,
		})
		if err != nil {
			return fmt.Errorf("saving measurement %s of subscription %s: %w", k, ref.SubscriptionID, err)
		}
	}
	for _, k := range changes.Deleted {
		err := s.q.DeleteSubscriptionMeasurement(ctx, db.DeleteSubscriptionMeasurementParams{
			SubscriptionID:  ref.SubscriptionID,
			StartDate:       start,
			MeasurementType: string(k.MeasurementType),
			MetricID:        string(k.MetricID),
		})
		if err != nil {
			return fmt.Errorf("deleting measurement %s of subscription %s: %w", k, ref.SubscriptionID, err)
		}
	}
	return nil
}

func (s *Store) FindSubscriptionsByCriteria(ctx context.Context, c capacity.Criteria) ([]*model.Subscription, error) {
	return s.findForCapacity(ctx, c, false)
}

func (s *Store) FindUnlimitedSubscriptions(ctx context.Context, c capacity.Criteria) ([]*model.Subscription, error) {
	c.MetricID, c.MeasurementType = "", ""
	return s.findForCapacity(ctx, c, true)
}

func (s *Store) findForCapacity(ctx context.Context, c capacity.Criteria, unlimited bool) ([]*model.Subscription, error) {
	rows, err := s.q.ListSubscriptionsForCapacity(ctx, db.ListSubscriptionsForCapacityParams{
		OrgID:                c.OrgID,
		ProductTag:           c.ProductTag,
		Sla:                  filter(c.SLA),
		Usage:                filter(c.Usage),
		BillingProvider:      filter(c.BillingProvider),
		BillingAccountPrefix: filter(c.BillingAccountID),
		Ending:               pgTime(c.Ending),
		Beginning:            pgTime(c.Beginning),
		UnlimitedOnly:        unlimited,
		MetricID:             string(c.MetricID),
		MeasurementType:      string(c.MeasurementType),
	})
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions for capacity: %w", err)
	}
	return s.withMeasurements(ctx, rows)
}

func (s *Store) FindSubscriptionsForUsage(ctx context.Context, c subscription.UsageCriteria) ([]*model.Subscription, error) {
	rows, err := s.q.ListSubscriptionsForUsage(ctx, db.ListSubscriptionsForUsageParams{
		OrgID:                c.OrgID,
		ProductTag:           c.ProductTag,
		Sla:                  filter(c.SLA),
		Usage:                filter(c.Usage),
		BillingProvider:      filter(c.BillingProvider),
		BillingAccountPrefix: filter(c.BillingAccountID),
		At:                   pgTime(c.At),
		WindowStart:          pgTime(c.At.Add(-subscription.LookupWindow)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions for usage: %w", err)
	}
	return s.withMeasurements(ctx, rows)
}

// FindInstances loads hosts with their measurements, monthly totals and buckets. Instances not yet stored are absent from the result.
func (s *Store) FindInstances(ctx context.Context, orgID string, instanceIDs []string) (map[string]*model.Instance, error) {
	hosts, err := s.q.ListHostsByInstanceIDs(ctx, db.ListHostsByInstanceIDsParams{OrgID: orgID, InstanceIds: instanceIDs})
	if err != nil {
		return nil, fmt.Errorf("listing hosts of org %s: %w", orgID, err)
	}
	out := make(map[string]*model.Instance, len(hosts))
	if len(hosts) == 0 {
		return out, nil
	}
	byID := make(map[uuid.UUID]*model.Instance, len(hosts))
	ids := make([]pgtype.UUID, 0, len(hosts))
	for _, h := range hosts {
		inst := toInstance(h)
		out[inst.InstanceID] = inst
		byID[inst.ID] = inst
		ids = append(ids, h.ID)
	}

	measurements, err := s.q.ListHostMeasurements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing host measurements: %w", err)
	}
	for _, m := range measurements {
		if inst, ok := byID[fromPgUUID(m.HostID)]; ok {
			inst.Measurements[m.MetricID] = m.Value
		}
	}

	totals, err := s.q.ListHostMonthlyTotals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing host monthly totals: %w", err)
	}
	for _, m := range totals {
		if inst, ok := byID[fromPgUUID(m.HostID)]; ok {
			inst.MonthlyTotals[model.MonthlyKey{Month: m.Month, MetricID: m.MetricID}] = m.Value
		}
	}

	buckets, err := s.q.ListHostBuckets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing host buckets: %w", err)
	}
	for _, b := range buckets {
		if inst, ok := byID[fromPgUUID(b.HostID)]; ok {
			inst.Buckets = append(inst.Buckets, toBucket(b))
		}
	}
	return out, nil
}

func (s *Store) SaveInstance(ctx context.Context, inst *model.Instance) error {
	if inst.ID == uuid.Nil {
		return model.ErrNoIdentity
	}
	id := pgUUID(inst.ID)
	if err := s.q.UpsertHost(ctx, toUpsertHostParams(inst)); err != nil {
		return fmt.Errorf("upserting host %s: %w", inst.InstanceID, err)
	}

	if err := s.q.DeleteHostMeasurements(ctx, id); err != nil {
		return fmt.Errorf("clearing measurements of host %s: %w", inst.InstanceID, err)
	}
	for metric, v := range inst.Measurements {
		if err := s.q.InsertHostMeasurement(ctx, db.InsertHostMeasurementParams{HostID: id, MetricID: metric, Value: v}); err != nil {
			return fmt.Errorf("inserting measurement %s of host %s: %w", metric, inst.InstanceID, err)
		}
	}

	for k, v := range inst.MonthlyTotals {
		err := s.q.UpsertHostMonthlyTotal(ctx, db.UpsertHostMonthlyTotalParams{HostID: id, Month: k.Month, MetricID: k.MetricID, Value: v})
		if err != nil {
			return fmt.Errorf("saving %s total of host %s: %w", k.Month, inst.InstanceID, err)
		}
	}

	if err := s.q.DeleteHostBuckets(ctx, id); err != nil {
		return fmt.Errorf("clearing buckets of host %s: %w", inst.InstanceID, err)
	}
	for _, b := range inst.Buckets {
		err := s.q.InsertHostBucket(ctx, db.InsertHostBucketParams{
			HostID:           id,
			ProductID:        b.Key.ProductID,
			Sla:              string(b.Key.SLA),
			Usage:            string(b.Key.Usage),
			BillingProvider:  string(b.Key.BillingProvider),
			BillingAccountID: b.Key.BillingAccountID,
			AsHypervisor:     b.Key.AsHypervisor,
			Cores:            int32(b.Cores),
			Sockets:          int32(b.Sockets),
			MeasurementType:  string(b.MeasurementType),
		})
		if err != nil {
			return fmt.Errorf("inserting bucket %s of host %s: %w", b.Key.ProductID, inst.InstanceID, err)
		}
	}
	return nil
}

// UpsertSnapshots keeps the id of an existing snapshot with the same key and replaces its measurements.
func (s *Store) UpsertSnapshots(ctx context.Context, snaps []model.TallySnapshot) error {
	for _, snap := range snaps {
		newID := snap.ID
		if newID == uuid.Nil {
			newID = uuid.New()
		}
		id, err := s.q.UpsertTallySnapshot(ctx, db.UpsertTallySnapshotParams{
			ID:               pgUUID(newID),
			OrgID:            snap.OrgID,
			ProductID:        snap.ProductID,
			Sla:              string(snap.SLA),
			Usage:            string(snap.Usage),
			BillingProvider:  string(snap.BillingProvider),
			BillingAccountID: snap.BillingAccountID,
			Granularity:      string(snap.Granularity),
			SnapshotDate:     pgTime(snap.SnapshotDate),
		})
		if err != nil {
			return fmt.Errorf("upserting %s snapshot for org %s product %s: %w", snap.Granularity, snap.OrgID, snap.ProductID, err)
		}
		if err := s.q.DeleteTallyMeasurements(ctx, id); err != nil {
			return fmt.Errorf("clearing snapshot measurements: %w", err)
		}
		for k, v := range snap.Measurements {
			err := s.q.InsertTallyMeasurement(ctx, db.InsertTallyMeasurementParams{
				SnapshotID:      id,
				MeasurementType: string(k.MeasurementType),
				MetricID:        string(k.MetricID),
				Value:           v,
			})
			if err != nil {
				return fmt.Errorf("inserting snapshot measurement %s: %w", k, err)
			}
		}
	}
	return nil
}

func (s *Store) FindSnapshots(ctx context.Context, q report.SnapshotQuery) ([]model.TallySnapshot, error) {
	rows, err := s.q.ListTallySnapshots(ctx, db.ListTallySnapshotsParams{
		OrgID:            q.OrgID,
		ProductID:        q.ProductID,
		Granularity:      string(q.Granularity),
		Sla:              string(q.SLA),
		Usage:            string(q.Usage),
		BillingProvider:  string(q.BillingProvider),
		BillingAccountID: q.BillingAccountID,
		Beginning:        pgTime(q.Beginning),
		Ending:           pgTime(q.Ending),
	})
	if err != nil {
		return nil, fmt.Errorf("listing tally snapshots: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	snaps := lo.Map(rows, func(r db.TallySnapshot, _ int) model.TallySnapshot { return toTallySnapshot(r) })
	index := make(map[uuid.UUID]int, len(snaps))
	ids := make([]pgtype.UUID, len(rows))
	for i, r := range rows {
		index[snaps[i].ID] = i
		ids[i] = r.ID
	}
	measurements, err := s.q.ListTallyMeasurements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing tally measurements: %w", err)
	}
	for _, m := range measurements {
		if i, ok := index[fromPgUUID(m.SnapshotID)]; ok {
			snaps[i].Measurements[model.MeasurementKey{
				MeasurementType: model.HardwareMeasurementType(m.MeasurementType),
				MetricID:        model.MetricID(m.MetricID),
			}] = m.Value
		}
	}
	return snaps, nil
}
