// Package capacity derives subscription capacity from offerings and answers capacity reports.
package capacity

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
)

// ReconcileTask is the continuation message of a paged reconciliation. All pagination state travels in the task. Revision identifies the offering change that started the chain and is carried unchanged into every continuation, so chains of two changes never collapse into one.
type ReconcileTask struct {
	SKU      string `json:"sku"`
	Revision string `json:"revision,omitempty"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

// Denylist reports SKUs that must not report capacity.
type Denylist interface {
	Denied(sku string) bool
}

// Store is the transactional view a reconciliation page runs against. Implementations are bound to one transaction.
type Store interface {
	// GetOffering returns the offering for sku, or an error marked [errs.ErrNotFound].
	GetOffering(ctx context.Context, sku string) (*model.Offering, error)
	// FindSubscriptionsBySKU returns one page of subscriptions ordered by subscription id and start date, with their measurements loaded.
	FindSubscriptionsBySKU(ctx context.Context, sku string, offset, limit int) ([]*model.Subscription, error)
	SaveMeasurements(ctx context.Context, ref model.SubscriptionRef, changes Changes) error
}

// Enqueuer publishes continuation tasks. EnqueueReconcile must not return before the task is durably accepted.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, task ReconcileTask) error
}

// Changes are the measurement writes one subscription needs after reconciliation.
type Changes struct {
	Upserted map[model.MeasurementKey]float64
	Deleted  []model.MeasurementKey
}

func (c Changes) Empty() bool {
	return len(c.Upserted) == 0 && len(c.Deleted) == 0
}

// PageResult describes one reconciled page.
type PageResult struct {
	Subscriptions int
	Changed       int
	Continuation  *ReconcileTask
}

type Reconciler struct {
	logger   *slog.Logger
	denylist Denylist
	metrics  *Metrics
}

func NewReconciler(logger *slog.Logger, denylist Denylist, metrics *Metrics) *Reconciler {
	return &Reconciler{
		logger:   logger.WithGroup("capacity"),
		denylist: denylist,
		metrics:  metrics,
	}
}

// ReconcileForOffering reconciles one page of the subscriptions of task.SKU. When more subscriptions follow the page, the next page is enqueued before returning, so the caller's transaction never commits without its continuation. Reconciling the same page again is a no-op.
func (r *Reconciler) ReconcileForOffering(ctx context.Context, store Store, enq Enqueuer, task ReconcileTask) (PageResult, error) {
	if task.Limit <= 0 || task.Offset < 0 {
		return PageResult{}, errs.Newf("invalid reconcile page offset=%d limit=%d", task.Offset, task.Limit).Mark(errs.ErrValidation)
	}

	offering, err := store.GetOffering(ctx, task.SKU)
	if err != nil && !(errs.Is(err, errs.ErrNotFound) && r.denylist.Denied(task.SKU)) {
		return PageResult{}, err
	}

	r.logger.DebugContext(ctx, "capacity: loading subscription page", "sku", task.SKU, "offset", task.Offset, "limit", task.Limit)
	// One extra row tells whether another page exists, so an exactly full last page does not enqueue an empty continuation.
	subs, err := store.FindSubscriptionsBySKU(ctx, task.SKU, task.Offset, task.Limit+1)
	if err != nil {
		return PageResult{}, fmt.Errorf("finding subscriptions for %s: %w", task.SKU, err)
	}
	more := len(subs) > task.Limit
	if more {
		subs = subs[:task.Limit]
	}

	res := PageResult{Subscriptions: len(subs)}
	for _, sub := range subs {
		changes := r.ReconcileSubscription(ctx, sub, offering)
		if changes.Empty() {
			continue
		}
		if err := store.SaveMeasurements(ctx, sub.Ref(), changes); err != nil {
			return PageResult{}, fmt.Errorf("saving measurements of subscription %s: %w", sub.SubscriptionID, err)
		}
		res.Changed++
	}

	if more {
		next := ReconcileTask{SKU: task.SKU, Revision: task.Revision, Offset: task.Offset + task.Limit, Limit: task.Limit}
		if err := enq.EnqueueReconcile(ctx, next); err != nil {
			return PageResult{}, fmt.Errorf("enqueueing reconcile continuation for %s: %w", task.SKU, err)
		}
		res.Continuation = &next
	}
	return res, nil
}

// ReconcileSubscription brings sub's measurements in line with offering capacity × quantity and returns what changed. Denylisted SKUs lose every measurement, and offering may be nil for them. For metered offerings, measurements the offering does not define are left alone.
func (r *Reconciler) ReconcileSubscription(ctx context.Context, sub *model.Subscription, offering *model.Offering) Changes {
	changes := Changes{Upserted: map[model.MeasurementKey]float64{}}
	existing := sortedKeys(sub.Measurements)

	if r.denylist.Denied(sub.SKU) {
		for _, k := range existing {
			sub.DeleteMeasurement(k)
			changes.Deleted = append(changes.Deleted, k)
			r.metrics.Deleted.Inc()
		}
		return changes
	}

	stale := map[model.MeasurementKey]struct{}{}
	for _, k := range existing {
		stale[k] = struct{}{}
	}

	for _, d := range offering.CapacityDimensions() {
		if d.PerUnit == nil || *d.PerUnit <= 0 {
			continue
		}
		delete(stale, d.Key)
		v := float64(*d.PerUnit) * float64(sub.Quantity)
		old, ok := sub.Measurement(d.Key)
		switch {
		case !ok:
			r.metrics.Created.Inc()
		case old != v:
			r.metrics.Updated.Inc()
		default:
			continue
		}
		sub.SetMeasurement(d.Key, v)
		changes.Upserted[d.Key] = v
	}

	if offering.Metered {
		return changes
	}
	for _, k := range existing {
		if _, ok := stale[k]; !ok {
			continue
		}
		sub.DeleteMeasurement(k)
		changes.Deleted = append(changes.Deleted, k)
		r.metrics.Deleted.Inc()
		r.logger.InfoContext(ctx, "capacity: deleted stale measurement", "subscription_id", sub.SubscriptionID, "sku", sub.SKU, "measurement", k.String())
	}
	return changes
}

func sortedKeys(m map[model.MeasurementKey]float64) []model.MeasurementKey {
	return slices.SortedFunc(maps.Keys(m), func(a, b model.MeasurementKey) int {
		return cmp.Or(cmp.Compare(a.MeasurementType, b.MeasurementType), cmp.Compare(a.MetricID, b.MetricID))
	})
}
