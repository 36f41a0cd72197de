// Package subscription keeps local subscription versions in step with the upstream subscription system and resolves the subscription that usage should be billed against.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/clock"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
)

type SyncResult string

const (
	SyncCreated    SyncResult = "CREATED"
	SyncSplit      SyncResult = "SPLIT"
	SyncUpdated    SyncResult = "UPDATED"
	SyncTerminated SyncResult = "TERMINATED"
	SyncUnchanged  SyncResult = "UNCHANGED"
)

// Store is bound to one transaction.
type Store interface {
	// GetOffering returns the offering for sku, or an error marked [errs.ErrNotFound].
	GetOffering(ctx context.Context, sku string) (*model.Offering, error)
	// FindSubscriptionVersions returns every version of a subscription, most recently started first, with measurements loaded.
	FindSubscriptionVersions(ctx context.Context, subscriptionID string) ([]*model.Subscription, error)
	// InsertSubscription writes sub together with its measurements.
	InsertSubscription(ctx context.Context, sub *model.Subscription) error
	// UpdateSubscription writes every field of sub except its measurements.
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	SaveMeasurements(ctx context.Context, ref model.SubscriptionRef, changes capacity.Changes) error
	// FindSubscriptionsForUsage returns subscriptions matching c that started by c.At and had not ended before c.At minus one hour.
	FindSubscriptionsForUsage(ctx context.Context, c UsageCriteria) ([]*model.Subscription, error)
}

type Service struct {
	logger     *slog.Logger
	reconciler *capacity.Reconciler
	clock      clock.Clock
	ambiguous  prometheus.Counter
}

func NewService(logger *slog.Logger, reconciler *capacity.Reconciler, c clock.Clock, reg prometheus.Registerer) *Service {
	ambiguous := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tally_subscription_lookup_ambiguous_total",
		Help: "Usage lookups that matched more than one active subscription.",
	})
	reg.MustRegister(ambiguous)
	return &Service{
		logger:     logger.WithGroup("subscription"),
		reconciler: reconciler,
		clock:      c,
		ambiguous:  ambiguous,
	}
}

// SyncSubscription applies an upstream subscription. A quantity change on an active version ends it now and starts a new version now, so capacity history stays intact. Upstream end dates end the active version; versions are never deleted. Any quantity or SKU change reconciles the capacity of the version that carries it.
func (s *Service) SyncSubscription(ctx context.Context, store Store, incoming *model.Subscription) (SyncResult, error) {
	if incoming.SubscriptionID == "" {
		return "", errs.New("subscription id is required").Mark(errs.ErrValidation)
	}
	versions, err := store.FindSubscriptionVersions(ctx, incoming.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("finding versions of subscription %s: %w", incoming.SubscriptionID, err)
	}
	now := s.clock.Now()

	current, ok := lo.Find(versions, func(v *model.Subscription) bool { return !v.EndedBy(now) })
	if !ok {
		if existing, ok := lo.Find(versions, func(v *model.Subscription) bool { return v.StartDate.Equal(incoming.StartDate) }); ok {
			return s.updateInPlace(ctx, store, existing, incoming)
		}
		sub := clone(incoming)
		if err := store.InsertSubscription(ctx, sub); err != nil {
			return "", err
		}
		s.logger.DebugContext(ctx, "subscription: created", "subscription_id", sub.SubscriptionID, "sku", sub.SKU)
		return SyncCreated, s.reconcile(ctx, store, sub)
	}

	quantityChanged := incoming.Quantity != current.Quantity
	switch {
	case incoming.EndDate != nil && !sameTime(current.EndDate, incoming.EndDate):
		if quantityChanged && incoming.EndDate.After(now) {
			return s.split(ctx, store, current, incoming, now)
		}
		reconcile := quantityChanged || current.SKU != incoming.SKU
		copyFields(current, incoming)
		current.EndDate = lo.ToPtr(incoming.EndDate.UTC())
		if err := store.UpdateSubscription(ctx, current); err != nil {
			return "", err
		}
		s.logger.InfoContext(ctx, "subscription: terminated", "subscription_id", current.SubscriptionID, "end_date", *current.EndDate)
		if reconcile {
			return SyncTerminated, s.reconcile(ctx, store, current)
		}
		return SyncTerminated, nil

	case quantityChanged:
		return s.split(ctx, store, current, incoming, now)

	default:
		return s.updateInPlace(ctx, store, current, incoming)
	}
}

// split ends current at now and starts a new version at now carrying the incoming quantity and end date.
func (s *Service) split(ctx context.Context, store Store, current, incoming *model.Subscription, now time.Time) (SyncResult, error) {
	current.EndDate = &now
	if err := store.UpdateSubscription(ctx, current); err != nil {
		return "", err
	}
	next := clone(incoming)
	next.StartDate = now
	if next.EndDate != nil {
		next.EndDate = lo.ToPtr(next.EndDate.UTC())
	}
	if next.Measurements == nil {
		next.Measurements = map[model.MeasurementKey]float64{}
	}
	if err := store.InsertSubscription(ctx, next); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "subscription: quantity changed, started new version",
		"subscription_id", next.SubscriptionID, "old_quantity", current.Quantity, "new_quantity", next.Quantity, "start_date", now)
	return SyncSplit, s.reconcile(ctx, store, next)
}

func (s *Service) updateInPlace(ctx context.Context, store Store, current, incoming *model.Subscription) (SyncResult, error) {
	changed := fieldsDiffer(current, incoming) || !sameTime(current.EndDate, incoming.EndDate)
	measurementsChanged := len(incoming.Measurements) > 0 && !maps.Equal(current.Measurements, incoming.Measurements)
	if !changed && !measurementsChanged {
		return SyncUnchanged, nil
	}
	capacityChanged := current.SKU != incoming.SKU || current.Quantity != incoming.Quantity

	if changed {
		copyFields(current, incoming)
		current.EndDate = incoming.EndDate
		if err := store.UpdateSubscription(ctx, current); err != nil {
			return "", err
		}
	}
	if measurementsChanged {
		changes := capacity.Changes{Upserted: maps.Clone(incoming.Measurements)}
		for k := range current.Measurements {
			if _, ok := incoming.Measurements[k]; !ok {
				changes.Deleted = append(changes.Deleted, k)
			}
		}
		if err := store.SaveMeasurements(ctx, current.Ref(), changes); err != nil {
			return "", err
		}
		current.Measurements = maps.Clone(incoming.Measurements)
	}
	if capacityChanged {
		if err := s.reconcile(ctx, store, current); err != nil {
			return "", err
		}
	}
	s.logger.DebugContext(ctx, "subscription: updated", "subscription_id", current.SubscriptionID)
	return SyncUpdated, nil
}

// reconcile derives capacity for sub from its offering. Subscriptions whose offering has not been synced yet are left alone; the offering sync reconciles them later.
func (s *Service) reconcile(ctx context.Context, store Store, sub *model.Subscription) error {
	offering, err := store.GetOffering(ctx, sub.SKU)
	if errs.Is(err, errs.ErrNotFound) {
		s.logger.DebugContext(ctx, "subscription: no offering yet, skipping capacity", "sku", sub.SKU)
		return nil
	}
	if err != nil {
		return err
	}
	changes := s.reconciler.ReconcileSubscription(ctx, sub, offering)
	if changes.Empty() {
		return nil
	}
	return store.SaveMeasurements(ctx, sub.Ref(), changes)
}

func fieldsDiffer(a, b *model.Subscription) bool {
	return a.OrgID != b.OrgID ||
		a.SKU != b.SKU ||
		a.Quantity != b.Quantity ||
		a.SubscriptionNumber != b.SubscriptionNumber ||
		a.BillingProvider != b.BillingProvider ||
		a.BillingProviderID != b.BillingProviderID ||
		a.BillingAccountID != b.BillingAccountID
}

func copyFields(dst, src *model.Subscription) {
	dst.OrgID = src.OrgID
	dst.SKU = src.SKU
	dst.Quantity = src.Quantity
	dst.SubscriptionNumber = src.SubscriptionNumber
	dst.BillingProvider = src.BillingProvider
	dst.BillingProviderID = src.BillingProviderID
	dst.BillingAccountID = src.BillingAccountID
}

func clone(s *model.Subscription) *model.Subscription {
	c := *s
	c.Measurements = maps.Clone(s.Measurements)
	if s.EndDate != nil {
		c.EndDate = lo.ToPtr(*s.EndDate)
	}
	return &c
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
