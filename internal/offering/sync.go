// Package offering syncs offerings from the upstream product catalog and triggers capacity reconciliation when an offering's capacity changes.
package offering

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
)

type Result string

const (
	FetchedAndSynced  Result = "FETCHED_AND_SYNCED"
	SkippedMatching   Result = "SKIPPED_MATCHING"
	SkippedNotFound   Result = "SKIPPED_NOT_FOUND"
	SkippedDenylisted Result = "SKIPPED_DENYLISTED"
	Failed            Result = "FAILED"
)

// Source fetches offerings from the upstream product catalog. FetchOffering returns an error marked [errs.ErrNotFound] when the catalog has no such SKU.
type Source interface {
	FetchOffering(ctx context.Context, sku string) (*model.Offering, error)
}

type Denylist interface {
	Denied(sku string) bool
}

// Store is bound to one transaction.
type Store interface {
	// GetOffering returns the offering for sku, or an error marked [errs.ErrNotFound].
	GetOffering(ctx context.Context, sku string) (*model.Offering, error)
	UpsertOffering(ctx context.Context, o *model.Offering) error
	ListOfferingSKUs(ctx context.Context) ([]string, error)
}

// Enqueuer publishes work in the caller's transaction.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, task capacity.ReconcileTask) error
	EnqueueOfferingSync(ctx context.Context, sku string) error
}

type Syncer struct {
	logger   *slog.Logger
	source   Source
	denylist Denylist
	pageSize int
}

// NewSyncer returns a Syncer whose reconciliation tasks page through subscriptions pageSize at a time.
func NewSyncer(logger *slog.Logger, source Source, denylist Denylist, pageSize int) *Syncer {
	return &Syncer{
		logger:   logger.WithGroup("offering"),
		source:   source,
		denylist: denylist,
		pageSize: pageSize,
	}
}

// SyncOffering fetches sku upstream and persists it when it differs from the stored copy. A capacity-relevant change enqueues reconciliation of the SKU's subscriptions in the same transaction as the upsert.
func (s *Syncer) SyncOffering(ctx context.Context, store Store, enq Enqueuer, sku string) (Result, error) {
	if s.denylist.Denied(sku) {
		s.logger.InfoContext(ctx, "offering: sku is denylisted, skipping sync", "sku", sku)
		return SkippedDenylisted, nil
	}

	s.logger.DebugContext(ctx, "offering: fetching upstream", "sku", sku)
	upstream, err := s.source.FetchOffering(ctx, sku)
	if errs.Is(err, errs.ErrNotFound) {
		s.logger.WarnContext(ctx, "offering: sku not found upstream", "sku", sku)
		return SkippedNotFound, nil
	}
	if err != nil {
		return Failed, errs.Wrap(err, fmt.Sprintf("fetching offering %s", sku)).Mark(errs.ErrExternalService)
	}
	upstream.SKU = sku
	if err := upstream.Validate(); err != nil {
		return Failed, errs.Wrap(err, "invalid upstream offering").Mark(errs.ErrValidation)
	}

	stored, err := store.GetOffering(ctx, sku)
	if err != nil && !errs.Is(err, errs.ErrNotFound) {
		return Failed, err
	}
	if upstream.Equal(stored) {
		s.logger.DebugContext(ctx, "offering: unchanged", "sku", sku)
		return SkippedMatching, nil
	}

	if err := store.UpsertOffering(ctx, upstream); err != nil {
		return Failed, fmt.Errorf("saving offering %s: %w", sku, err)
	}
	if upstream.CapacityChanged(stored) {
		task := capacity.ReconcileTask{SKU: sku, Revision: uuid.NewString(), Offset: 0, Limit: s.pageSize}
		if err := enq.EnqueueReconcile(ctx, task); err != nil {
			return Failed, fmt.Errorf("enqueueing capacity reconciliation for %s: %w", sku, err)
		}
		s.logger.InfoContext(ctx, "offering: capacity changed, reconciliation enqueued", "sku", sku, "revision", task.Revision)
	}
	return FetchedAndSynced, nil
}

// SyncAllOfferings enqueues one sync per stored SKU and returns how many were enqueued.
func (s *Syncer) SyncAllOfferings(ctx context.Context, store Store, enq Enqueuer) (int, error) {
	skus, err := store.ListOfferingSKUs(ctx)
	if err != nil {
		return 0, err
	}
	for i, sku := range skus {
		if err := enq.EnqueueOfferingSync(ctx, sku); err != nil {
			return i, fmt.Errorf("enqueueing sync of %s: %w", sku, err)
		}
	}
	s.logger.InfoContext(ctx, "offering: enqueued sync of all offerings", "count", len(skus))
	return len(skus), nil
}
