// Package jobs defines the River jobs that run reconciliation, syncs and the tally, and the client that schedules them.
package jobs

import (
	"github.com/riverqueue/river"

	"github.com/cloud-gov/tally/internal/errs"
)

// Kinds for jobs must be unique strings.
const (
	ReconcileCapacityKind = "reconcile-capacity"
	SyncOfferingKind      = "sync-offering"
	SyncAllOfferingsKind  = "sync-all-offerings"
	SyncContractKind      = "sync-contract"
	TallyKind             = "tally-facts"
)

// cancelIfPermanent stops River from retrying errors that a retry cannot fix. Everything else is returned unchanged and retried with River's backoff.
func cancelIfPermanent(err error) error {
	if errs.Is(err, errs.ErrValidation) || errs.Is(err, errs.ErrUnsupported) {
		return river.JobCancel(err)
	}
	return err
}
