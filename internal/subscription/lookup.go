package subscription

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
)

// UsageCriteria identify the subscription a unit of usage is billed against.
type UsageCriteria struct {
	OrgID           string
	ProductTag      string
	SLA             model.ServiceLevel
	Usage           model.Usage
	BillingProvider model.BillingProvider
	// BillingAccountID may hold ";"-separated segments, such as an Azure tenant and subscription.
	BillingAccountID string
	At               time.Time
}

// LookupWindow is how long after its end date a subscription is still considered for usage, so late usage is reported as recently terminated.
const LookupWindow = time.Hour

// LookupForUsage returns the subscription active at c.At. Subscriptions that ended within the hour before c.At are reported as recently terminated rather than not found. When several subscriptions are active, a multipart billing account is ambiguous; otherwise the most recently started one wins and the ambiguity is logged and counted.
func (s *Service) LookupForUsage(ctx context.Context, store Store, c UsageCriteria) (*model.Subscription, error) {
	if c.OrgID == "" || c.ProductTag == "" {
		return nil, errs.New("org id and product tag are required").Mark(errs.ErrValidation)
	}
	c.At = c.At.UTC()
	subs, err := store.FindSubscriptionsForUsage(ctx, c)
	if err != nil {
		return nil, err
	}

	multipart := strings.Contains(c.BillingAccountID, ";")
	if multipart {
		if exact := lo.Filter(subs, func(sub *model.Subscription, _ int) bool { return sub.BillingAccountID == c.BillingAccountID }); len(exact) > 0 {
			subs = exact
		}
	}

	if len(subs) == 0 {
		return nil, errs.Newf("no subscription for org %s product %s at %s", c.OrgID, c.ProductTag, c.At.Format(time.RFC3339)).Mark(errs.ErrNotFound)
	}
	active := lo.Filter(subs, func(sub *model.Subscription, _ int) bool { return sub.ActiveAt(c.At) })
	slices.SortStableFunc(active, func(a, b *model.Subscription) int { return cmp.Compare(b.StartDate.UnixNano(), a.StartDate.UnixNano()) })
	// A split ends one version at the instant the next starts; only the newest version of a subscription counts.
	active = lo.UniqBy(active, func(sub *model.Subscription) string { return sub.SubscriptionID })
	switch len(active) {
	case 0:
		return nil, errs.Newf("subscription for org %s product %s ended before %s", c.OrgID, c.ProductTag, c.At.Format(time.RFC3339)).
			WithHint("usage arrived after the subscription terminated").
			Mark(errs.ErrRecentlyTerminated)
	case 1:
		return active[0], nil
	}

	if multipart {
		return nil, errs.Newf("%d subscriptions match billing account %s", len(active), c.BillingAccountID).Mark(errs.ErrAmbiguous)
	}
	s.ambiguous.Inc()
	s.logger.WarnContext(ctx, "subscription: multiple subscriptions match usage, using most recent",
		"org_id", c.OrgID, "product_tag", c.ProductTag, "matches", len(active), "subscription_id", active[0].SubscriptionID)
	return active[0], nil
}

// Lookup is a [Service] bound to a store for read-only usage lookups.
type Lookup struct {
	svc   *Service
	store Store
}

func (s *Service) WithStore(store Store) Lookup {
	return Lookup{svc: s, store: store}
}

func (l Lookup) LookupForUsage(ctx context.Context, c UsageCriteria) (*model.Subscription, error) {
	return l.svc.LookupForUsage(ctx, l.store, c)
}
