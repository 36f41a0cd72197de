package capacity

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/product"
)

// Criteria filter subscriptions for capacity queries. Empty fields do not filter. BillingAccountID matches as a prefix.
type Criteria struct {
	OrgID            string
	ProductTag       string
	SLA              model.ServiceLevel
	Usage            model.Usage
	BillingProvider  model.BillingProvider
	BillingAccountID string
	MetricID         model.MetricID
	MeasurementType  model.HardwareMeasurementType
	Beginning        time.Time
	Ending           time.Time
}

// ReportStore is the read side of subscription capacity. Both finders return subscriptions overlapping [Beginning, Ending] with measurements loaded.
type ReportStore interface {
	FindSubscriptionsByCriteria(ctx context.Context, c Criteria) ([]*model.Subscription, error)
	// FindUnlimitedSubscriptions ignores MetricID and MeasurementType, since unlimited offerings may have no measurements.
	FindUnlimitedSubscriptions(ctx context.Context, c Criteria) ([]*model.Subscription, error)
}

// ProductLookup resolves product tags to catalog entries.
type ProductLookup interface {
	Product(tag string) (product.Product, bool)
}

type ReportRequest struct {
	OrgID            string
	ProductID        string
	MetricID         model.MetricID
	Granularity      model.Granularity
	Beginning        time.Time
	Ending           time.Time
	Category         model.HypervisorReportCategory
	SLA              model.ServiceLevel
	Usage            model.Usage
	BillingProvider  model.BillingProvider
	BillingAccountID string
}

type CapacitySnapshot struct {
	Date                time.Time `json:"date"`
	Value               float64   `json:"value"`
	HasData             bool      `json:"has_data"`
	HasInfiniteQuantity bool      `json:"has_infinite_quantity"`
}

type ReportMeta struct {
	Count            int                            `json:"count"`
	Product          string                         `json:"product"`
	MetricID         model.MetricID                 `json:"metric_id"`
	Category         model.HypervisorReportCategory `json:"category,omitempty"`
	Granularity      model.Granularity              `json:"granularity"`
	SLA              model.ServiceLevel             `json:"service_level,omitempty"`
	Usage            model.Usage                    `json:"usage,omitempty"`
	BillingProvider  model.BillingProvider          `json:"billing_provider,omitempty"`
	BillingAccountID string                         `json:"billing_account_id,omitempty"`
}

type Report struct {
	Data []CapacitySnapshot `json:"data"`
	Meta ReportMeta         `json:"meta"`
}

type ReportBuilder struct {
	logger   *slog.Logger
	store    ReportStore
	products ProductLookup
}

func NewReportBuilder(logger *slog.Logger, store ReportStore, products ProductLookup) *ReportBuilder {
	return &ReportBuilder{
		logger:   logger.WithGroup("capacity-report"),
		store:    store,
		products: products,
	}
}

// Build returns one capacity snapshot per period boundary between req.Beginning and req.Ending. The value at a boundary is the sum of the metric over subscriptions active at that boundary, after narrowing to the requested category. Active unlimited subscriptions set HasInfiniteQuantity without adding to the value.
func (b *ReportBuilder) Build(ctx context.Context, req ReportRequest) (Report, error) {
	p, err := b.validate(req)
	if err != nil {
		return Report{}, err
	}
	req.MetricID = canonicalMetric(p, req.MetricID)

	crit := Criteria{
		OrgID:            req.OrgID,
		ProductTag:       req.ProductID,
		SLA:              sanitize(req.SLA, model.ServiceLevelAny),
		Usage:            sanitize(req.Usage, model.UsageAny),
		BillingProvider:  sanitize(req.BillingProvider, model.BillingProviderAny),
		BillingAccountID: sanitize(req.BillingAccountID, model.Any),
		MetricID:         req.MetricID,
		MeasurementType:  req.Category.MeasurementType(),
		Beginning:        req.Beginning,
		Ending:           req.Ending,
	}

	var subs, unlimited []*model.Subscription
	fetch := pool.New().WithErrors().WithContext(ctx)
	fetch.Go(func(ctx context.Context) error {
		var err error
		subs, err = b.store.FindSubscriptionsByCriteria(ctx, crit)
		return err
	})
	fetch.Go(func(ctx context.Context) error {
		var err error
		unlimited, err = b.store.FindUnlimitedSubscriptions(ctx, crit)
		return err
	})
	if err := fetch.Wait(); err != nil {
		return Report{}, err
	}
	b.logger.DebugContext(ctx, "capacity-report: loaded subscriptions", "matching", len(subs), "unlimited", len(unlimited))

	boundaries := req.Granularity.Boundaries(req.Beginning, req.Ending)
	data := make([]CapacitySnapshot, 0, len(boundaries))
	for _, at := range boundaries {
		snap := CapacitySnapshot{Date: at}
		for _, s := range subs {
			if !s.ActiveAt(at) {
				continue
			}
			snap.HasData = true
			snap.Value += s.MetricTotal(req.MetricID, crit.MeasurementType)
		}
		for _, s := range unlimited {
			if s.ActiveAt(at) {
				snap.HasData = true
				snap.HasInfiniteQuantity = true
				break
			}
		}
		data = append(data, snap)
	}

	return Report{
		Data: data,
		Meta: ReportMeta{
			Count:            len(data),
			Product:          req.ProductID,
			MetricID:         req.MetricID,
			Category:         req.Category,
			Granularity:      req.Granularity,
			SLA:              crit.SLA,
			Usage:            crit.Usage,
			BillingProvider:  crit.BillingProvider,
			BillingAccountID: crit.BillingAccountID,
		},
	}, nil
}

func (b *ReportBuilder) validate(req ReportRequest) (product.Product, error) {
	p, ok := b.products.Product(req.ProductID)
	if !ok {
		return product.Product{}, errs.Newf("unknown product %s", req.ProductID).Mark(errs.ErrValidation)
	}
	if _, ok := p.Metric(req.MetricID); !ok {
		return product.Product{}, errs.Newf("unknown metric id %s for product %s", req.MetricID, req.ProductID).Mark(errs.ErrValidation)
	}
	if !req.Granularity.Valid() || !p.SupportsGranularity(req.Granularity) {
		return product.Product{}, errs.Newf("%s does not support granularity %s", req.ProductID, req.Granularity).
			WithHint("finest supported granularity is " + string(p.FinestGranularity)).
			Mark(errs.ErrValidation)
	}
	if req.Ending.Before(req.Beginning) {
		return product.Product{}, errs.New("ending must not be before beginning").Mark(errs.ErrValidation)
	}
	if req.Granularity.ExceedsBoundaries(req.Beginning, req.Ending, model.MaxBoundaries) {
		return product.Product{}, errs.Newf("range spans more than %d %s periods", model.MaxBoundaries, req.Granularity).
			WithHint("narrow the range or request a coarser granularity").
			Mark(errs.ErrValidation)
	}
	return p, nil
}

func canonicalMetric(p product.Product, id model.MetricID) model.MetricID {
	if m, ok := p.Metric(id); ok {
		return m.ID
	}
	return id
}

// sanitize turns the wildcard into "no filter".
func sanitize[T ~string](v T, wildcard T) T {
	if v == wildcard {
		return ""
	}
	return v
}
