// Package report builds tally usage reports: one point per period boundary, gaps filled, and running totals for pay-as-you-go products.
package report

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/clock"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/product"
)

const defaultLimit = 50

// BillingCategory splits a running total against subscribed capacity.
type BillingCategory string

const (
	BillingCategoryNone     BillingCategory = ""
	BillingCategoryPrepaid  BillingCategory = "prepaid"
	BillingCategoryOnDemand BillingCategory = "on-demand"
)

func ParseBillingCategory(s string) BillingCategory {
	switch BillingCategory(s) {
	case BillingCategoryPrepaid, BillingCategoryOnDemand:
		return BillingCategory(s)
	default:
		return BillingCategoryNone
	}
}

// SnapshotQuery selects persisted snapshots with SnapshotDate in [Beginning, Ending].
type SnapshotQuery struct {
	OrgID            string
	ProductID        string
	Granularity      model.Granularity
	SLA              model.ServiceLevel
	Usage            model.Usage
	BillingProvider  model.BillingProvider
	BillingAccountID string
	Beginning        time.Time
	Ending           time.Time
}

type SnapshotStore interface {
	FindSnapshots(ctx context.Context, q SnapshotQuery) ([]model.TallySnapshot, error)
}

type ProductLookup interface {
	Product(tag string) (product.Product, bool)
}

// CapacityReporter supplies subscribed capacity for billing category splits.
type CapacityReporter interface {
	Build(ctx context.Context, req capacity.ReportRequest) (capacity.Report, error)
}

type Request struct {
	OrgID            string
	ProductID        string
	MetricID         model.MetricID
	Granularity      model.Granularity
	Beginning        time.Time
	Ending           time.Time
	Category         model.ReportCategory
	SLA              model.ServiceLevel
	Usage            model.Usage
	BillingProvider  model.BillingProvider
	BillingAccountID string
	Offset           *int
	Limit            *int
	// UseRunningTotals forces running totals for products that are not PAYG.
	UseRunningTotals bool
	BillingCategory  BillingCategory
}

// Point is one report row. Value is nil for boundaries that have not happened yet.
type Point struct {
	Date    time.Time `json:"date"`
	Value   *float64  `json:"value"`
	HasData bool      `json:"has_data"`
}

type TotalMonthly struct {
	Value   float64    `json:"value"`
	Date    *time.Time `json:"date,omitempty"`
	HasData bool       `json:"has_data"`
}

type Meta struct {
	Count              int                   `json:"count"`
	Product            string                `json:"product"`
	MetricID           model.MetricID        `json:"metric_id"`
	Granularity        model.Granularity     `json:"granularity"`
	Category           model.ReportCategory  `json:"category,omitempty"`
	SLA                model.ServiceLevel    `json:"service_level"`
	Usage              model.Usage           `json:"usage"`
	BillingProvider    model.BillingProvider `json:"billing_provider"`
	BillingAccountID   string                `json:"billing_account_id"`
	BillingCategory    BillingCategory       `json:"billing_category,omitempty"`
	SubscriptionType   string                `json:"subscription_type"`
	TotalCoreHours     *float64              `json:"total_core_hours,omitempty"`
	TotalInstanceHours *float64              `json:"total_instance_hours,omitempty"`
	TotalMonthly       *TotalMonthly         `json:"total_monthly,omitempty"`
}

type Report struct {
	Data []Point `json:"data"`
	Meta Meta    `json:"meta"`
}

const (
	SubscriptionTypeAnnual   = "Annual"
	SubscriptionTypeOnDemand = "On-demand"
)

type Builder struct {
	logger   *slog.Logger
	store    SnapshotStore
	products ProductLookup
	capacity CapacityReporter
	clock    clock.Clock
}

func NewBuilder(logger *slog.Logger, store SnapshotStore, products ProductLookup, cr CapacityReporter, c clock.Clock) *Builder {
	return &Builder{
		logger:   logger.WithGroup("report"),
		store:    store,
		products: products,
		capacity: cr,
		clock:    c,
	}
}

// Build validates req before any query runs, then returns one point per boundary in range. PAYG products, and requests with UseRunningTotals, report month-to-date running totals of hourly snapshots instead of point values.
func (b *Builder) Build(ctx context.Context, req Request) (Report, error) {
	p, offset, limit, err := b.validate(req)
	if err != nil {
		return Report{}, err
	}
	if m, ok := p.Metric(req.MetricID); ok {
		req.MetricID = m.ID
	}
	req.SLA = orAny(req.SLA, model.ServiceLevelAny)
	req.Usage = orAny(req.Usage, model.UsageAny)
	req.BillingProvider = orAny(req.BillingProvider, model.BillingProviderAny)
	req.BillingAccountID = orAny(req.BillingAccountID, model.Any)

	running := p.Payg || req.UseRunningTotals
	q := SnapshotQuery{
		OrgID:            req.OrgID,
		ProductID:        req.ProductID,
		Granularity:      req.Granularity,
		SLA:              req.SLA,
		Usage:            req.Usage,
		BillingProvider:  req.BillingProvider,
		BillingAccountID: req.BillingAccountID,
		Beginning:        req.Granularity.Start(req.Beginning),
		Ending:           req.Granularity.End(req.Ending),
	}
	if running {
		q.Granularity = model.Hourly
		q.Beginning = model.Monthly.Start(q.Beginning)
	}
	snaps, err := b.store.FindSnapshots(ctx, q)
	if err != nil {
		return Report{}, err
	}
	b.logger.DebugContext(ctx, "report: loaded snapshots", "product", req.ProductID, "count", len(snaps), "running_totals", running)

	cs := contributions(snaps, req.Category.MeasurementTypes(), req.MetricID)
	boundaries := req.Granularity.Boundaries(req.Beginning, req.Ending)
	now := b.clock.Now()

	var points []Point
	if running {
		points = fillRunningTotals(req.Granularity, boundaries, cs, now)
	} else {
		points = fillPoints(req.Granularity, boundaries, cs)
	}

	meta := Meta{
		Count:            len(points),
		Product:          req.ProductID,
		MetricID:         req.MetricID,
		Granularity:      req.Granularity,
		Category:         req.Category,
		SLA:              req.SLA,
		Usage:            req.Usage,
		BillingProvider:  req.BillingProvider,
		BillingAccountID: req.BillingAccountID,
		BillingCategory:  req.BillingCategory,
		SubscriptionType: SubscriptionTypeAnnual,
	}
	if p.Payg {
		meta.SubscriptionType = SubscriptionTypeOnDemand
	}
	if running {
		last := lastValue(points)
		switch {
		case req.MetricID.EqualFold(model.MetricCores):
			meta.TotalCoreHours = last
		case req.MetricID.EqualFold(model.MetricInstanceHours):
			meta.TotalInstanceHours = last
		}
	}
	if limit == nil && isWholeMonth(req.Beginning, req.Ending) {
		meta.TotalMonthly = totalMonthly(snaps, cs)
	}

	if req.BillingCategory != BillingCategoryNone {
		if err := b.applyBillingCategory(ctx, req, points); err != nil {
			return Report{}, err
		}
	}

	if limit != nil {
		points = page(points, offset, *limit)
	}
	return Report{Data: points, Meta: meta}, nil
}

func (b *Builder) validate(req Request) (product.Product, int, *int, error) {
	p, ok := b.products.Product(req.ProductID)
	if !ok {
		return p, 0, nil, errs.Newf("unknown product %s", req.ProductID).Mark(errs.ErrValidation)
	}
	if _, ok := p.Metric(req.MetricID); !ok {
		return p, 0, nil, errs.Newf("unknown metric id %s for product %s", req.MetricID, req.ProductID).Mark(errs.ErrValidation)
	}
	if !req.Granularity.Valid() {
		return p, 0, nil, errs.Newf("invalid granularity %q", req.Granularity).Mark(errs.ErrValidation)
	}
	if !p.SupportsGranularity(req.Granularity) {
		return p, 0, nil, errs.Newf("%s does not support any granularity finer than %s, requested %s", req.ProductID, p.FinestGranularity, req.Granularity).Mark(errs.ErrValidation)
	}
	if req.Ending.Before(req.Beginning) {
		return p, 0, nil, errs.New("ending must not be before beginning").Mark(errs.ErrValidation)
	}
	if req.Granularity.ExceedsBoundaries(req.Beginning, req.Ending, model.MaxBoundaries) {
		return p, 0, nil, errs.Newf("range spans more than %d %s periods", model.MaxBoundaries, req.Granularity).
			WithHint("narrow the range or request a coarser granularity").
			Mark(errs.ErrValidation)
	}
	if req.BillingCategory != BillingCategoryNone && !(p.Payg || req.UseRunningTotals) {
		return p, 0, nil, errs.New("billing category requires running totals").
			WithHint("set use_running_totals_format=true").
			Mark(errs.ErrValidation)
	}

	if req.Offset == nil && req.Limit == nil {
		return p, 0, nil, nil
	}
	offset, limit := 0, defaultLimit
	if req.Offset != nil {
		offset = *req.Offset
	}
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit <= 0 || offset < 0 {
		return p, 0, nil, errs.Newf("invalid offset %d and limit %d", offset, limit).Mark(errs.ErrValidation)
	}
	if offset%limit != 0 {
		return p, 0, nil, errs.New("Offset must be divisible by limit").
			WithHint("arbitrary offsets are not supported").
			Mark(errs.ErrValidation)
	}
	return p, offset, &limit, nil
}

// applyBillingCategory caps running totals at subscribed capacity (prepaid) or keeps only the overage (on-demand). Unlimited capacity absorbs everything.
func (b *Builder) applyBillingCategory(ctx context.Context, req Request, points []Point) error {
	capReport, err := b.capacity.Build(ctx, capacity.ReportRequest{
		OrgID:            req.OrgID,
		ProductID:        req.ProductID,
		MetricID:         req.MetricID,
		Granularity:      req.Granularity,
		Beginning:        req.Beginning,
		Ending:           req.Ending,
		SLA:              req.SLA,
		Usage:            req.Usage,
		BillingProvider:  req.BillingProvider,
		BillingAccountID: req.BillingAccountID,
	})
	if err != nil {
		return err
	}
	capByDate := lo.SliceToMap(capReport.Data, func(s capacity.CapacitySnapshot) (time.Time, capacity.CapacitySnapshot) {
		return s.Date, s
	})
	for i := range points {
		if points[i].Value == nil {
			continue
		}
		total := *points[i].Value
		c := capByDate[points[i].Date]
		var v float64
		switch req.BillingCategory {
		case BillingCategoryPrepaid:
			v = total
			if !c.HasInfiniteQuantity {
				v = math.Min(total, c.Value)
			}
		case BillingCategoryOnDemand:
			if !c.HasInfiniteQuantity {
				v = math.Max(total-c.Value, 0)
			}
		}
		points[i].Value = &v
	}
	return nil
}

func lastValue(points []Point) *float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Value != nil {
			v := *points[i].Value
			return &v
		}
	}
	return nil
}

func isWholeMonth(beginning, ending time.Time) bool {
	start := model.Monthly.Start(beginning)
	return beginning.Equal(start) && model.Monthly.Start(ending).Equal(start) && model.Monthly.End(start).Sub(ending) < time.Second
}

func totalMonthly(snaps []model.TallySnapshot, cs []contribution) *TotalMonthly {
	tm := &TotalMonthly{}
	var sum float64
	for i, c := range cs {
		sum += c.value
		tm.HasData = true
		if d := snaps[i].SnapshotDate; tm.Date == nil || d.After(*tm.Date) {
			tm.Date = &d
		}
	}
	tm.Value = math.Ceil(sum)
	return tm
}

func page(points []Point, offset, limit int) []Point {
	if offset >= len(points) {
		return []Point{}
	}
	return points[offset:min(offset+limit, len(points))]
}

func orAny[T ~string](v T, wildcard T) T {
	if v == "" {
		return wildcard
	}
	return v
}
