package report_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/clock"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/product"
	"github.com/cloud-gov/tally/internal/report"
	. "github.com/cloud-gov/tally/internal/testutil"
)

type stubProducts map[string]product.Product

func (s stubProducts) Product(tag string) (product.Product, bool) {
	p, ok := s[tag]
	return p, ok
}

var catalog = stubProducts{
	"RHEL": {
		ID:                "RHEL",
		FinestGranularity: model.Daily,
		Metrics:           []product.Metric{{ID: model.MetricCores}, {ID: model.MetricSockets}},
	},
	"rhel-payg": {
		ID:                "rhel-payg",
		FinestGranularity: model.Hourly,
		Payg:              true,
		Metrics:           []product.Metric{{ID: model.MetricCores}, {ID: model.MetricInstanceHours}},
	},
}

type stubStore struct {
	snaps []model.TallySnapshot
	got   report.SnapshotQuery
	calls int
}

func (s *stubStore) FindSnapshots(_ context.Context, q report.SnapshotQuery) ([]model.TallySnapshot, error) {
	s.calls++
	s.got = q
	return s.snaps, nil
}

type stubCapacity struct {
	report capacity.Report
}

func (s stubCapacity) Build(_ context.Context, _ capacity.ReportRequest) (capacity.Report, error) {
	return s.report, nil
}

func day(d, hour int) time.Time {
	return time.Date(2025, time.January, d, hour, 0, 0, 0, time.UTC)
}

func snapshot(at time.Time, mt model.HardwareMeasurementType, cores float64) model.TallySnapshot {
	return model.TallySnapshot{
		SnapshotDate: at,
		Measurements: map[model.MeasurementKey]float64{
			{MeasurementType: mt, MetricID: model.MetricCores}:                    cores,
			{MeasurementType: model.MeasurementTotal, MetricID: model.MetricCores}: cores,
		},
	}
}

func newBuilder(store report.SnapshotStore, cr report.CapacityReporter, now time.Time) *report.Builder {
	return report.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)), store, catalog, cr, clock.NewFakeClock(now))
}

func TestBuildFillsGaps(t *testing.T) {
	store := &stubStore{}
	b := newBuilder(store, nil, day(20, 0))

	r, err := b.Build(t.Context(), report.Request{
		OrgID:       "org1",
		ProductID:   "RHEL",
		MetricID:    model.MetricCores,
		Granularity: model.Daily,
		Beginning:   day(1, 0),
		Ending:      day(9, 23),
	})
	require.NoError(t, err)

	require.Len(t, r.Data, 9)
	for i, p := range r.Data {
		assert.Equal(t, day(i+1, 0), p.Date)
		assert.False(t, p.HasData)
		require.NotNil(t, p.Value)
		assert.Zero(t, *p.Value)
	}
	assert.Equal(t, 9, r.Meta.Count)
	assert.Equal(t, model.ServiceLevelAny, store.got.SLA)
	assert.Equal(t, model.UsageAny, store.got.Usage)
	assert.Equal(t, model.Daily, store.got.Granularity)
	assert.Equal(t, report.SubscriptionTypeAnnual, r.Meta.SubscriptionType)
}

func TestBuildPointValues(t *testing.T) {
	store := &stubStore{snaps: []model.TallySnapshot{
		snapshot(day(2, 0), model.MeasurementPhysical, 4),
		snapshot(day(3, 0), model.MeasurementHypervisor, 8),
	}}
	b := newBuilder(store, nil, day(20, 0))

	cases := []struct {
		name     string
		category model.ReportCategory
		want     []float64
	}{
		{"all", model.CategoryAll, []float64{0, 4, 8}},
		{"physical", model.CategoryPhysical, []float64{0, 4, 0}},
		{"hypervisor", model.CategoryHypervisor, []float64{0, 0, 8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := b.Build(t.Context(), report.Request{
				OrgID:       "org1",
				ProductID:   "RHEL",
				MetricID:    "cores",
				Granularity: model.Daily,
				Beginning:   day(1, 0),
				Ending:      day(3, 0),
				Category:    tc.category,
			})
			require.NoError(t, err)
			require.Len(t, r.Data, 3)
			for i, want := range tc.want {
				assert.Equal(t, want, *r.Data[i].Value, "day %d", i+1)
			}
			assert.False(t, r.Data[0].HasData)
			assert.True(t, r.Data[1].HasData)
			assert.Nil(t, r.Meta.TotalCoreHours)
		})
	}
}

func TestBuildRunningTotals(t *testing.T) {
	store := &stubStore{snaps: []model.TallySnapshot{
		snapshot(day(1, 5), model.MeasurementPhysical, 2),
		snapshot(day(2, 10), model.MeasurementPhysical, 4),
		snapshot(day(8, 1), model.MeasurementPhysical, 16),
	}}
	b := newBuilder(store, nil, day(24, 12))

	r, err := b.Build(t.Context(), report.Request{
		OrgID:       "org1",
		ProductID:   "rhel-payg",
		MetricID:    model.MetricCores,
		Granularity: model.Daily,
		Beginning:   day(1, 0),
		Ending:      model.Monthly.End(day(1, 0)),
	})
	require.NoError(t, err)

	assert.Equal(t, model.Hourly, store.got.Granularity)
	assert.Equal(t, day(1, 0), store.got.Beginning)

	require.Len(t, r.Data, 31)
	for i, p := range r.Data {
		d := i + 1
		switch {
		case d == 1:
			assert.Equal(t, 2.0, *p.Value)
		case d < 8:
			assert.Equal(t, 6.0, *p.Value, "day %d", d)
		case d <= 24:
			assert.Equal(t, 22.0, *p.Value, "day %d", d)
		default:
			assert.Nil(t, p.Value, "day %d", d)
			assert.False(t, p.HasData, "day %d", d)
			continue
		}
		assert.True(t, p.HasData, "day %d", d)
	}

	require.NotNil(t, r.Meta.TotalCoreHours)
	assert.Equal(t, 22.0, *r.Meta.TotalCoreHours)
	assert.Equal(t, report.SubscriptionTypeOnDemand, r.Meta.SubscriptionType)

	require.NotNil(t, r.Meta.TotalMonthly)
	assert.Equal(t, 22.0, r.Meta.TotalMonthly.Value)
	assert.True(t, r.Meta.TotalMonthly.HasData)
	assert.Equal(t, day(8, 1), *r.Meta.TotalMonthly.Date)
}

func TestBuildRunningTotalsResetMonthly(t *testing.T) {
	store := &stubStore{snaps: []model.TallySnapshot{
		snapshot(day(31, 5), model.MeasurementPhysical, 3),
		snapshot(time.Date(2025, time.February, 1, 2, 0, 0, 0, time.UTC), model.MeasurementPhysical, 5),
	}}
	b := newBuilder(store, nil, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	r, err := b.Build(t.Context(), report.Request{
		OrgID:       "org1",
		ProductID:   "rhel-payg",
		MetricID:    model.MetricCores,
		Granularity: model.Daily,
		Beginning:   day(31, 0),
		Ending:      time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, r.Data, 3)
	assert.Equal(t, 3.0, *r.Data[0].Value)
	assert.Equal(t, 5.0, *r.Data[1].Value)
	assert.Equal(t, 5.0, *r.Data[2].Value)
	assert.Nil(t, r.Meta.TotalMonthly)
}

func TestBuildBillingCategory(t *testing.T) {
	store := &stubStore{snaps: []model.TallySnapshot{
		snapshot(day(1, 5), model.MeasurementPhysical, 6),
		snapshot(day(2, 5), model.MeasurementPhysical, 6),
	}}
	cr := stubCapacity{report: capacity.Report{Data: []capacity.CapacitySnapshot{
		{Date: day(1, 0), Value: 8, HasData: true},
		{Date: day(2, 0), Value: 8, HasData: true},
		{Date: day(3, 0), HasInfiniteQuantity: true},
	}}}
	b := newBuilder(store, cr, day(3, 12))

	cases := []struct {
		category report.BillingCategory
		want     []float64
	}{
		{report.BillingCategoryPrepaid, []float64{6, 8, 12}},
		{report.BillingCategoryOnDemand, []float64{0, 4, 0}},
	}
	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			r, err := b.Build(t.Context(), report.Request{
				OrgID:           "org1",
				ProductID:       "rhel-payg",
				MetricID:        model.MetricCores,
				Granularity:     model.Daily,
				Beginning:       day(1, 0),
				Ending:          day(3, 0),
				BillingCategory: tc.category,
			})
			require.NoError(t, err)
			require.Len(t, r.Data, 3)
			for i, want := range tc.want {
				assert.Equal(t, want, *r.Data[i].Value, "day %d", i+1)
			}
			require.NotNil(t, r.Meta.TotalCoreHours)
			assert.Equal(t, 12.0, *r.Meta.TotalCoreHours)
		})
	}
}

func TestBuildPaging(t *testing.T) {
	b := newBuilder(&stubStore{}, nil, day(20, 0))

	cases := []struct {
		name   string
		offset *int
		limit  *int
		want   []time.Time
	}{
		{"second page", Ptr(2), Ptr(2), []time.Time{day(3, 0), day(4, 0)}},
		{"last partial page", Ptr(8), Ptr(2), []time.Time{day(9, 0)}},
		{"past the end", Ptr(10), Ptr(5), nil},
		{"limit only", nil, Ptr(3), []time.Time{day(1, 0), day(2, 0), day(3, 0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := b.Build(t.Context(), report.Request{
				OrgID:       "org1",
				ProductID:   "RHEL",
				MetricID:    model.MetricCores,
				Granularity: model.Daily,
				Beginning:   day(1, 0),
				Ending:      day(9, 0),
				Offset:      tc.offset,
				Limit:       tc.limit,
			})
			require.NoError(t, err)
			var got []time.Time
			for _, p := range r.Data {
				got = append(got, p.Date)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 9, r.Meta.Count)
		})
	}
}

func TestBuildValidation(t *testing.T) {
	base := report.Request{
		OrgID:       "org1",
		ProductID:   "RHEL",
		MetricID:    model.MetricCores,
		Granularity: model.Daily,
		Beginning:   day(1, 0),
		Ending:      day(9, 0),
	}

	cases := []struct {
		name    string
		modify  func(r *report.Request)
		wantErr string
	}{
		{"unknown product", func(r *report.Request) { r.ProductID = "nope" }, "unknown product nope"},
		{"unknown metric", func(r *report.Request) { r.MetricID = "Storage" }, "unknown metric id Storage for product RHEL"},
		{"granularity too fine", func(r *report.Request) { r.Granularity = model.Hourly }, "RHEL does not support any granularity finer than DAILY, requested HOURLY"},
		{"inverted range", func(r *report.Request) { r.Ending = day(1, 0).Add(-time.Hour) }, "ending must not be before beginning"},
		{"offset not divisible", func(r *report.Request) { r.Offset, r.Limit = Ptr(3), Ptr(2) }, "Offset must be divisible by limit"},
		{"offset not divisible by default limit", func(r *report.Request) { r.Offset = Ptr(10) }, "Offset must be divisible by limit"},
		{"range too long", func(r *report.Request) { r.Beginning = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC) }, "range spans more than 10000 DAILY periods"},
		{"billing category without running totals", func(r *report.Request) { r.BillingCategory = report.BillingCategoryPrepaid }, "billing category requires running totals"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubStore{}
			b := newBuilder(store, nil, day(20, 0))
			req := base
			tc.modify(&req)

			_, err := b.Build(t.Context(), req)
			require.Error(t, err)
			assert.EqualError(t, err, tc.wantErr)
			assert.True(t, errs.Is(err, errs.ErrValidation))
			assert.Zero(t, store.calls)
		})
	}
}

func TestParseBillingCategory(t *testing.T) {
	assert.Equal(t, report.BillingCategoryPrepaid, report.ParseBillingCategory("prepaid"))
	assert.Equal(t, report.BillingCategoryOnDemand, report.ParseBillingCategory("on-demand"))
	assert.Equal(t, report.BillingCategoryNone, report.ParseBillingCategory("bogus"))
}
