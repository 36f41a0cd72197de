package tally

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/cloud-gov/tally/internal/model"
)

// UsageKey identifies one usage calculation within an account.
type UsageKey struct {
	ProductID        string
	SLA              model.ServiceLevel
	Usage            model.Usage
	BillingProvider  model.BillingProvider
	BillingAccountID string
}

// UsageCalculation accumulates metric totals per measurement type for one key.
type UsageCalculation struct {
	Key    UsageKey
	totals map[model.HardwareMeasurementType]map[model.MetricID]decimal.Decimal
}

func NewUsageCalculation(k UsageKey) *UsageCalculation {
	return &UsageCalculation{Key: k, totals: map[model.HardwareMeasurementType]map[model.MetricID]decimal.Decimal{}}
}

// Add adds value to (mt, metric) and, unless mt is TOTAL, to (TOTAL, metric) as well. EMPTY contributions are rejected.
func (c *UsageCalculation) Add(mt model.HardwareMeasurementType, metric model.MetricID, value float64) error {
	if mt == model.MeasurementEmpty || mt == "" {
		return fmt.Errorf("usage calculation: cannot add %s to measurement type %q", metric, mt)
	}
	c.add(mt, metric, value)
	if mt != model.MeasurementTotal {
		c.add(model.MeasurementTotal, metric, value)
	}
	return nil
}

// AddCloudProvider adds value under a cloud-provider measurement type. Non-cloud types are an error.
func (c *UsageCalculation) AddCloudProvider(mt model.HardwareMeasurementType, metric model.MetricID, value float64) error {
	if !mt.IsCloud() {
		return fmt.Errorf("usage calculation: %s is not a cloud provider type", mt)
	}
	return c.Add(mt, metric, value)
}

func (c *UsageCalculation) add(mt model.HardwareMeasurementType, metric model.MetricID, value float64) {
	m, ok := c.totals[mt]
	if !ok {
		m = map[model.MetricID]decimal.Decimal{}
		c.totals[mt] = m
	}
	metric = model.CanonicalMetricID(string(metric))
	m[metric] = m[metric].Add(decimal.NewFromFloat(value))
}

func (c *UsageCalculation) Total(mt model.HardwareMeasurementType, metric model.MetricID) float64 {
	return c.totals[mt][model.CanonicalMetricID(string(metric))].InexactFloat64()
}

// Measurements flattens the totals into a snapshot measurement map.
func (c *UsageCalculation) Measurements() map[model.MeasurementKey]float64 {
	out := map[model.MeasurementKey]float64{}
	for mt, metrics := range c.totals {
		for metric, v := range metrics {
			out[model.MeasurementKey{MeasurementType: mt, MetricID: metric}] = v.InexactFloat64()
		}
	}
	return out
}

// AccountCalculation holds every usage calculation of one org for one tally pass.
type AccountCalculation struct {
	OrgID string
	calcs map[UsageKey]*UsageCalculation
}

func NewAccountCalculation(orgID string) *AccountCalculation {
	return &AccountCalculation{OrgID: orgID, calcs: map[UsageKey]*UsageCalculation{}}
}

// Calculation returns the calculation for k, creating it when absent.
func (a *AccountCalculation) Calculation(k UsageKey) *UsageCalculation {
	c, ok := a.calcs[k]
	if !ok {
		c = NewUsageCalculation(k)
		a.calcs[k] = c
	}
	return c
}

func (a *AccountCalculation) Keys() []UsageKey {
	keys := lo.Keys(a.calcs)
	slices.SortFunc(keys, func(x, y UsageKey) int {
		return cmp.Or(
			cmp.Compare(x.ProductID, y.ProductID),
			cmp.Compare(x.SLA, y.SLA),
			cmp.Compare(x.Usage, y.Usage),
			cmp.Compare(x.BillingProvider, y.BillingProvider),
			cmp.Compare(x.BillingAccountID, y.BillingAccountID),
		)
	})
	return keys
}

// Snapshots converts every calculation into a snapshot for the period of g containing at.
func (a *AccountCalculation) Snapshots(g model.Granularity, at time.Time) []model.TallySnapshot {
	return lo.Map(a.Keys(), func(k UsageKey, _ int) model.TallySnapshot {
		return model.TallySnapshot{
			OrgID:            a.OrgID,
			ProductID:        k.ProductID,
			SLA:              k.SLA,
			Usage:            k.Usage,
			BillingProvider:  k.BillingProvider,
			BillingAccountID: k.BillingAccountID,
			Granularity:      g,
			SnapshotDate:     g.Start(at),
			Measurements:     a.calcs[k].Measurements(),
		}
	})
}
