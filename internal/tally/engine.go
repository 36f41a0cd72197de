package tally

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/product"
)

// ProductLookup resolves product tags to catalog entries.
type ProductLookup interface {
	Product(tag string) (product.Product, bool)
}

// Engine buckets instances. It holds no per-pass state and is safe for concurrent use.
type Engine struct {
	products ProductLookup
}

func NewEngine(products ProductLookup) *Engine {
	return &Engine{products: products}
}

// Apply copies f onto inst, recomputes inst's buckets and adds the counted ones to calc. Buckets inst had from an earlier pass that f no longer produces are removed. inst must already have a persistent ID.
func (e *Engine) Apply(inst *model.Instance, f Facts, at time.Time, calc *AccountCalculation) error {
	f.Normalize()
	applyFacts(inst, f, at)

	mt := f.MeasurementType()
	asHypervisor := mt == model.MeasurementHypervisor
	produced := map[model.BucketKey]struct{}{}

	for _, tag := range lo.Uniq(f.Products) {
		payg := false
		if p, ok := e.products.Product(tag); ok {
			payg = p.Payg
		}
		for _, uk := range ApplicableKeys(tag, f, payg) {
			b, err := inst.AddBucket(model.BucketKey{
				ProductID:        uk.ProductID,
				SLA:              uk.SLA,
				Usage:            uk.Usage,
				BillingProvider:  uk.BillingProvider,
				BillingAccountID: uk.BillingAccountID,
				AsHypervisor:     asHypervisor,
			}, f.Cores, f.Sockets, mt)
			if err != nil {
				return fmt.Errorf("bucketing instance %s: %w", inst.InstanceID, err)
			}
			produced[b.Key] = struct{}{}
			if !b.Counted() {
				continue
			}
			c := calc.Calculation(uk)
			for metric, v := range inst.Measurements {
				if err := c.Add(mt, model.CanonicalMetricID(metric), v); err != nil {
					return err
				}
			}
		}
	}

	for _, b := range append([]model.Bucket(nil), inst.Buckets...) {
		if _, ok := produced[b.Key]; !ok {
			inst.RemoveBucket(b.Key)
		}
	}
	return nil
}

func applyFacts(inst *model.Instance, f Facts, at time.Time) {
	inst.DisplayName = f.DisplayName
	inst.BillingProvider = f.BillingProvider
	inst.BillingAccountID = f.BillingAccountID
	inst.HardwareType = f.HardwareType
	inst.CloudProvider = f.CloudProvider
	inst.Guest = f.Guest
	inst.Hypervisor = f.Hypervisor
	inst.HypervisorUUID = f.HypervisorUUID
	inst.NumOfGuests = f.NumOfGuests
	inst.LastSeen = f.LastSeen
	if inst.LastSeen.IsZero() {
		inst.LastSeen = at
	}

	inst.Measurements = map[string]float64{}
	if f.Cores > 0 {
		inst.SetMeasurement(model.MetricCores, float64(f.Cores))
	}
	if f.Sockets > 0 {
		inst.SetMeasurement(model.MetricSockets, float64(f.Sockets))
	}
	for metric, v := range f.Measurements {
		inst.SetMeasurement(model.MetricID(metric), v)
	}
	if v, ok := inst.Measurement(model.MetricInstanceHours); ok {
		inst.AddToMonthlyTotal(at, model.MetricInstanceHours, v)
	}
}

// ApplicableKeys returns the usage keys an instance running product tag contributes to: SLA {_ANY, sla} × usage {_ANY, usage}, and for PAYG products also billing provider {_ANY, provider} × account {_ANY, account}.
func ApplicableKeys(tag string, f Facts, payg bool) []UsageKey {
	slas := lo.Uniq([]model.ServiceLevel{model.ServiceLevelAny, f.SLA})
	usages := lo.Uniq([]model.Usage{model.UsageAny, f.Usage})
	providers := []model.BillingProvider{model.BillingProviderAny}
	accounts := []string{model.Any}
	if payg {
		providers = lo.Uniq(append(providers, f.BillingProvider))
		accounts = lo.Uniq(append(accounts, f.BillingAccountID))
	}

	var keys []UsageKey
	for _, sla := range slas {
		for _, usage := range usages {
			for _, bp := range providers {
				for _, acct := range accounts {
					keys = append(keys, UsageKey{
						ProductID:        tag,
						SLA:              sla,
						Usage:            usage,
						BillingProvider:  bp,
						BillingAccountID: acct,
					})
				}
			}
		}
	}
	return keys
}
