package tally_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/product"
	"github.com/cloud-gov/tally/internal/tally"
)

type stubProducts map[string]product.Product

func (s stubProducts) Product(tag string) (product.Product, bool) {
	p, ok := s[tag]
	return p, ok
}

var (
	products = stubProducts{
		"RHEL":     {ID: "RHEL", FinestGranularity: model.Daily},
		"RHEL-ELS": {ID: "RHEL-ELS", FinestGranularity: model.Hourly, Payg: true},
	}
	now = time.Date(2025, time.May, 14, 10, 30, 0, 0, time.UTC)
)

func newInstance() *model.Instance {
	inst := model.NewInstance("org1", "i-1")
	inst.ID = uuid.New()
	return inst
}

func physicalFacts() tally.Facts {
	return tally.Facts{
		InstanceID:   "i-1",
		OrgID:        "org1",
		Products:     []string{"RHEL"},
		SLA:          model.ServiceLevelPremium,
		Usage:        model.UsageProduction,
		HardwareType: model.HardwarePhysical,
		Cores:        4,
		Sockets:      2,
	}
}

func TestFactsMeasurementType(t *testing.T) {
	cases := []struct {
		name  string
		facts tally.Facts
		want  model.HardwareMeasurementType
	}{
		{"physical", tally.Facts{HardwareType: model.HardwarePhysical}, model.MeasurementPhysical},
		{"hypervisor", tally.Facts{Hypervisor: true}, model.MeasurementHypervisor},
		{"unmapped guest", tally.Facts{Guest: true, HardwareType: model.HardwareVirtualized}, model.MeasurementVirtual},
		{"mapped guest", tally.Facts{Guest: true, HypervisorKnown: true}, model.MeasurementEmpty},
		{"aws", tally.Facts{HardwareType: model.HardwareCloud, CloudProvider: "aws"}, model.MeasurementAWS},
		{"unknown cloud", tally.Facts{HardwareType: model.HardwareCloud, CloudProvider: "ibm"}, model.MeasurementEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.facts.MeasurementType())
		})
	}
}

func TestApplicableKeys(t *testing.T) {
	f := physicalFacts()
	f.BillingProvider = model.BillingProviderAWS
	f.BillingAccountID = "123"

	assert.Len(t, tally.ApplicableKeys("RHEL", f, false), 4)
	keys := tally.ApplicableKeys("RHEL-ELS", f, true)
	assert.Len(t, keys, 16)
	assert.Contains(t, keys, tally.UsageKey{
		ProductID:        "RHEL-ELS",
		SLA:              model.ServiceLevelAny,
		Usage:            model.UsageAny,
		BillingProvider:  model.BillingProviderAWS,
		BillingAccountID: "123",
	})

	f.SLA = model.ServiceLevelAny
	assert.Len(t, tally.ApplicableKeys("RHEL", f, false), 2, "duplicate wildcard combinations collapse")
}

func TestApplyBucketsAndTotals(t *testing.T) {
	engine := tally.NewEngine(products)
	inst := newInstance()
	calc := tally.NewAccountCalculation("org1")

	require.NoError(t, engine.Apply(inst, physicalFacts(), now, calc))

	assert.Len(t, inst.Buckets, 4)
	for _, b := range inst.Buckets {
		assert.Equal(t, inst.ID, b.Key.InstanceID)
		assert.Equal(t, model.MeasurementPhysical, b.MeasurementType)
		assert.False(t, b.Key.AsHypervisor)
	}

	anyKey := tally.UsageKey{ProductID: "RHEL", SLA: model.ServiceLevelAny, Usage: model.UsageAny, BillingProvider: model.BillingProviderAny, BillingAccountID: model.Any}
	c := calc.Calculation(anyKey)
	assert.Equal(t, 4.0, c.Total(model.MeasurementPhysical, model.MetricCores))
	assert.Equal(t, 4.0, c.Total(model.MeasurementTotal, model.MetricCores))
	assert.Equal(t, 2.0, c.Total(model.MeasurementTotal, model.MetricSockets))
	assert.Len(t, calc.Keys(), 4)
}

func TestApplyTwiceDoesNotDuplicate(t *testing.T) {
	engine := tally.NewEngine(products)
	inst := newInstance()

	require.NoError(t, engine.Apply(inst, physicalFacts(), now, tally.NewAccountCalculation("org1")))
	f := physicalFacts()
	f.Cores = 8
	require.NoError(t, engine.Apply(inst, f, now, tally.NewAccountCalculation("org1")))

	assert.Len(t, inst.Buckets, 4)
	for _, b := range inst.Buckets {
		assert.Equal(t, 8, b.Cores)
	}
}

func TestApplyRemovesStaleBuckets(t *testing.T) {
	engine := tally.NewEngine(products)
	inst := newInstance()
	require.NoError(t, engine.Apply(inst, physicalFacts(), now, tally.NewAccountCalculation("org1")))

	f := physicalFacts()
	f.SLA = model.ServiceLevelStandard
	require.NoError(t, engine.Apply(inst, f, now, tally.NewAccountCalculation("org1")))

	assert.Len(t, inst.Buckets, 4)
	for _, b := range inst.Buckets {
		assert.NotEqual(t, model.ServiceLevelPremium, b.Key.SLA)
	}
}

func TestApplyMappedGuestKeepsEmptyBuckets(t *testing.T) {
	engine := tally.NewEngine(products)
	inst := newInstance()
	calc := tally.NewAccountCalculation("org1")
	f := physicalFacts()
	f.Guest = true
	f.HypervisorKnown = true
	f.HardwareType = model.HardwareVirtualized

	require.NoError(t, engine.Apply(inst, f, now, calc))

	assert.Len(t, inst.Buckets, 4, "buckets are kept for sla/usage filtering")
	for _, b := range inst.Buckets {
		assert.False(t, b.Counted())
	}
	assert.Empty(t, calc.Keys(), "empty buckets never reach the totals")
}

func TestApplyPaygInstanceHours(t *testing.T) {
	engine := tally.NewEngine(products)
	inst := newInstance()
	calc := tally.NewAccountCalculation("org1")
	f := tally.Facts{
		InstanceID:       "i-1",
		Products:         []string{"RHEL-ELS"},
		HardwareType:     model.HardwareCloud,
		CloudProvider:    "AWS",
		BillingProvider:  "aws",
		BillingAccountID: "123",
		Cores:            2,
		Measurements:     map[string]float64{"instance-hours": 1},
	}

	require.NoError(t, engine.Apply(inst, f, now, calc))

	assert.Len(t, inst.Buckets, 4*4)
	v, ok := inst.MonthlyTotal("2025-05", model.MetricInstanceHours)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	k := tally.UsageKey{ProductID: "RHEL-ELS", SLA: model.ServiceLevelAny, Usage: model.UsageAny, BillingProvider: model.BillingProviderAWS, BillingAccountID: "123"}
	c := calc.Calculation(k)
	assert.Equal(t, 1.0, c.Total(model.MeasurementAWS, model.MetricInstanceHours))
	assert.Equal(t, 2.0, c.Total(model.MeasurementTotal, model.MetricCores))

	snaps := calc.Snapshots(model.Hourly, now)
	require.Len(t, snaps, 16)
	assert.Equal(t, time.Date(2025, time.May, 14, 10, 0, 0, 0, time.UTC), snaps[0].SnapshotDate)
	assert.Equal(t, "org1", snaps[0].OrgID)
}

func TestApplyRequiresIdentity(t *testing.T) {
	engine := tally.NewEngine(products)
	err := engine.Apply(model.NewInstance("org1", "i-1"), physicalFacts(), now, tally.NewAccountCalculation("org1"))
	assert.ErrorIs(t, err, model.ErrNoIdentity)
}
