package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/model"
)

func TestInstanceMeasurementsAreCaseNormalized(t *testing.T) {
	inst := model.NewInstance("org1", "i-1")
	inst.SetMeasurement("cores", 2)
	inst.SetMeasurement("CORES", 4)

	assert.Len(t, inst.Measurements, 1)
	v, ok := inst.Measurement(model.MetricCores)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestAddBucketDedup(t *testing.T) {
	inst := model.NewInstance("org1", "i-1")
	inst.ID = uuid.New()
	key := model.BucketKey{
		ProductID:        "RHEL",
		SLA:              model.ServiceLevelPremium,
		Usage:            model.UsageProduction,
		BillingProvider:  model.BillingProviderRedHat,
		BillingAccountID: "acct",
	}

	_, err := inst.AddBucket(key, 4, 1, model.MeasurementPhysical)
	require.NoError(t, err)
	b, err := inst.AddBucket(key, 8, 2, model.MeasurementPhysical)
	require.NoError(t, err)

	require.Len(t, inst.Buckets, 1)
	assert.Equal(t, 8, inst.Buckets[0].Cores)
	assert.Equal(t, 2, inst.Buckets[0].Sockets)
	assert.Equal(t, inst.ID, b.Key.InstanceID)

	hyp := key
	hyp.AsHypervisor = true
	_, err = inst.AddBucket(hyp, 16, 2, model.MeasurementHypervisor)
	require.NoError(t, err)
	assert.Len(t, inst.Buckets, 2)

	assert.True(t, inst.RemoveBucket(b.Key))
	assert.False(t, inst.RemoveBucket(b.Key))
	assert.Len(t, inst.Buckets, 1)
	assert.True(t, inst.Buckets[0].Key.AsHypervisor)
}

func TestAddBucketRequiresIdentity(t *testing.T) {
	inst := model.NewInstance("org1", "i-1")
	_, err := inst.AddBucket(model.BucketKey{ProductID: "RHEL"}, 1, 1, model.MeasurementPhysical)
	assert.ErrorIs(t, err, model.ErrNoIdentity)
}

func TestEmptyBucketIsNotCounted(t *testing.T) {
	assert.False(t, model.Bucket{MeasurementType: model.MeasurementEmpty}.Counted())
	assert.True(t, model.Bucket{MeasurementType: model.MeasurementVirtual}.Counted())
}

func TestMonthlyTotals(t *testing.T) {
	inst := model.NewInstance("org1", "i-1")
	jan := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)

	inst.AddToMonthlyTotal(jan, model.MetricInstanceHours, 1.5)
	inst.AddToMonthlyTotal(jan, "instance_hours", 2)
	inst.AddToMonthlyTotal(feb, model.MetricInstanceHours, 3)

	v, ok := inst.MonthlyTotal("2025-01", model.MetricInstanceHours)
	require.True(t, ok)
	assert.Equal(t, 3.5, v)

	inst.ClearMonthlyTotal("2025-01")
	v, ok = inst.MonthlyTotal("2025-01", model.MetricInstanceHours)
	assert.True(t, ok, "cleared totals keep their key")
	assert.Zero(t, v)

	inst.AddToMonthlyTotal(jan, model.MetricInstanceHours, 1)
	inst.ClearMonthlyTotals(jan, feb)
	for k, v := range inst.MonthlyTotals {
		assert.Zero(t, v, k)
	}
	assert.Len(t, inst.MonthlyTotals, 2)
}
