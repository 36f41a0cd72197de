package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoIdentity is returned when a bucket is added to an instance that has not been assigned a persistent ID yet.
var ErrNoIdentity = errors.New("instance has no persistent identity")

// MonthID formats t as the "YYYY-MM" key used by monthly totals.
func MonthID(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthlyKey identifies one monthly running total.
type MonthlyKey struct {
	Month    string
	MetricID string
}

// Instance is a host, cluster or cloud resource as last reported by inventory. It owns its buckets by value.
type Instance struct {
	// ID is the persistent identity assigned by the store. Buckets are keyed by it.
	ID               uuid.UUID
	InstanceID       string
	OrgID            string
	DisplayName      string
	BillingProvider  BillingProvider
	BillingAccountID string
	HardwareType     HostHardwareType
	CloudProvider    string
	Guest            bool
	Hypervisor       bool
	HypervisorUUID   string
	NumOfGuests      int
	LastSeen         time.Time

	Measurements  map[string]float64
	MonthlyTotals map[MonthlyKey]float64
	Buckets       []Bucket
}

func NewInstance(orgID, instanceID string) *Instance {
	return &Instance{
		OrgID:         orgID,
		InstanceID:    instanceID,
		Measurements:  map[string]float64{},
		MonthlyTotals: map[MonthlyKey]float64{},
	}
}

// SetMeasurement stores v under the upper-cased metric so "cores" and "CORES" never coexist.
func (i *Instance) SetMeasurement(metric MetricID, v float64) {
	if i.Measurements == nil {
		i.Measurements = map[string]float64{}
	}
	i.Measurements[metric.UpperCaseFormatted()] = v
}

func (i *Instance) Measurement(metric MetricID) (float64, bool) {
	v, ok := i.Measurements[metric.UpperCaseFormatted()]
	return v, ok
}

// AddToMonthlyTotal adds v to the running total for the month containing at. Totals are only ever added to, never overwritten.
func (i *Instance) AddToMonthlyTotal(at time.Time, metric MetricID, v float64) {
	if i.MonthlyTotals == nil {
		i.MonthlyTotals = map[MonthlyKey]float64{}
	}
	i.MonthlyTotals[MonthlyKey{Month: MonthID(at), MetricID: metric.UpperCaseFormatted()}] += v
}

func (i *Instance) MonthlyTotal(monthID string, metric MetricID) (float64, bool) {
	v, ok := i.MonthlyTotals[MonthlyKey{Month: monthID, MetricID: metric.UpperCaseFormatted()}]
	return v, ok
}

// ClearMonthlyTotal zeroes every total of the given month. Keys are kept so the store updates rows rather than deleting them.
func (i *Instance) ClearMonthlyTotal(monthID string) {
	for k := range i.MonthlyTotals {
		if k.Month == monthID {
			i.MonthlyTotals[k] = 0
		}
	}
}

// ClearMonthlyTotals zeroes the totals of every month from start through end.
func (i *Instance) ClearMonthlyTotals(start, end time.Time) {
	for m := Monthly.Start(start); !m.After(end); m = m.AddDate(0, 1, 0) {
		i.ClearMonthlyTotal(MonthID(m))
	}
}

// AddBucket adds a bucket for key, or overwrites cores, sockets and measurement type of the existing bucket with the same key. The instance identity is set on the key before lookup, so the instance must already have an ID. The returned pointer is valid until the next AddBucket or RemoveBucket call.
func (i *Instance) AddBucket(key BucketKey, cores, sockets int, mt HardwareMeasurementType) (*Bucket, error) {
	if i.ID == uuid.Nil {
		return nil, ErrNoIdentity
	}
	key.InstanceID = i.ID
	for idx := range i.Buckets {
		if i.Buckets[idx].Key == key {
			b := &i.Buckets[idx]
			b.Cores = cores
			b.Sockets = sockets
			b.MeasurementType = mt
			return b, nil
		}
	}
	i.Buckets = append(i.Buckets, Bucket{
		Key:             key,
		Cores:           cores,
		Sockets:         sockets,
		MeasurementType: mt,
	})
	return &i.Buckets[len(i.Buckets)-1], nil
}

// RemoveBucket removes the bucket with the given key and reports whether one existed.
func (i *Instance) RemoveBucket(key BucketKey) bool {
	for idx := range i.Buckets {
		if i.Buckets[idx].Key == key {
			i.Buckets = append(i.Buckets[:idx], i.Buckets[idx+1:]...)
			return true
		}
	}
	return false
}

// BucketKey identifies a bucket. InstanceID is always the owning instance's persistent ID.
type BucketKey struct {
	InstanceID       uuid.UUID
	ProductID        string
	SLA              ServiceLevel
	Usage            Usage
	BillingProvider  BillingProvider
	BillingAccountID string
	AsHypervisor     bool
}

// Bucket is the contribution of one instance to one product/SLA/usage/billing combination.
type Bucket struct {
	Key             BucketKey
	Cores           int
	Sockets         int
	MeasurementType HardwareMeasurementType
}

// Counted reports whether the bucket contributes to capacity totals. Buckets of type EMPTY do not.
func (b Bucket) Counted() bool {
	return b.MeasurementType != MeasurementEmpty && b.MeasurementType != ""
}
