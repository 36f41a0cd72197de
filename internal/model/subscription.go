package model

import "time"

// Subscription is one version of an external subscription. A subscription is re-versioned with a new StartDate when its quantity changes, so SubscriptionID and StartDate together identify it.
type Subscription struct {
	SubscriptionID     string
	StartDate          time.Time
	EndDate            *time.Time
	OrgID              string
	SKU                string
	Quantity           int64
	SubscriptionNumber string
	BillingProvider    BillingProvider
	BillingProviderID  string
	BillingAccountID   string

	Measurements map[MeasurementKey]float64
}

// SubscriptionRef identifies a subscription version.
type SubscriptionRef struct {
	SubscriptionID string
	StartDate      time.Time
}

func (s *Subscription) Ref() SubscriptionRef {
	return SubscriptionRef{SubscriptionID: s.SubscriptionID, StartDate: s.StartDate}
}

func (s *Subscription) Measurement(k MeasurementKey) (float64, bool) {
	v, ok := s.Measurements[k]
	return v, ok
}

func (s *Subscription) SetMeasurement(k MeasurementKey, v float64) {
	if s.Measurements == nil {
		s.Measurements = map[MeasurementKey]float64{}
	}
	s.Measurements[k] = v
}

func (s *Subscription) DeleteMeasurement(k MeasurementKey) {
	delete(s.Measurements, k)
}

// ActiveAt reports whether start <= t <= end, treating a missing end date as open-ended.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return !s.StartDate.After(t) && (s.EndDate == nil || !s.EndDate.Before(t))
}

// EndedBy reports whether the subscription has an end date at or before t.
func (s *Subscription) EndedBy(t time.Time) bool {
	return s.EndDate != nil && !s.EndDate.After(t)
}

// MetricTotal sums every measurement for metric, optionally restricted to one measurement type. Metric ids compare case-insensitively.
func (s *Subscription) MetricTotal(metric MetricID, mt HardwareMeasurementType) float64 {
	var total float64
	for k, v := range s.Measurements {
		if !k.MetricID.EqualFold(metric) {
			continue
		}
		if mt != "" && k.MeasurementType != mt {
			continue
		}
		total += v
	}
	return total
}
