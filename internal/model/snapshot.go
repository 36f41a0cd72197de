package model

import (
	"time"

	"github.com/google/uuid"
)

// TallySnapshot is the usage of one org/product/SLA/usage/billing combination for one period. Snapshots are written by the tally pass and read by reports.
type TallySnapshot struct {
	ID               uuid.UUID
	OrgID            string
	ProductID        string
	SLA              ServiceLevel
	Usage            Usage
	BillingProvider  BillingProvider
	BillingAccountID string
	Granularity      Granularity
	SnapshotDate     time.Time
	Measurements     map[MeasurementKey]float64
}

func (s *TallySnapshot) Value(mt HardwareMeasurementType, metric MetricID) float64 {
	var total float64
	for k, v := range s.Measurements {
		if k.MeasurementType == mt && k.MetricID.EqualFold(metric) {
			total += v
		}
	}
	return total
}

// Sum adds the values of metric across the given measurement types.
func (s *TallySnapshot) Sum(types []HardwareMeasurementType, metric MetricID) float64 {
	var total float64
	for _, mt := range types {
		total += s.Value(mt, metric)
	}
	return total
}

// Breakdown is the per-category view of one metric in a snapshot.
type Breakdown struct {
	Total      float64 `json:"total"`
	Physical   float64 `json:"physical"`
	Hypervisor float64 `json:"hypervisor"`
	Cloud      float64 `json:"cloud"`
}

// Breakdown folds hypervisor and virtual values into Hypervisor and every cloud provider into Cloud.
func (s *TallySnapshot) Breakdown(metric MetricID) Breakdown {
	return Breakdown{
		Total:      s.Value(MeasurementTotal, metric),
		Physical:   s.Value(MeasurementPhysical, metric),
		Hypervisor: s.Sum([]HardwareMeasurementType{MeasurementHypervisor, MeasurementVirtual}, metric),
		Cloud:      s.Sum(CloudMeasurementTypes, metric),
	}
}
