package model

import (
	"fmt"
	"slices"
)

// Offering is a catalog entry that grants capacity per unit of subscription quantity. Nil capacity fields mean the dimension does not apply.
type Offering struct {
	SKU               string
	ProductName       string
	ProductFamily     string
	Role              string
	ServiceLevel      ServiceLevel
	Usage             Usage
	ProductTags       []string
	Cores             *int
	Sockets           *int
	HypervisorCores   *int
	HypervisorSockets *int
	HasUnlimitedUsage bool
	// Metered offerings are billed pay-as-you-go. Their subscription measurements come from contracts, not capacity.
	Metered bool
}

// CapacityDimension is one of the four capacity-per-unit fields of an offering together with the subscription measurement it produces.
type CapacityDimension struct {
	Key     MeasurementKey
	PerUnit *int
}

// CapacityDimensions returns the four capacity dimensions in reconciliation order.
func (o *Offering) CapacityDimensions() []CapacityDimension {
	return []CapacityDimension{
		{Key: MeasurementKey{MeasurementPhysical, MetricCores}, PerUnit: o.Cores},
		{Key: MeasurementKey{MeasurementHypervisor, MetricCores}, PerUnit: o.HypervisorCores},
		{Key: MeasurementKey{MeasurementPhysical, MetricSockets}, PerUnit: o.Sockets},
		{Key: MeasurementKey{MeasurementHypervisor, MetricSockets}, PerUnit: o.HypervisorSockets},
	}
}

func (o *Offering) Validate() error {
	for _, d := range o.CapacityDimensions() {
		if d.PerUnit != nil && *d.PerUnit < 0 {
			return fmt.Errorf("offering %s: %s capacity must not be negative", o.SKU, d.Key)
		}
	}
	return nil
}

// CapacityChanged reports whether replacing previous with o must trigger capacity reconciliation. A missing previous offering always does.
func (o *Offering) CapacityChanged(previous *Offering) bool {
	if previous == nil {
		return true
	}
	return !equalInt(o.Cores, previous.Cores) ||
		!equalInt(o.HypervisorCores, previous.HypervisorCores) ||
		!equalInt(o.Sockets, previous.Sockets) ||
		!equalInt(o.HypervisorSockets, previous.HypervisorSockets) ||
		o.HasUnlimitedUsage != previous.HasUnlimitedUsage ||
		o.Metered != previous.Metered
}

// Equal compares every field, including product tags in order.
func (o *Offering) Equal(other *Offering) bool {
	if other == nil {
		return false
	}
	return o.SKU == other.SKU &&
		o.ProductName == other.ProductName &&
		o.ProductFamily == other.ProductFamily &&
		o.Role == other.Role &&
		o.ServiceLevel == other.ServiceLevel &&
		o.Usage == other.Usage &&
		slices.Equal(o.ProductTags, other.ProductTags) &&
		!o.CapacityChanged(other)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
