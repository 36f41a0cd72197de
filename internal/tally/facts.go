// Package tally turns normalized instance facts into buckets on the instance and per-account usage calculations, which become tally snapshots.
package tally

import (
	"time"

	"github.com/cloud-gov/tally/internal/model"
)

// Facts are the normalized inventory facts of one instance. Raw inventory formats are parsed upstream.
type Facts struct {
	InstanceID       string                   `json:"instance_id"`
	OrgID            string                   `json:"org_id"`
	DisplayName      string                   `json:"display_name"`
	Products         []string                 `json:"products"`
	SLA              model.ServiceLevel       `json:"sla"`
	Usage            model.Usage              `json:"usage"`
	BillingProvider  model.BillingProvider    `json:"billing_provider"`
	BillingAccountID string                   `json:"billing_account_id"`
	HardwareType     model.HostHardwareType   `json:"hardware_type"`
	CloudProvider    string                   `json:"cloud_provider"`
	Guest            bool                     `json:"is_guest"`
	Hypervisor       bool                     `json:"is_hypervisor"`
	HypervisorUUID   string                   `json:"hypervisor_uuid"`
	// HypervisorKnown is true when inventory also reports the guest's hypervisor, whose buckets already account for the guest.
	HypervisorKnown bool               `json:"hypervisor_known"`
	NumOfGuests     int                `json:"num_of_guests"`
	Cores           int                `json:"cores"`
	Sockets         int                `json:"sockets"`
	Measurements    map[string]float64 `json:"measurements"`
	LastSeen        time.Time          `json:"last_seen"`
}

// Normalize re-parses the enum fields, so values decoded from JSON obey the same "unknown becomes empty" rule as everything else.
func (f *Facts) Normalize() {
	f.SLA = model.ParseServiceLevel(string(f.SLA))
	f.Usage = model.ParseUsage(string(f.Usage))
	f.BillingProvider = model.ParseBillingProvider(string(f.BillingProvider))
	f.HardwareType = model.ParseHostHardwareType(string(f.HardwareType))
}

// MeasurementType classifies the hardware the facts describe.
func (f *Facts) MeasurementType() model.HardwareMeasurementType {
	switch {
	case f.HardwareType == model.HardwareCloud:
		return model.MeasurementTypeForCloudProvider(f.CloudProvider)
	case f.Hypervisor:
		return model.MeasurementHypervisor
	case f.Guest && f.HypervisorKnown:
		return model.MeasurementEmpty
	case f.Guest:
		return model.MeasurementVirtual
	default:
		return model.MeasurementPhysical
	}
}
